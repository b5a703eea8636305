package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogTransport_Send(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLogTransport(&buf, logging.Nop{})

	err := tr.Send(context.Background(), Message{From: "a@example.com", To: "b@example.com", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "To: b@example.com")
	assert.Contains(t, out, "Subject: Hi")
	assert.Contains(t, out, "hello")
}

func TestLogTransport_EmptyRecipient(t *testing.T) {
	tr := NewLogTransport(&bytes.Buffer{}, logging.Nop{})
	assert.ErrorIs(t, tr.Send(context.Background(), Message{To: "  "}), errEmptyRecipient)
}

func TestNewTransport(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	tr, err := NewTransport(context.Background(), cfg, logging.Nop{})
	require.NoError(t, err)
	assert.IsType(t, &LogTransport{}, tr)

	cfg.MailTransport = config.MailTransportSMTP
	tr, err = NewTransport(context.Background(), cfg, logging.Nop{})
	require.NoError(t, err)
	assert.IsType(t, &SMTPTransport{}, tr)

	cfg.MailTransport = "pigeon"
	_, err = NewTransport(context.Background(), cfg, logging.Nop{})
	assert.Error(t, err)
}
