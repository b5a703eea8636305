// Package mailer delivers account emails. A Transport moves one message to
// one recipient; the Notifier composes the verification and reset messages
// on top of it.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Transport sends a message or returns an error; it never drops silently.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

var errEmptyRecipient = errors.New("message has no recipient")

// LogTransport writes messages to a writer instead of delivering them.
// It is meant for development, where the verification link or reset code
// is read from the console.
type LogTransport struct {
	mu  sync.Mutex
	out io.Writer
	log logging.Logger
}

func NewLogTransport(out io.Writer, log logging.Logger) *LogTransport {
	if out == nil {
		out = os.Stdout
	}
	return &LogTransport{out: out, log: log}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errEmptyRecipient
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := fmt.Fprintf(t.out, "From: %s\nTo: %s\nSubject: %s\n\n%s\n%s\n",
		msg.From, msg.To, msg.Subject, msg.Body, strings.Repeat("-", 72))
	if err != nil {
		return err
	}
	t.log.Debug(ctx, "mail written to console", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewTransport builds the transport selected by cfg.MailTransport.
func NewTransport(ctx context.Context, cfg *config.Config, log logging.Logger) (Transport, error) {
	switch cfg.MailTransport {
	case config.MailTransportLog:
		return NewLogTransport(os.Stdout, log), nil
	case config.MailTransportSMTP:
		return NewSMTPTransport(SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			UseSSL:   cfg.SMTPUseSSL,
		}), nil
	case config.MailTransportSES:
		return NewSESTransport(ctx, cfg.SESRegion, cfg.SESAccessKeyID, cfg.SESSecretAccessKey)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
