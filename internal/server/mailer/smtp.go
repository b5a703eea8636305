package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
}

// SMTPTransport opens one connection per message.
type SMTPTransport struct {
	settings SMTPSettings
	timeout  time.Duration
}

func NewSMTPTransport(settings SMTPSettings) *SMTPTransport {
	return &SMTPTransport{settings: settings, timeout: 15 * time.Second}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(t.settings.Host, t.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (t *SMTPTransport) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.settings.Port),
		mail.WithTimeout(t.timeout),
	}
	if t.settings.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if t.settings.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.settings.Username),
			mail.WithPassword(t.settings.Password),
		)
	}
	return opts
}

func buildMsg(msg Message) (*mail.Msg, error) {
	if msg.To == "" {
		return nil, errEmptyRecipient
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
