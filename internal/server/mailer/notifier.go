package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gmapauth/internal/common"
)

const (
	verificationSubject = "Verify your G-Map account"
	verificationBody    = "Welcome to G-Map!\n\nClick this link to verify your email:\n%s\n\nThis link expires in 24 hours."

	resetSubject = "G-Map password reset code"
	resetBody    = "Your password reset code is: %s\n\nThis code expires in 10 minutes."

	TestSubject = "G-Map Email Test"
	TestBody    = "If you received this, email is working."
)

// Notifier composes account emails and hands them to a Transport. Delivery
// failures come back wrapped in common.ErrorMailDelivery.
type Notifier struct {
	transport Transport
	from      string
}

func NewNotifier(transport Transport, from string) *Notifier {
	return &Notifier{transport: transport, from: from}
}

func (n *Notifier) SendVerification(ctx context.Context, to, link string) error {
	return n.send(ctx, to, verificationSubject, fmt.Sprintf(verificationBody, link))
}

func (n *Notifier) SendResetCode(ctx context.Context, to, code string) error {
	return n.send(ctx, to, resetSubject, fmt.Sprintf(resetBody, code))
}

func (n *Notifier) SendTest(ctx context.Context, to string) error {
	return n.send(ctx, to, TestSubject, TestBody)
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) error {
	err := n.transport.Send(ctx, Message{From: n.from, To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorMailDelivery, err)
	}
	return nil
}
