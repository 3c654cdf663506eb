package mailer

import (
	"context"
	"fmt"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/graph"

	"gopkg.in/gomail.v2"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpTransport struct {
	dialer     Dialer
	sender     string
	senderName string
}

func (smtpTransport) name() string { return TransportSMTP }

// send ignores the Graph credential; the relay authenticates with its own
// account.
func (t smtpTransport) send(ctx context.Context, _ *graph.Credential, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.sender, t.senderName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func NewSMTPNotifier(host string, port int, username, password, senderName string, pub events.Publisher, log logger.ILogger) *Notifier {
	return newNotifierWithDialer(gomail.NewDialer(host, port, username, password), username, senderName, pub, log)
}

func newNotifierWithDialer(d Dialer, sender, senderName string, pub events.Publisher, log logger.ILogger) *Notifier {
	return newNotifier(smtpTransport{dialer: d, sender: sender, senderName: senderName}, pub, log)
}
