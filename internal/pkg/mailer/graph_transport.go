package mailer

import (
	"context"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/graph"
)

// GraphMailer is the part of the Graph client used to send mail.
type GraphMailer interface {
	SendMail(ctx context.Context, cred *graph.Credential, to, subject, html string) error
}

type graphTransport struct {
	client GraphMailer
}

func (graphTransport) name() string { return TransportGraph }

func (t graphTransport) send(ctx context.Context, cred *graph.Credential, to, subject, html string) error {
	return t.client.SendMail(ctx, cred, to, subject, html)
}

// NewGraphNotifier sends from the signed-in user's own mailbox.
func NewGraphNotifier(client GraphMailer, pub events.Publisher, log logger.ILogger) *Notifier {
	return newNotifier(graphTransport{client: client}, pub, log)
}
