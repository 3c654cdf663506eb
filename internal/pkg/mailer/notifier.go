// Package mailer delivers selected files to the requester by email, either
// from the user's own mailbox through Graph or through an SMTP relay.
package mailer

import (
	"context"
	"errors"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/metrics"
	"echo-assistant-be/pkg/store"
)

const (
	TransportGraph = "graph"
	TransportSMTP  = "smtp"
)

var ErrNoFiles = errors.New("nothing to send")

// transport sends one HTML message.
type transport interface {
	name() string
	send(ctx context.Context, cred *graph.Credential, to, subject, html string) error
}

// Notifier emails files and announces each delivery on the event bus.
type Notifier struct {
	transport transport
	publisher events.Publisher
	logger    logger.ILogger
}

func newNotifier(t transport, pub events.Publisher, log logger.ILogger) *Notifier {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Notifier{transport: t, publisher: pub, logger: log}
}

// SendFilesEmail sends one message listing every file.
func (n *Notifier) SendFilesEmail(ctx context.Context, cred *graph.Credential, recipient string, files []store.FileCandidate) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	return n.deliver(ctx, cred, recipient, FilesSubject, FilesBody(files), files)
}

// SendFileEmail sends a single file link.
func (n *Notifier) SendFileEmail(ctx context.Context, cred *graph.Credential, recipient string, file store.FileCandidate) error {
	return n.deliver(ctx, cred, recipient, FileSubject(file.Name), linkParagraph(file.Name, file.WebURL), []store.FileCandidate{file})
}

func (n *Notifier) deliver(ctx context.Context, cred *graph.Credential, recipient, subject, body string, files []store.FileCandidate) error {
	if err := n.transport.send(ctx, cred, recipient, subject, body); err != nil {
		metrics.DeliveriesTotal.WithLabelValues(n.transport.name(), "error").Inc()
		return err
	}
	metrics.DeliveriesTotal.WithLabelValues(n.transport.name(), "ok").Inc()

	n.logger.Info("Mailer", "Files delivered", map[string]interface{}{
		"recipient": recipient,
		"files":     len(files),
		"transport": n.transport.name(),
	})
	if err := n.publisher.Publish(ctx, events.FilesDelivered(recipient, n.transport.name(), fileNames(files))); err != nil {
		n.logger.Warn("Mailer", "Failed to publish delivery event", map[string]interface{}{"error": err.Error()})
	}
	return nil
}
