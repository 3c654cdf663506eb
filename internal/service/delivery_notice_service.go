package service

import (
	"context"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/events"
)

// Pusher sends a frame to every live connection of a user.
type Pusher interface {
	Send(email, msgType string, data interface{})
}

// IDeliveryNoticeService turns bus events into live notices for the user
// they concern.
type IDeliveryNoticeService interface {
	Handle(ctx context.Context, event events.Event) error
}

type deliveryNoticeService struct {
	pusher Pusher
	logger logger.ILogger
}

func NewDeliveryNoticeService(pusher Pusher, log logger.ILogger) IDeliveryNoticeService {
	return &deliveryNoticeService{pusher: pusher, logger: log}
}

func (s *deliveryNoticeService) Handle(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	email, _ := payload["user_email"].(string)
	if email == "" {
		s.logger.Warn("DeliveryNotice", "Event without recipient", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	switch event.EventType() {
	case events.TypeFilesDelivered:
		s.pusher.Send(email, "files_delivered", map[string]interface{}{
			"files":     payload["files"],
			"transport": payload["transport"],
			"at":        event.Timestamp(),
		})
	case events.TypeSearchCompleted:
		s.pusher.Send(email, "search_completed", map[string]interface{}{
			"chat_id": payload["chat_id"],
			"query":   payload["query"],
			"results": payload["results"],
		})
	}
	return nil
}
