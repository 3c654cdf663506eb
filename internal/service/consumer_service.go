package service

import (
	"context"
	"encoding/json"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Rebuilder re-reads the knowledge base directory and replaces its index.
type Rebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	kb        Rebuilder
	publisher events.Publisher
	logger    logger.ILogger
}

func NewConsumerService(pubSub *gochannel.GoChannel, topicName string, kb Rebuilder, publisher events.Publisher, log logger.ILogger) IConsumerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		kb:        kb,
		publisher: publisher,
		logger:    log,
	}
}

// Consume rebuilds the knowledge base once per reindex message until ctx is
// done. A failed rebuild is logged and acked; the next change retries it.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var payload dto.PublishReindexMessage
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				cs.logger.Warn("HRReindex", "Invalid reindex message", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}

			chunks, err := cs.kb.Rebuild(ctx)
			if err != nil {
				cs.logger.Error("HRReindex", "Knowledge base rebuild failed", map[string]interface{}{
					"trigger": payload.Trigger,
					"file":    payload.FileName,
					"error":   err.Error(),
				})
				msg.Ack()
				continue
			}

			cs.logger.Info("HRReindex", "Knowledge base rebuilt", map[string]interface{}{
				"trigger": payload.Trigger,
				"file":    payload.FileName,
				"actor":   payload.Actor,
				"chunks":  chunks,
			})
			if err := cs.publisher.Publish(ctx, events.HRIndexRebuilt(chunks, payload.Trigger)); err != nil {
				cs.logger.Warn("HRReindex", "Failed to publish rebuild event", map[string]interface{}{"error": err.Error()})
			}
			msg.Ack()
		}
	}()

	return nil
}
