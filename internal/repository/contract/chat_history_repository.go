package contract

import (
	"context"
	"time"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/repository/specification"
)

type ChatHistoryRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// ChatIDs lists a user's chats, most recently active first.
	ChatIDs(ctx context.Context, userEmail string) ([]string, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
