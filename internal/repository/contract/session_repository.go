package contract

import (
	"context"

	"echo-assistant-be/pkg/store"
)

// SessionRepository persists selection sessions and each account's current
// chat between requests.
type SessionRepository interface {
	Get(ctx context.Context, key string) (*store.SelectionSession, error)
	Save(ctx context.Context, session *store.SelectionSession) error
	Delete(ctx context.Context, key string) error

	CurrentChat(ctx context.Context, accountID string) (string, error)
	SetCurrentChat(ctx context.Context, accountID, chatID string) error
}
