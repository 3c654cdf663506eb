// Package redis stores selection sessions in Redis so several API instances
// can serve the same conversation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionPrefix     = "echo:session:"
	currentChatPrefix = "echo:current_chat:"
)

type SessionRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewSessionRepository(rdb *goredis.Client, ttl time.Duration) contract.SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func (r *SessionRepository) Get(ctx context.Context, key string) (*store.SelectionSession, error) {
	data, err := r.rdb.Get(ctx, sessionPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var s store.SelectionSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.SelectionSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.rdb.Set(ctx, sessionPrefix+session.Key(), data, r.ttl).Err()
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, sessionPrefix+key).Err()
}

func (r *SessionRepository) CurrentChat(ctx context.Context, accountID string) (string, error) {
	id, err := r.rdb.Get(ctx, currentChatPrefix+accountID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return id, err
}

func (r *SessionRepository) SetCurrentChat(ctx context.Context, accountID, chatID string) error {
	return r.rdb.Set(ctx, currentChatPrefix+accountID, chatID, r.ttl).Err()
}
