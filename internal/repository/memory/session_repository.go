package memory

import (
	"context"
	"time"

	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

const currentChatPrefix = "current_chat:"

// SessionRepository keeps sessions in process memory. Each write and read
// copies the session so callers never share a pointer with the cache.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) contract.SessionRepository {
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func clone(s *store.SelectionSession) *store.SelectionSession {
	c := *s
	if s.Candidates != nil {
		c.Candidates = append([]store.RankedResult(nil), s.Candidates...)
	}
	return &c
}

func (r *SessionRepository) Get(ctx context.Context, key string) (*store.SelectionSession, error) {
	if x, found := r.cache.Get(key); found {
		return clone(x.(*store.SelectionSession)), nil
	}
	return nil, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.SelectionSession) error {
	r.cache.Set(session.Key(), clone(session), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}

func (r *SessionRepository) CurrentChat(ctx context.Context, accountID string) (string, error) {
	if x, found := r.cache.Get(currentChatPrefix + accountID); found {
		return x.(string), nil
	}
	return "", nil
}

func (r *SessionRepository) SetCurrentChat(ctx context.Context, accountID, chatID string) error {
	r.cache.Set(currentChatPrefix+accountID, chatID, cache.DefaultExpiration)
	return nil
}
