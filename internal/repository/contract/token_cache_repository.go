package contract

import (
	"context"

	"echo-assistant-be/internal/entity"
)

type TokenCacheRepository interface {
	Save(ctx context.Context, record *entity.TokenRecord) error
	// FindByAccount returns nil without error when nothing is cached.
	FindByAccount(ctx context.Context, accountID string) (*entity.TokenRecord, error)
	Delete(ctx context.Context, accountID string) error
}
