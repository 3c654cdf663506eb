package unitofwork

import (
	"context"

	"echo-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatHistoryRepository() contract.ChatHistoryRepository
	TokenCacheRepository() contract.TokenCacheRepository
	HRDocumentRepository() contract.HRDocumentRepository
}
