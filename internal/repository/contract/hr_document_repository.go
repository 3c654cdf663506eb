package contract

import (
	"context"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/repository/specification"
)

type HRDocumentRepository interface {
	// Upsert inserts or replaces the row with the same file name.
	Upsert(ctx context.Context, doc *entity.HRDocument) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HRDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HRDocument, error)
	DeleteByFileName(ctx context.Context, fileName string) error
}
