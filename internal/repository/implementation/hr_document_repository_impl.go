package implementation

import (
	"context"
	"errors"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/mapper"
	"echo-assistant-be/internal/model"
	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HRDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HRDocumentMapper
}

func NewHRDocumentRepository(db *gorm.DB) contract.HRDocumentRepository {
	return &HRDocumentRepositoryImpl{db: db, mapper: mapper.NewHRDocumentMapper()}
}

func (r *HRDocumentRepositoryImpl) Upsert(ctx context.Context, doc *entity.HRDocument) error {
	m := r.mapper.ToModel(doc)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"uploader", "size_bytes", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *HRDocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HRDocument, error) {
	var m model.HRDocument
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *HRDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HRDocument, error) {
	var models []*model.HRDocument
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.HRDocument, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}

func (r *HRDocumentRepositoryImpl) DeleteByFileName(ctx context.Context, fileName string) error {
	return r.db.WithContext(ctx).Where("file_name = ?", fileName).Delete(&model.HRDocument{}).Error
}
