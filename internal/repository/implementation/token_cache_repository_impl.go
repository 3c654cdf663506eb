package implementation

import (
	"context"
	"errors"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/mapper"
	"echo-assistant-be/internal/model"
	"echo-assistant-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenCacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TokenMapper
}

func NewTokenCacheRepository(db *gorm.DB) contract.TokenCacheRepository {
	return &TokenCacheRepositoryImpl{db: db, mapper: mapper.NewTokenMapper()}
}

func (r *TokenCacheRepositoryImpl) Save(ctx context.Context, record *entity.TokenRecord) error {
	m, err := r.mapper.ToModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_email", "token", "updated_at"}),
	}).Create(m).Error
}

func (r *TokenCacheRepositoryImpl) FindByAccount(ctx context.Context, accountID string) (*entity.TokenRecord, error) {
	var m model.TokenCache
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *TokenCacheRepositoryImpl) Delete(ctx context.Context, accountID string) error {
	return r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.TokenCache{}).Error
}
