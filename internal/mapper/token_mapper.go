package mapper

import (
	"encoding/json"
	"fmt"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/model"

	"golang.org/x/oauth2"
	"gorm.io/datatypes"
)

type TokenMapper struct{}

func NewTokenMapper() *TokenMapper {
	return &TokenMapper{}
}

func (m *TokenMapper) ToEntity(t *model.TokenCache) (*entity.TokenRecord, error) {
	if t == nil {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(t.Token, &tok); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return &entity.TokenRecord{
		AccountId: t.AccountId,
		UserEmail: t.UserEmail,
		Token:     &tok,
		UpdatedAt: t.UpdatedAt,
	}, nil
}

func (m *TokenMapper) ToModel(e *entity.TokenRecord) (*model.TokenCache, error) {
	data, err := json.Marshal(e.Token)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	return &model.TokenCache{
		AccountId: e.AccountId,
		UserEmail: e.UserEmail,
		Token:     datatypes.JSON(data),
		UpdatedAt: e.UpdatedAt,
	}, nil
}
