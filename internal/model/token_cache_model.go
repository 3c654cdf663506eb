package model

import (
	"time"

	"gorm.io/datatypes"
)

// TokenCache keeps the serialized OAuth token of one Microsoft account.
type TokenCache struct {
	AccountId string         `gorm:"type:varchar(128);primaryKey"`
	UserEmail string         `gorm:"type:varchar(320);not null;index"`
	Token     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (TokenCache) TableName() string {
	return "token_cache"
}
