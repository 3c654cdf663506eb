package model

import (
	"time"

	"github.com/google/uuid"
)

type HRDocument struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FileName  string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Uploader  string    `gorm:"type:varchar(320);not null"`
	SizeBytes int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (HRDocument) TableName() string {
	return "hr_documents"
}
