package entity

import (
	"time"

	"github.com/google/uuid"
)

type HRDocument struct {
	Id        uuid.UUID
	FileName  string
	Uploader  string
	SizeBytes int64
	UpdatedAt time.Time
}
