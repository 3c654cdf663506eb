package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByUserEmail struct {
	Email string
}

func (s ByUserEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_email = ?", s.Email)
}

type ByChatID struct {
	ChatID string
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

type CreatedBefore struct {
	Cutoff time.Time
}

func (s CreatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at < ?", s.Cutoff)
}

// TitleRows keeps only the "[TITLE]" marker rows of chats.
type TitleRows struct{}

func (TitleRows) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_message LIKE ?", "[TITLE]%")
}

type WithAiResponse struct{}

func (WithAiResponse) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("ai_response IS NOT NULL")
}
