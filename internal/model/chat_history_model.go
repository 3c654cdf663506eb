package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatHistory stores one user/assistant exchange. The first row of a chat is
// a title row whose UserMessage starts with "[TITLE]".
type ChatHistory struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserEmail   string    `gorm:"type:varchar(320);not null;index:idx_chat_history_user_chat"`
	ChatId      string    `gorm:"type:varchar(64);not null;index:idx_chat_history_user_chat"`
	UserMessage *string   `gorm:"type:text"`
	AiResponse  *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

func (ChatHistory) TableName() string {
	return "chat_history"
}
