package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const TitlePrefix = "[TITLE]"

type ChatMessage struct {
	Id          uuid.UUID
	UserEmail   string
	ChatId      string
	UserMessage string
	AiResponse  string
	CreatedAt   time.Time
}

func (m *ChatMessage) IsTitle() bool {
	return strings.HasPrefix(m.UserMessage, TitlePrefix)
}

func (m *ChatMessage) Title() string {
	return strings.TrimSpace(strings.TrimPrefix(m.UserMessage, TitlePrefix))
}
