package mapper

import (
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatMessageToEntity(h *model.ChatHistory) *entity.ChatMessage {
	if h == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:          h.Id,
		UserEmail:   h.UserEmail,
		ChatId:      h.ChatId,
		UserMessage: deref(h.UserMessage),
		AiResponse:  deref(h.AiResponse),
		CreatedAt:   h.CreatedAt,
	}
}

// ChatMessageToModel stores empty sides as NULL so previews can skip them.
func (m *ChatMapper) ChatMessageToModel(e *entity.ChatMessage) *model.ChatHistory {
	if e == nil {
		return nil
	}
	return &model.ChatHistory{
		Id:          e.Id,
		UserEmail:   e.UserEmail,
		ChatId:      e.ChatId,
		UserMessage: nullable(e.UserMessage),
		AiResponse:  nullable(e.AiResponse),
		CreatedAt:   e.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
