package dto

import (
	"echo-assistant-be/pkg/selection"
	"echo-assistant-be/pkg/store"
)

type ChatRequest struct {
	Message         string `json:"message" validate:"max=4000"`
	SelectionStage  bool   `json:"selectionStage"`
	SelectedIndices []int  `json:"selectedIndices" validate:"omitempty,max=100,dive,min=1"`
	ChatId          string `json:"chat_id" validate:"omitempty,max=64"`
}

// ChatResponse is the reply to one chat turn, with the active chat id.
type ChatResponse struct {
	selection.Reply
	ChatId string `json:"chat_id,omitempty"`
}

type CheckLoginResponse struct {
	LoggedIn  bool   `json:"logged_in"`
	ChatId    string `json:"chat_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

type NewChatResponse struct {
	ChatId string `json:"chat_id"`
}

type SessionStateResponse struct {
	Stage  store.Stage          `json:"stage"`
	ChatId string               `json:"chat_id"`
	Files  []store.RankedResult `json:"files"`
}

type ChatSummaryResponse struct {
	Id      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

type ChatMessageResponse struct {
	Sender    string `json:"sender"` // "You" or "AI"
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type ChatMessagesResponse struct {
	Messages []ChatMessageResponse `json:"messages"`
}
