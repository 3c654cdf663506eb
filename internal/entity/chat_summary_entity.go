package entity

import "time"

// ChatSummary is one entry of a user's chat list.
type ChatSummary struct {
	ChatId    string
	Title     string
	Preview   string
	CreatedAt time.Time
}
