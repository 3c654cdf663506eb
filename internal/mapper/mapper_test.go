package mapper

import (
	"testing"
	"time"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestChatMessageNullSides(t *testing.T) {
	m := NewChatMapper()
	e := &entity.ChatMessage{Id: uuid.New(), UserEmail: "a@corp.com", ChatId: "1", UserMessage: "[TITLE]Chat - Jan 02, 2025 10:00"}

	row := m.ChatMessageToModel(e)
	require.NotNil(t, row.UserMessage)
	assert.Nil(t, row.AiResponse)

	back := m.ChatMessageToEntity(row)
	assert.Equal(t, e, back)
	assert.True(t, back.IsTitle())
	assert.Equal(t, "Chat - Jan 02, 2025 10:00", back.Title())
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenMapper()
	expiry := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &entity.TokenRecord{
		AccountId: "oid-1",
		UserEmail: "a@corp.com",
		Token:     &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: expiry},
	}

	row, err := m.ToModel(e)
	require.NoError(t, err)
	back, err := m.ToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, "rt", back.Token.RefreshToken)
	assert.True(t, expiry.Equal(back.Token.Expiry))
}

func TestTokenDecodeError(t *testing.T) {
	_, err := NewTokenMapper().ToEntity(&model.TokenCache{AccountId: "x", Token: []byte("{")})
	assert.Error(t, err)
}
