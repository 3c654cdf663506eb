package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"echo-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsZeroTemperature(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"General"},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{{Role: "model", Content: "prev"}, llm.User("q")}, llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "General", out)
	assert.JSONEq(t, `{"temperature":0}`, string(raw["options"]))

	var msgs []ollamaMessage
	require.NoError(t, json.Unmarshal(raw["messages"], &msgs))
	assert.Equal(t, "assistant", msgs[0].Role)
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "m").Generate(context.Background(), "q")
	assert.Error(t, err)
}
