package factory

import (
	"testing"

	"echo-assistant-be/internal/config"
	"echo-assistant-be/pkg/llm/ollama"
	"echo-assistant-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(config.AIConfig{LLMProvider: "openai", OpenAIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIProvider{}, p)

	p, err = NewLLMProvider(config.AIConfig{LLMProvider: "ollama", LLMModel: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)

	_, err = NewLLMProvider(config.AIConfig{LLMProvider: "openai"})
	assert.Error(t, err)

	_, err = NewLLMProvider(config.AIConfig{LLMProvider: "bard"})
	assert.Error(t, err)
}
