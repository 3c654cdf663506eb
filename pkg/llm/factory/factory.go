package factory

import (
	"fmt"

	"echo-assistant-be/internal/config"
	"echo-assistant-be/pkg/llm"
	"echo-assistant-be/pkg/llm/ollama"
	"echo-assistant-be/pkg/llm/openai"
)

func NewLLMProvider(cfg config.AIConfig) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.LLMModel), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
