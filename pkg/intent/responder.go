package intent

import (
	"context"
	"strings"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/llm"
)

const (
	MsgTrouble = "I'm having trouble responding. Please try again shortly."

	smallTalkPrompt = "You are a polite and helpful assistant inside a document assistant chatbot. " +
		"Respond to greetings and user messages in a friendly, short way."
	openEndedPrompt = "You are an intelligent assistant that can answer general world knowledge, " +
		"recent events, news-style questions, and everyday queries. " +
		"Even if some events are recent, do your best to provide an informed response."
)

var smallTalkPhrases = []string{"hi", "hello", "thank you", "who are you", "what can you do"}

// Responder answers messages that are neither HR questions nor file searches.
type Responder struct {
	llm    llm.LLMProvider
	model  string
	logger logger.ILogger
}

func NewResponder(provider llm.LLMProvider, model string, log logger.ILogger) *Responder {
	return &Responder{llm: provider, model: model, logger: log}
}

// IsSmallTalk reports whether text contains a greeting or small-talk phrase.
func IsSmallTalk(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range smallTalkPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (r *Responder) Respond(ctx context.Context, text string) string {
	prompt, temperature := openEndedPrompt, 0.7
	if IsSmallTalk(text) {
		prompt, temperature = smallTalkPrompt, 0.5
	}
	opts := []llm.Option{llm.WithTemperature(temperature)}
	if r.model != "" {
		opts = append(opts, llm.WithModel(r.model))
	}

	out, err := r.llm.Chat(ctx, []llm.Message{llm.System(prompt), llm.User(text)}, opts...)
	if err != nil {
		r.logger.Warn("GeneralResponder", "Model answer failed", map[string]interface{}{"error": err.Error()})
		return MsgTrouble
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return MsgTrouble
	}
	return out
}
