package hr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/llm"
	"echo-assistant-be/pkg/vectorindex"
)

const (
	LabelHRAdmin = "HR_Admin"

	classifyPrompt = "Classify the user query as one of: HR_Admin, File_Operation, Email_Operation, General."
	answerPrompt   = "You are an HR assistant. Use the following context to answer the user's question."

	searchK = 3
)

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Oracle answers a query from the knowledge base when the query is about HR
// or administration.
type Oracle struct {
	llm    llm.LLMProvider
	kb     Searcher
	model  string
	logger logger.ILogger
}

func NewOracle(provider llm.LLMProvider, kb Searcher, model string, log logger.ILogger) *Oracle {
	return &Oracle{llm: provider, kb: kb, model: model, logger: log}
}

func (o *Oracle) opts(temperature float64) []llm.Option {
	opts := []llm.Option{llm.WithTemperature(temperature)}
	if o.model != "" {
		opts = append(opts, llm.WithModel(o.model))
	}
	return opts
}

// Classify returns the classifier's label for query.
func (o *Oracle) Classify(ctx context.Context, query string) (string, error) {
	out, err := o.llm.Chat(ctx, []llm.Message{
		llm.System(classifyPrompt),
		llm.User(query),
	}, o.opts(0)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Answer returns an answer and true when the query is an HR question the
// knowledge base has context for. Any failure is logged and reported as not
// found so the conversation can fall through to other handlers.
func (o *Oracle) Answer(ctx context.Context, query string) (string, bool) {
	if strings.TrimSpace(query) == "" {
		return "", false
	}
	label, err := o.Classify(ctx, query)
	if err != nil {
		o.logger.Warn("HROracle", "Classification failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	if label != LabelHRAdmin {
		return "", false
	}

	chunks, err := o.kb.Search(ctx, query, searchK)
	if errors.Is(err, vectorindex.ErrIndexNotFound) {
		o.logger.Info("HROracle", "Knowledge base not found", nil)
		return "", false
	}
	if err != nil {
		o.logger.Warn("HROracle", "Knowledge base search failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	if len(chunks) == 0 {
		return "", false
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	answer, err := o.llm.Chat(ctx, []llm.Message{
		llm.System(answerPrompt),
		llm.User(fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(parts, "\n\n"), query)),
	}, o.opts(0.2)...)
	if err != nil {
		o.logger.Warn("HROracle", "Answer generation failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	answer = strings.TrimSpace(answer)
	return answer, answer != ""
}
