// Package intent reads what a chat message wants: a file search with its
// search phrase, or a general answer.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/llm"
	"echo-assistant-be/pkg/selection"
)

const (
	FileSearch      = selection.ClassFileSearch
	GeneralResponse = "general_response"
)

// fileKeywords drive the fallback when the model is unavailable. The first
// keyword found is removed from the phrase.
var fileKeywords = []string{"file", "document", "report", "sheet", "policy"}

const classifierPrompt = `You're an AI assistant for a document assistant application. Your job is to classify user input as either a file search or a general response.

Reply strictly in JSON format only, like:
{"intent": "file_search", "data": "maternity"}
OR
{"intent": "general_response", "data": ""}

Rules:
- Use intent 'file_search' if user is trying to get, share, show, download, send, or find a document, info, policy, file, report, or manual.
- If the input includes file-related terms like 'file', 'document', or 'report', assume it's a file search, even if the topic sounds HR-related like 'leave policy'.
- Extract the clean keyword(s) related to the file. Remove filler like: file, document, report, info, etc.
- Do not invent keywords. If unclear, return intent as 'general_response'.
- Use lowercase unless proper name (e.g., 'Anup').
- NEVER return anything except the strict JSON format.

User input:
`

type Classifier struct {
	llm    llm.LLMProvider
	model  string
	logger logger.ILogger
}

func NewClassifier(provider llm.LLMProvider, model string, log logger.ILogger) *Classifier {
	return &Classifier{llm: provider, model: model, logger: log}
}

// Classify asks the model first and falls back to keyword rules when the
// model fails or answers without an intent.
func (c *Classifier) Classify(ctx context.Context, text string) selection.Classification {
	opts := []llm.Option{llm.WithTemperature(0.2)}
	if c.model != "" {
		opts = append(opts, llm.WithModel(c.model))
	}
	out, err := c.llm.Chat(ctx, []llm.Message{llm.System(classifierPrompt + text)}, opts...)
	if err != nil {
		c.logger.Warn("IntentClassifier", "Model classification failed", map[string]interface{}{"error": err.Error()})
		return RuleClassify(text)
	}
	class, ok := parseClassification(out)
	if !ok {
		c.logger.Warn("IntentClassifier", "Unparseable classification", map[string]interface{}{"output": out})
		return RuleClassify(text)
	}
	return class
}

// parseClassification reads the first JSON object in out, tolerating code
// fences around it.
func parseClassification(out string) (selection.Classification, bool) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return selection.Classification{}, false
	}
	var class selection.Classification
	if err := json.Unmarshal([]byte(out[start:end+1]), &class); err != nil {
		return selection.Classification{}, false
	}
	class.Intent = strings.ToLower(strings.TrimSpace(class.Intent))
	class.Phrase = strings.TrimSpace(class.Phrase)
	if class.Intent == "" {
		return selection.Classification{}, false
	}
	return class, true
}

// RuleClassify is the keyword fallback.
func RuleClassify(text string) selection.Classification {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range fileKeywords {
		if strings.Contains(lower, kw) {
			phrase := strings.Join(strings.Fields(strings.ReplaceAll(lower, kw, "")), " ")
			return selection.Classification{Intent: FileSearch, Phrase: phrase}
		}
	}
	return selection.Classification{Intent: GeneralResponse}
}
