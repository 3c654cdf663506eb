// Package hr answers HR policy questions from a small local knowledge base
// of uploaded documents.
package hr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/embedding"
	"echo-assistant-be/pkg/store"
	"echo-assistant-be/pkg/utils"
	"echo-assistant-be/pkg/vectorindex"
)

const (
	IndexName    = "hr"
	ChunkSize    = 800
	ChunkOverlap = 100
	embedBatch   = 64
)

// Chunk is a retrieved piece of a knowledge-base document.
type Chunk struct {
	Source string
	Text   string
}

type KnowledgeBase struct {
	dir      string
	loader   *Loader
	embedder embedding.EmbeddingProvider
	index    vectorindex.Index
	logger   logger.ILogger

	// serializes rebuilds; searches read the index directly
	rebuildMu sync.Mutex
}

func NewKnowledgeBase(dir string, loader *Loader, embedder embedding.EmbeddingProvider, index vectorindex.Index, log logger.ILogger) *KnowledgeBase {
	return &KnowledgeBase{dir: dir, loader: loader, embedder: embedder, index: index, logger: log}
}

func (kb *KnowledgeBase) Dir() string { return kb.dir }

// Rebuild reloads every document, re-chunks and re-embeds them and replaces
// the index. It returns the number of chunks indexed.
func (kb *KnowledgeBase) Rebuild(ctx context.Context) (int, error) {
	kb.rebuildMu.Lock()
	defer kb.rebuildMu.Unlock()

	docs, err := kb.loader.LoadDir(kb.dir)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		kb.logger.Warn("HRKnowledgeBase", "No documents loaded", map[string]interface{}{"dir": kb.dir})
	}

	var chunks []store.FileCandidate
	for _, d := range docs {
		for i, text := range utils.SplitText(d.Text, ChunkSize, ChunkOverlap) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, store.FileCandidate{
				ID:            fmt.Sprintf("%s#%d", d.Name, i),
				Name:          d.Name,
				ExtractedText: text,
			})
		}
	}

	var vectors [][]float32
	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.ExtractedText)
		}
		batch, err := kb.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
		vectors = append(vectors, batch...)
	}

	if err := kb.index.Build(ctx, IndexName, vectors, chunks); err != nil {
		return 0, fmt.Errorf("build index: %w", err)
	}
	kb.logger.Info("HRKnowledgeBase", "Index rebuilt", map[string]interface{}{
		"documents": len(docs),
		"chunks":    len(chunks),
	})
	return len(chunks), nil
}

// Search returns the k chunks nearest to query. It returns
// vectorindex.ErrIndexNotFound when the knowledge base was never built.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	qv, err := embedding.EmbedOne(ctx, kb.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := kb.index.Search(ctx, IndexName, qv, k)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, Chunk{Source: h.Candidate.Name, Text: h.Candidate.ExtractedText})
	}
	return out, nil
}
