// Package ranking scores discovered candidates by blending vector distance
// with lexical bonuses for exact phrase, keyword and year matches.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"echo-assistant-be/pkg/embedding"
	"echo-assistant-be/pkg/store"
	"echo-assistant-be/pkg/vectorindex"
)

type Ranker struct {
	embedder embedding.EmbeddingProvider
	index    vectorindex.Index
}

func NewRanker(embedder embedding.EmbeddingProvider, index vectorindex.Index) *Ranker {
	return &Ranker{embedder: embedder, index: index}
}

// Build embeds each candidate's ranking text and replaces the named index.
func (r *Ranker) Build(ctx context.Context, name string, candidates []store.FileCandidate) error {
	if len(candidates) == 0 {
		return r.index.Build(ctx, name, nil, nil)
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.RankingText()
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed candidates: %w", err)
	}
	return r.index.Build(ctx, name, vectors, candidates)
}

// Rank orders the named index's candidates for query, best first. topK <= 0
// means no limit. A missing or empty index yields no results without
// embedding the query.
func (r *Ranker) Rank(ctx context.Context, name, query string, topK int) ([]store.RankedResult, error) {
	metadata, err := r.index.Load(ctx, name)
	if errors.Is(err, vectorindex.ErrIndexNotFound) {
		return []store.RankedResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) == 0 {
		return []store.RankedResult{}, nil
	}

	qv, err := embedding.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	// Candidates come from the hits, not from metadata above, so a rebuild in
	// between cannot pair a distance with another build's file.
	neighbors, err := r.index.Search(ctx, name, qv, 0)
	if errors.Is(err, vectorindex.ErrIndexNotFound) {
		return []store.RankedResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]store.RankedResult, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, store.RankedResult{
			FileCandidate: n.Candidate,
			Score:         Score(query, n.Candidate.RankingText(), n.Distance),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}
