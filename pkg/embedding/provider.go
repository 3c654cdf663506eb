package embedding

import (
	"context"
	"fmt"
	"math"
)

// MaxInputChars bounds every text sent for embedding.
const MaxInputChars = 2000

// EmbeddingProvider turns texts into dense vectors. One call is one batched
// remote request; output order matches input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Truncate cuts every text to MaxInputChars characters.
func Truncate(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		r := []rune(t)
		if len(r) > MaxInputChars {
			r = r[:MaxInputChars]
		}
		out[i] = string(r)
	}
	return out
}

// EmbedOne embeds a single text with a one-element batch.
func EmbedOne(ctx context.Context, p EmbeddingProvider, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

func checkCount(provider string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s returned %d embeddings for %d inputs", provider, got, want)
	}
	return nil
}

// normalizeVector scales vec to unit length.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
