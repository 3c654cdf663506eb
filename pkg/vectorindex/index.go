// Package vectorindex stores named, wholesale-rebuilt vector indexes with
// their parallel candidate metadata and answers exact nearest-neighbor
// queries by squared Euclidean distance.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"echo-assistant-be/pkg/store"
)

// ErrIndexNotFound means no index has been built under the name yet.
var ErrIndexNotFound = errors.New("vector index not found")

// Neighbor is a search hit: the position of the vector in the built set, its
// squared distance to the query and the metadata stored with it. All three
// come from the same build.
type Neighbor struct {
	Position  int
	Distance  float64
	Candidate store.FileCandidate
}

type Index interface {
	// Build replaces any index with the same name.
	Build(ctx context.Context, name string, vectors [][]float32, metadata []store.FileCandidate) error
	// Search returns the k nearest neighbors, ascending by distance. k <= 0
	// or k >= n returns every vector.
	Search(ctx context.Context, name string, query []float32, k int) ([]Neighbor, error)
	// Load returns the metadata stored alongside the named index.
	Load(ctx context.Context, name string) ([]store.FileCandidate, error)
	// Drop removes the named index. Dropping a missing index is not an error.
	Drop(ctx context.Context, name string) error
}

// FileIndexName names the per-conversation file search index.
func FileIndexName(conversationKey string) string {
	return "file/" + conversationKey
}

func validate(vectors [][]float32, metadata []store.FileCandidate) (int, error) {
	if len(vectors) != len(metadata) {
		return 0, fmt.Errorf("vector count %d does not match metadata count %d", len(vectors), len(metadata))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return dim, nil
}

// SquaredL2 is the squared Euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func nearest(vectors [][]float32, metadata []store.FileCandidate, query []float32, k int) ([]Neighbor, error) {
	if len(vectors) > 0 && len(query) != len(vectors[0]) {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), len(vectors[0]))
	}
	out := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		out[i] = Neighbor{Position: i, Distance: SquaredL2(v, query), Candidate: metadata[i]}
	}
	sortNeighbors(out)
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func sortNeighbors(n []Neighbor) {
	sort.SliceStable(n, func(i, j int) bool {
		if n[i].Distance != n[j].Distance {
			return n[i].Distance < n[j].Distance
		}
		return n[i].Position < n[j].Position
	})
}
