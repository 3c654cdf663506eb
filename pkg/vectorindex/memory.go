package vectorindex

import (
	"context"
	"time"

	"echo-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type snapshot struct {
	vectors  [][]float32
	metadata []store.FileCandidate
}

// MemoryIndex keeps snapshots in process memory. A snapshot is never mutated
// after Build, so searches run without holding a lock.
type MemoryIndex struct {
	cache *cache.Cache
}

// NewMemoryIndex keeps every index until it is dropped or rebuilt.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{cache: cache.New(cache.NoExpiration, 0)}
}

// NewExpiringMemoryIndex evicts an index ttl after its last build.
func NewExpiringMemoryIndex(ttl time.Duration) *MemoryIndex {
	if ttl <= 0 {
		return NewMemoryIndex()
	}
	cleanup := ttl
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &MemoryIndex{cache: cache.New(ttl, cleanup)}
}

func (m *MemoryIndex) Build(ctx context.Context, name string, vectors [][]float32, metadata []store.FileCandidate) error {
	if _, err := validate(vectors, metadata); err != nil {
		return err
	}
	snap := &snapshot{
		vectors:  make([][]float32, len(vectors)),
		metadata: make([]store.FileCandidate, len(metadata)),
	}
	for i, v := range vectors {
		snap.vectors[i] = append([]float32(nil), v...)
	}
	copy(snap.metadata, metadata)

	m.cache.SetDefault(name, snap)
	return nil
}

func (m *MemoryIndex) get(name string) (*snapshot, error) {
	x, ok := m.cache.Get(name)
	if !ok {
		return nil, ErrIndexNotFound
	}
	return x.(*snapshot), nil
}

func (m *MemoryIndex) Search(ctx context.Context, name string, query []float32, k int) ([]Neighbor, error) {
	snap, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return nearest(snap.vectors, snap.metadata, query, k)
}

func (m *MemoryIndex) Load(ctx context.Context, name string) ([]store.FileCandidate, error) {
	snap, err := m.get(name)
	if err != nil {
		return nil, err
	}
	out := make([]store.FileCandidate, len(snap.metadata))
	copy(out, snap.metadata)
	return out, nil
}

func (m *MemoryIndex) Drop(ctx context.Context, name string) error {
	m.cache.Delete(name)
	return nil
}
