package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"echo-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(ids ...string) []store.FileCandidate {
	out := make([]store.FileCandidate, len(ids))
	for i, id := range ids {
		out[i] = store.FileCandidate{ID: id, Name: id + ".pdf"}
	}
	return out
}

func TestMemoryIndexSearchOrder(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	vectors := [][]float32{{0, 0}, {3, 4}, {1, 0}, {0, 1}}
	meta := candidates("a", "b", "c", "d")
	require.NoError(t, idx.Build(ctx, "file/a", vectors, meta))

	got, err := idx.Search(ctx, "file/a", []float32{0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{
		{Position: 0, Distance: 0, Candidate: meta[0]},
		{Position: 2, Distance: 1, Candidate: meta[2]},
		{Position: 3, Distance: 1, Candidate: meta[3]},
		{Position: 1, Distance: 25, Candidate: meta[1]},
	}, got)
}

func TestMemoryIndexSearchK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, "n", [][]float32{{1}, {2}, {3}}, candidates("a", "b", "c")))

	tests := []struct {
		k    int
		want int
	}{
		{k: 0, want: 3},
		{k: -1, want: 3},
		{k: 2, want: 2},
		{k: 3, want: 3},
		{k: 10, want: 3},
	}
	for _, tt := range tests {
		got, err := idx.Search(ctx, "n", []float32{0}, tt.k)
		require.NoError(t, err)
		assert.Len(t, got, tt.want)
	}
}

func TestMemoryIndexMissing(t *testing.T) {
	idx := NewMemoryIndex()
	_, err := idx.Search(context.Background(), "file/none", []float32{1}, 0)
	assert.True(t, errors.Is(err, ErrIndexNotFound))
	_, err = idx.Load(context.Background(), "file/none")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestMemoryIndexRebuildReplaces(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, "n", [][]float32{{1}, {2}}, candidates("a", "b")))
	require.NoError(t, idx.Build(ctx, "n", [][]float32{{5}}, candidates("z")))

	meta, err := idx.Load(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, candidates("z"), meta)

	hits, err := idx.Search(ctx, "n", []float32{5}, 0)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{Position: 0, Distance: 0, Candidate: candidates("z")[0]}}, hits)
}

func TestMemoryIndexEmptyBuildIsNotMissing(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, "n", nil, nil))

	hits, err := idx.Search(ctx, "n", []float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndexNamesAreIndependent(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, FileIndexName("u1:c1"), [][]float32{{1}}, candidates("a")))
	require.NoError(t, idx.Build(ctx, FileIndexName("u2:c1"), [][]float32{{1}}, candidates("b")))

	meta, err := idx.Load(ctx, "file/u1:c1")
	require.NoError(t, err)
	assert.Equal(t, "a", meta[0].ID)

	require.NoError(t, idx.Drop(ctx, "file/u1:c1"))
	_, err = idx.Load(ctx, "file/u1:c1")
	assert.ErrorIs(t, err, ErrIndexNotFound)
	_, err = idx.Search(ctx, "file/u1:c1", []float32{1}, 0)
	assert.ErrorIs(t, err, ErrIndexNotFound)

	meta, err = idx.Load(ctx, "file/u2:c1")
	require.NoError(t, err)
	assert.Equal(t, "b", meta[0].ID)

	assert.NoError(t, idx.Drop(ctx, "file/never-built"))
}

func TestExpiringMemoryIndexEvictsAfterTTL(t *testing.T) {
	idx := NewExpiringMemoryIndex(50 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, FileIndexName("u1:c1"), [][]float32{{1}}, candidates("a")))

	_, err := idx.Search(ctx, FileIndexName("u1:c1"), []float32{1}, 0)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := idx.Search(ctx, FileIndexName("u1:c1"), []float32{1}, 0)
		return errors.Is(err, ErrIndexNotFound)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestExpiringMemoryIndexRebuildRestartsTTL(t *testing.T) {
	idx := NewExpiringMemoryIndex(200 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, "n", [][]float32{{1}}, candidates("a")))
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, idx.Build(ctx, "n", [][]float32{{2}}, candidates("b")))
	time.Sleep(120 * time.Millisecond)

	meta, err := idx.Load(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "b", meta[0].ID)
}

func TestNonPositiveTTLNeverExpires(t *testing.T) {
	idx := NewExpiringMemoryIndex(0)
	ctx := context.Background()
	require.NoError(t, idx.Build(ctx, "hr", [][]float32{{1}}, candidates("a")))
	time.Sleep(20 * time.Millisecond)

	_, err := idx.Load(ctx, "hr")
	assert.NoError(t, err)
}

// Each hit carries the metadata of the build that produced its distance, even
// while the same name is rebuilt with a different set concurrently.
func TestMemoryIndexSearchIsConsistentAcrossRebuilds(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	small := [][]float32{{1}}
	large := [][]float32{{1}, {2}, {3}}
	require.NoError(t, idx.Build(ctx, "n", small, candidates("s0")))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				_ = idx.Build(ctx, "n", large, candidates("l0", "l1", "l2"))
			} else {
				_ = idx.Build(ctx, "n", small, candidates("s0"))
			}
		}
	}()

	for i := 0; i < 500; i++ {
		hits, err := idx.Search(ctx, "n", []float32{1}, 0)
		require.NoError(t, err)
		prefix := "s"
		if len(hits) == 3 {
			prefix = "l"
		}
		for _, h := range hits {
			assert.Equal(t, prefix+string(rune('0'+h.Position)), h.Candidate.ID)
		}
	}
	close(done)
	wg.Wait()
}

func TestMemoryIndexRejectsBadInput(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	assert.Error(t, idx.Build(ctx, "n", [][]float32{{1, 2}, {1}}, candidates("a", "b")))
	assert.Error(t, idx.Build(ctx, "n", [][]float32{{1}}, candidates("a", "b")))

	require.NoError(t, idx.Build(ctx, "n", [][]float32{{1, 2}}, candidates("a")))
	_, err := idx.Search(ctx, "n", []float32{1}, 0)
	assert.Error(t, err)
}

func TestMemoryIndexBuildCopiesInput(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	vectors := [][]float32{{1}}
	meta := candidates("a")
	require.NoError(t, idx.Build(ctx, "n", vectors, meta))

	vectors[0][0] = 99
	meta[0].ID = "mutated"

	loaded, err := idx.Load(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "a", loaded[0].ID)
	hits, err := idx.Search(ctx, "n", []float32{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hits[0].Distance)
}

func TestMemoryIndexConcurrentConversations(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := FileIndexName(string(rune('a' + i)))
			assert.NoError(t, idx.Build(ctx, name, [][]float32{{float32(i)}}, candidates("x")))
			_, err := idx.Search(ctx, name, []float32{0}, 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, 25.0, SquaredL2([]float32{0, 0}, []float32{3, 4}))
}
