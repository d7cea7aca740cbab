package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/webrag/internal/core"
)

func unitVector(axis int) []float32 {
	v := make([]float32, core.EmbeddingDim)
	v[axis] = 1
	return v
}

func mixVector(a, b int, wa, wb float32) []float32 {
	v := make([]float32, core.EmbeddingDim)
	v[a] = wa
	v[b] = wb
	return v
}

func TestMemoryStore_StateTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 2)

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.IndexAbsent, st)

	require.NoError(t, s.Create(ctx))
	assert.Error(t, s.Create(ctx), "second create must fail")

	var seen []core.IndexState
	for i := 0; i < 3; i++ {
		st, err := s.State(ctx)
		require.NoError(t, err)
		seen = append(seen, st)
	}
	assert.Equal(t, []core.IndexState{core.IndexCreating, core.IndexCreating, core.IndexReady}, seen)

	require.NoError(t, s.Drop(ctx))
	assert.Error(t, s.Create(ctx), "create while deleting must fail")

	seen = nil
	for i := 0; i < 3; i++ {
		st, err := s.State(ctx)
		require.NoError(t, err)
		seen = append(seen, st)
	}
	assert.Equal(t, []core.IndexState{core.IndexDeleting, core.IndexDeleting, core.IndexAbsent}, seen)
	assert.Error(t, s.Drop(ctx), "drop of an absent index must fail")
}

func TestMemoryStore_InsertRequiresReady(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 1)

	_, err := s.Insert(ctx, []core.Chunk{{ID: 0, Text: "a", Embedding: unitVector(0)}})
	assert.Error(t, err)

	require.NoError(t, s.Create(ctx))
	_, err = s.Insert(ctx, []core.Chunk{{ID: 0, Text: "a", Embedding: unitVector(0)}})
	assert.Error(t, err, "index still creating")

	_, _ = s.State(ctx)
	n, err := s.Insert(ctx, []core.Chunk{{ID: 0, Text: "a", Embedding: unitVector(0)}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 0)
	require.NoError(t, s.Create(ctx))

	_, err := s.Insert(ctx, []core.Chunk{{ID: 0, Text: "a", Embedding: make([]float32, 10)}})
	var dimErr *core.DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 10, dimErr.Got)

	_, err = s.Search(ctx, make([]float32, 3), 5, false)
	require.ErrorAs(t, err, &dimErr)
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 0)
	require.NoError(t, s.Create(ctx))

	_, err := s.Insert(ctx, []core.Chunk{
		{ID: 3, Text: "tie-b", Embedding: unitVector(1)},
		{ID: 0, Text: "best", Embedding: unitVector(0)},
		{ID: 1, Text: "tie-a", Embedding: unitVector(1)},
		{ID: 2, Text: "close", Embedding: mixVector(0, 1, 0.9, 0.1)},
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, unitVector(0), 10, false)
	require.NoError(t, err)
	require.Len(t, results, 4)

	texts := Texts(results)
	assert.Equal(t, []string{"best", "close", "tie-a", "tie-b"}, texts)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Nil(t, results[0].Chunk.Embedding)

	results, err = s.Search(ctx, unitVector(0), 2, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, unitVector(0), results[0].Chunk.Embedding)
}

func TestMemoryStore_SampleOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 0)
	require.NoError(t, s.Create(ctx))
	_, err := s.Insert(ctx, []core.Chunk{
		{ID: 2, Text: "c", Embedding: unitVector(2)},
		{ID: 0, Text: "a", Embedding: unitVector(0)},
		{ID: 1, Text: "b", Embedding: unitVector(1)},
	})
	require.NoError(t, err)

	sample, err := s.Sample(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sample, 2)
	assert.Equal(t, int64(0), sample[0].ID)
	assert.Equal(t, int64(1), sample[1].ID)
	assert.Equal(t, unitVector(0), sample[0].Embedding)

	sample[0].Embedding[0] = 42
	again, err := s.Sample(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0].Embedding[0], "sample must not alias stored vectors")
}

func TestMemoryStore_ReleaseAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("webrag", 1)

	assert.Error(t, s.Load(ctx), "load of a missing index must fail")
	assert.Error(t, s.Release(ctx))

	require.NoError(t, s.Create(ctx))
	_, err := s.State(ctx)
	require.NoError(t, err)
	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, core.IndexReady, st)
	_, err = s.Insert(ctx, []core.Chunk{{ID: 0, Text: "kept across release", Embedding: unitVector(0)}})
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.IndexUnloaded, st)
	_, err = s.Search(ctx, unitVector(0), 1, false)
	assert.Error(t, err, "released index does not serve queries")

	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Load(ctx), "repeated load is a no-op")
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.IndexCreating, st)
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.IndexReady, st)

	res, err := s.Search(ctx, unitVector(0), 1, false)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "kept across release", res[0].Chunk.Text)
}
