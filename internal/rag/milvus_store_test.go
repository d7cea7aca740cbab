package rag

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/webrag/internal/core"
)

func TestIndexState(t *testing.T) {
	tests := []struct {
		code entity.LoadStateCode
		want core.IndexState
	}{
		{entity.LoadStateLoaded, core.IndexReady},
		{entity.LoadStateLoading, core.IndexCreating},
		{entity.LoadStateNotLoad, core.IndexUnloaded},
		{entity.LoadStateUnloading, core.IndexDeleting},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, indexState(tt.code), "load state %v", tt.code)
	}
}

func TestMaxVarCharLengthMatchesChunkLimit(t *testing.T) {
	assert.Equal(t, "65535", DefaultMaxVarCharLength)
}

func TestFloatVectors(t *testing.T) {
	_, err := floatVectors(nil)
	assert.Error(t, err)

	_, err = floatVectors(column.NewColumnInt64(FieldVector, []int64{1}))
	assert.Error(t, err)

	col := column.NewColumnFloatVector(FieldVector, core.EmbeddingDim, [][]float32{unitVector(0), unitVector(7)})
	got, err := floatVectors(col)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, unitVector(0), got[0])
	assert.Equal(t, unitVector(7), got[1])
}

func hitSet(ids []int64, texts []string, vectors [][]float32, scores []float32) milvusclient.ResultSet {
	fields := milvusclient.DataSet{column.NewColumnVarChar(FieldText, texts)}
	if vectors != nil {
		fields = append(fields, column.NewColumnFloatVector(FieldVector, core.EmbeddingDim, vectors))
	}
	return milvusclient.ResultSet{
		ResultCount: len(ids),
		IDs:         column.NewColumnInt64(FieldID, ids),
		Fields:      fields,
		Scores:      scores,
	}
}

func TestSearchResults(t *testing.T) {
	rs := hitSet(
		[]int64{4, 1},
		[]string{"closest chunk", "runner up"},
		[][]float32{unitVector(4), unitVector(1)},
		[]float32{0.92, 0.41},
	)

	got, err := searchResults(rs, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].Chunk.ID)
	assert.Equal(t, "closest chunk", got[0].Chunk.Text)
	assert.Equal(t, unitVector(4), got[0].Chunk.Embedding)
	assert.InDelta(t, 0.92, got[0].Score, 1e-6)
	assert.Equal(t, int64(1), got[1].Chunk.ID)
	assert.InDelta(t, 0.41, got[1].Score, 1e-6)

	got, err = searchResults(rs, false)
	require.NoError(t, err)
	assert.Nil(t, got[0].Chunk.Embedding)
}

func TestSearchResults_EmptyAndMalformed(t *testing.T) {
	got, err := searchResults(milvusclient.ResultSet{}, true)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	short := hitSet([]int64{4, 1}, []string{"a", "b"}, [][]float32{unitVector(4)}, []float32{0.9, 0.4})
	_, err = searchResults(short, true)
	assert.Error(t, err, "one vector for two hits")

	noVectors := hitSet([]int64{4}, []string{"a"}, nil, []float32{0.9})
	_, err = searchResults(noVectors, true)
	assert.Error(t, err)

	badScores := hitSet([]int64{4, 1}, []string{"a", "b"}, nil, []float32{0.9})
	_, err = searchResults(badScores, false)
	assert.Error(t, err)
}

func rowSet(ids []int64, texts []string, vectors [][]float32) milvusclient.ResultSet {
	return milvusclient.ResultSet{
		ResultCount: len(ids),
		Fields: milvusclient.DataSet{
			column.NewColumnInt64(FieldID, ids),
			column.NewColumnVarChar(FieldText, texts),
			column.NewColumnFloatVector(FieldVector, core.EmbeddingDim, vectors),
		},
	}
}

func TestSampleChunks(t *testing.T) {
	rs := rowSet(
		[]int64{2, 0, 1},
		[]string{"third", "first", "second"},
		[][]float32{unitVector(2), unitVector(0), unitVector(1)},
	)

	got, err := sampleChunks(rs)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, int64(i), got[i].ID)
		assert.Equal(t, want, got[i].Text)
		assert.Equal(t, unitVector(i), got[i].Embedding)
	}
}

func TestSampleChunks_ColumnsMustAgree(t *testing.T) {
	got, err := sampleChunks(milvusclient.ResultSet{})
	require.NoError(t, err)
	assert.Empty(t, got)

	short := rowSet([]int64{0, 1}, []string{"first", "second"}, [][]float32{unitVector(0)})
	_, err = sampleChunks(short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 ids, 2 texts and 1 vectors")

	missing := milvusclient.ResultSet{
		ResultCount: 1,
		Fields:      milvusclient.DataSet{column.NewColumnInt64(FieldID, []int64{0})},
	}
	_, err = sampleChunks(missing)
	assert.Error(t, err)
}
