package rag

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
)

// Field names for the chunk collection
const (
	FieldID     = "id"
	FieldText   = "text"
	FieldVector = "vector"
)

// searchEf is the HNSW candidate list size used at query time.
const searchEf = 64

// MilvusStore is a core.VectorStore backed by a single Milvus collection.
type MilvusStore struct {
	client *milvusclient.Client
	name   string
}

// NewMilvusStore connects to Milvus and binds the store to the named collection.
func NewMilvusStore(ctx context.Context, addr, name string) (*MilvusStore, error) {
	logger.Info("Connecting to Milvus at %s (collection %s, dimension %d)", addr, name, core.EmbeddingDim)

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: addr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	return &MilvusStore{client: c, name: name}, nil
}

// Name returns the collection name.
func (s *MilvusStore) Name() string { return s.name }

// Insert writes chunks keyed by their corpus position and flushes them so
// they become visible to Count and Sample.
func (s *MilvusStore) Insert(ctx context.Context, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		if err := core.CheckDim(ch.Embedding); err != nil {
			return 0, fmt.Errorf("chunk %d: %w", ch.ID, err)
		}
		ids[i] = ch.ID
		texts[i] = ch.Text
		vectors[i] = ch.Embedding
	}

	opt := milvusclient.NewColumnBasedInsertOption(s.name).
		WithInt64Column(FieldID, ids).
		WithVarcharColumn(FieldText, texts).
		WithFloatVectorColumn(FieldVector, core.EmbeddingDim, vectors)

	res, err := s.client.Insert(ctx, opt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunks: %w", err)
	}

	task, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.name))
	if err != nil {
		return 0, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return 0, fmt.Errorf("failed waiting for flush: %w", err)
	}

	logger.Debug("Inserted %d chunks into %s", res.InsertCount, s.name)
	return int(res.InsertCount), nil
}

// Count returns the number of rows visible under strong consistency.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	opt := milvusclient.NewQueryOption(s.name).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong)

	rs, err := s.client.Query(ctx, opt)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("failed to read row count: %w", err)
	}
	return int(n), nil
}

// Search runs a cosine ANN search and returns at most k results, best first.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, k int, withVectors bool) ([]core.SearchResult, error) {
	if err := core.CheckDim(vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = core.DefaultTopK
	}

	outputFields := []string{FieldText}
	if withVectors {
		outputFields = append(outputFields, FieldVector)
	}

	opt := milvusclient.NewSearchOption(s.name, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithOutputFields(outputFields...).
		WithAnnParam(index.NewHNSWAnnParam(max(searchEf, k))).
		WithConsistencyLevel(entity.ClStrong)

	result, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", s.name, err)
	}
	if len(result) == 0 {
		return []core.SearchResult{}, nil
	}
	return searchResults(result[0], withVectors)
}

// searchResults assembles one query's hits from the result columns.
func searchResults(rs milvusclient.ResultSet, withVectors bool) ([]core.SearchResult, error) {
	if rs.ResultCount == 0 {
		return []core.SearchResult{}, nil
	}
	if rs.IDs == nil || rs.IDs.Len() != rs.ResultCount || len(rs.Scores) != rs.ResultCount {
		return nil, fmt.Errorf("search returned %d hits with mismatched ids or scores", rs.ResultCount)
	}
	textCol := rs.GetColumn(FieldText)
	if textCol == nil {
		return nil, fmt.Errorf("search result is missing the %s column", FieldText)
	}
	if textCol.Len() != rs.ResultCount {
		return nil, fmt.Errorf("search returned %d texts for %d hits", textCol.Len(), rs.ResultCount)
	}
	var vectorData [][]float32
	if withVectors {
		var err error
		vectorData, err = floatVectors(rs.GetColumn(FieldVector))
		if err != nil {
			return nil, err
		}
		if len(vectorData) != rs.ResultCount {
			return nil, fmt.Errorf("search returned %d vectors for %d hits", len(vectorData), rs.ResultCount)
		}
	}

	results := make([]core.SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read result id %d: %w", i, err)
		}
		text, err := textCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read result text %d: %w", i, err)
		}
		ch := core.Chunk{ID: id, Text: text}
		if withVectors {
			ch.Embedding = vectorData[i]
		}
		results = append(results, core.SearchResult{Chunk: ch, Score: rs.Scores[i]})
	}
	return results, nil
}

// Sample returns up to limit chunks with their embeddings, ordered by ID.
func (s *MilvusStore) Sample(ctx context.Context, limit int) ([]core.Chunk, error) {
	if limit <= 0 {
		return []core.Chunk{}, nil
	}

	opt := milvusclient.NewQueryOption(s.name).
		WithFilter(fmt.Sprintf("%s >= 0", FieldID)).
		WithOutputFields(FieldID, FieldText, FieldVector).
		WithLimit(limit).
		WithConsistencyLevel(entity.ClStrong)

	rs, err := s.client.Query(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", s.name, err)
	}

	return sampleChunks(rs)
}

// sampleChunks assembles query rows into chunks ordered by ID. Every output
// column must carry one value per row.
func sampleChunks(rs milvusclient.ResultSet) ([]core.Chunk, error) {
	if rs.ResultCount == 0 {
		return []core.Chunk{}, nil
	}
	idCol := rs.GetColumn(FieldID)
	textCol := rs.GetColumn(FieldText)
	if idCol == nil || textCol == nil {
		return nil, fmt.Errorf("query result is missing the %s or %s column", FieldID, FieldText)
	}
	vectorData, err := floatVectors(rs.GetColumn(FieldVector))
	if err != nil {
		return nil, err
	}
	n := idCol.Len()
	if textCol.Len() != n || len(vectorData) != n {
		return nil, fmt.Errorf("query returned %d ids, %d texts and %d vectors", n, textCol.Len(), len(vectorData))
	}

	chunks := make([]core.Chunk, 0, n)
	for i := 0; i < n; i++ {
		id, err := idCol.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read id %d: %w", i, err)
		}
		text, err := textCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read text %d: %w", i, err)
		}
		chunks = append(chunks, core.Chunk{ID: id, Text: text, Embedding: vectorData[i]})
	}
	sortChunks(chunks)
	return chunks, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() error {
	return s.client.Close(context.Background())
}

func floatVectors(col column.Column) ([][]float32, error) {
	if col == nil {
		return nil, fmt.Errorf("result is missing the %s column", FieldVector)
	}
	fv, ok := col.(*column.ColumnFloatVector)
	if !ok {
		return nil, fmt.Errorf("unexpected %s column type %T", FieldVector, col)
	}
	data := fv.Data()
	vectors := make([][]float32, len(data))
	for i, v := range data {
		vectors[i] = []float32(v)
	}
	return vectors, nil
}
