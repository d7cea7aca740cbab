package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/hunterwarburton/webrag/internal/chunker"
	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
)

// DefaultMaxVarCharLength bounds the stored chunk text, in bytes.
var DefaultMaxVarCharLength = strconv.Itoa(chunker.MaxChunkBytes)

// State maps the collection's existence and load state onto the index lifecycle.
func (s *MilvusStore) State(ctx context.Context) (core.IndexState, error) {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.name))
	if err != nil {
		return core.IndexAbsent, fmt.Errorf("failed to check if collection exists: %w", err)
	}
	if !exists {
		return core.IndexAbsent, nil
	}

	ls, err := s.client.GetLoadState(ctx, milvusclient.NewGetLoadStateOption(s.name))
	if err != nil {
		return core.IndexAbsent, fmt.Errorf("failed to get load state: %w", err)
	}
	return indexState(ls.State), nil
}

// indexState maps the load state of an existing collection.
func indexState(code entity.LoadStateCode) core.IndexState {
	switch code {
	case entity.LoadStateLoaded:
		return core.IndexReady
	case entity.LoadStateNotLoad:
		return core.IndexUnloaded
	case entity.LoadStateUnloading:
		// HasCollection and GetLoadState disagree while a drop propagates.
		return core.IndexDeleting
	default:
		return core.IndexCreating
	}
}

// Create defines the chunk collection, builds its cosine HNSW index and
// starts loading it. Loading completes asynchronously; callers poll State.
func (s *MilvusStore) Create(ctx context.Context) error {
	schema := &entity.Schema{
		CollectionName: s.name,
		Description:    "Corpus chunks for retrieval",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     FieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": DefaultMaxVarCharLength,
				},
			},
			{
				Name:     FieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(core.EmbeddingDim),
				},
			},
		},
	}

	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.name, schema)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.name, err)
	}

	idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
	idxTask, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.name, FieldVector, idx))
	if err != nil {
		return fmt.Errorf("failed to create index on vector field: %w", err)
	}
	if err := idxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed waiting for vector index: %w", err)
	}

	if err := s.Load(ctx); err != nil {
		return err
	}

	logger.Info("Created collection %s; load in progress", s.name)
	return nil
}

// Load starts loading the collection into memory. It's okay to load even if
// it was already loaded; completion is observed through State.
func (s *MilvusStore) Load(ctx context.Context) error {
	if _, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.name)); err != nil {
		return fmt.Errorf("failed to load collection %s into memory: %w", s.name, err)
	}
	logger.Info("Loading collection %s", s.name)
	return nil
}

// Drop removes the collection.
func (s *MilvusStore) Drop(ctx context.Context) error {
	if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(s.name)); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", s.name, err)
	}
	logger.Info("Dropped collection %s", s.name)
	return nil
}
