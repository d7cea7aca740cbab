package core

import "context"

// EmbedService turns text into fixed-length embedding vectors.
type EmbedService interface {
	// EmbedQuery embeds a single piece of text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds many texts, preserving input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the named-index collaborator. Each implementation is bound to
// a single index name at construction time.
type VectorStore interface {
	// Name returns the index name the store operates on.
	Name() string

	// State reports the index lifecycle state as observed right now.
	State(ctx context.Context) (IndexState, error)
	// Create creates the index with the fixed dimension and cosine metric.
	// It may return before the index is usable.
	Create(ctx context.Context) error
	// Drop deletes the index. It may return before deletion has propagated.
	Drop(ctx context.Context) error
	// Load asks the store to serve an existing index. Loading an index that is
	// already served is a no-op. It may return before loading completes.
	Load(ctx context.Context) error

	// Insert bulk-inserts chunks and returns how many were written.
	Insert(ctx context.Context, chunks []Chunk) (int, error)
	// Count returns the number of chunks visible to readers.
	Count(ctx context.Context) (int, error)
	// Search returns up to k nearest chunks by cosine similarity, best first.
	// Embeddings are populated on the returned chunks only when withVectors is set.
	Search(ctx context.Context, vector []float32, k int, withVectors bool) ([]SearchResult, error)
	// Sample returns up to limit stored chunks with their embeddings, ordered by ID.
	Sample(ctx context.Context, limit int) ([]Chunk, error)

	Close() error
}

// Generator is an opaque text-in/text-out generative model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
