package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/vecmath"
)

// MemoryStore is an in-process core.VectorStore using brute-force cosine
// similarity. SettlePolls makes Create and Drop take that many State
// observations to complete, mirroring a remote store that converges
// asynchronously.
type MemoryStore struct {
	mu sync.RWMutex

	name        string
	settlePolls int

	exists        bool
	released      bool
	pendingReady  int
	pendingAbsent int
	chunks        []core.Chunk
}

// NewMemoryStore creates an empty store bound to name.
func NewMemoryStore(name string, settlePolls int) *MemoryStore {
	if settlePolls < 0 {
		settlePolls = 0
	}
	logger.Debug("Initializing in-memory vector store %s (settle polls %d)", name, settlePolls)
	return &MemoryStore{name: name, settlePolls: settlePolls}
}

// Name returns the index name.
func (s *MemoryStore) Name() string { return s.name }

// State reports the lifecycle state, advancing any pending transition by one step.
func (s *MemoryStore) State(ctx context.Context) (core.IndexState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingAbsent > 0 {
		s.pendingAbsent--
		return core.IndexDeleting, nil
	}
	if !s.exists {
		return core.IndexAbsent, nil
	}
	if s.released {
		return core.IndexUnloaded, nil
	}
	if s.pendingReady > 0 {
		s.pendingReady--
		return core.IndexCreating, nil
	}
	return core.IndexReady, nil
}

// Create makes an empty index. It fails if the index exists or is still being deleted.
func (s *MemoryStore) Create(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingAbsent > 0 {
		return fmt.Errorf("index %q is still being deleted", s.name)
	}
	if s.exists {
		return fmt.Errorf("index %q already exists", s.name)
	}
	s.exists = true
	s.released = false
	s.pendingReady = s.settlePolls
	s.chunks = nil
	return nil
}

// Load starts serving a released index again. Its chunks are kept.
func (s *MemoryStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		return fmt.Errorf("index %q not found", s.name)
	}
	if s.released {
		s.released = false
		s.pendingReady = s.settlePolls
	}
	return nil
}

// Release stops serving the index without deleting its chunks, as a store
// restart or an operator release would.
func (s *MemoryStore) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		return fmt.Errorf("index %q not found", s.name)
	}
	s.released = true
	s.pendingReady = 0
	return nil
}

// Drop deletes the index and all of its chunks.
func (s *MemoryStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		return fmt.Errorf("index %q not found", s.name)
	}
	s.exists = false
	s.released = false
	s.pendingReady = 0
	s.pendingAbsent = s.settlePolls
	s.chunks = nil
	return nil
}

// Insert appends chunks. The index must be ready.
func (s *MemoryStore) Insert(ctx context.Context, chunks []core.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return 0, err
	}
	for _, ch := range chunks {
		if err := core.CheckDim(ch.Embedding); err != nil {
			return 0, fmt.Errorf("chunk %d: %w", ch.ID, err)
		}
	}
	for _, ch := range chunks {
		s.chunks = append(s.chunks, copyChunk(ch))
	}
	sortChunks(s.chunks)
	return len(chunks), nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists {
		return 0, fmt.Errorf("index %q not found", s.name)
	}
	return len(s.chunks), nil
}

// Search ranks every chunk by cosine similarity. Equal scores keep ascending ID order.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int, withVectors bool) ([]core.SearchResult, error) {
	if err := core.CheckDim(vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = core.DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readyLocked(); err != nil {
		return nil, err
	}

	query := vecmath.ToFloat64(vector)
	results := make([]core.SearchResult, len(s.chunks))
	for i, ch := range s.chunks {
		score := vecmath.Cosine(vecmath.ToFloat64(ch.Embedding), query)
		out := core.Chunk{ID: ch.ID, Text: ch.Text}
		if withVectors {
			out.Embedding = append([]float32(nil), ch.Embedding...)
		}
		results[i] = core.SearchResult{Chunk: out, Score: float32(score)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Sample returns up to limit chunks with embeddings, ordered by ID.
func (s *MemoryStore) Sample(ctx context.Context, limit int) ([]core.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	if limit > len(s.chunks) {
		limit = len(s.chunks)
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]core.Chunk, limit)
	for i := 0; i < limit; i++ {
		out[i] = copyChunk(s.chunks[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	logger.Debug("Closing in-memory vector store %s", s.name)
	return nil
}

func (s *MemoryStore) readyLocked() error {
	if !s.exists {
		return fmt.Errorf("index %q not found", s.name)
	}
	if s.released || s.pendingReady > 0 {
		return fmt.Errorf("index %q is not ready", s.name)
	}
	return nil
}

func copyChunk(ch core.Chunk) core.Chunk {
	ch.Embedding = append([]float32(nil), ch.Embedding...)
	return ch
}

func sortChunks(chunks []core.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
}
