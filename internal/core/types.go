package core

// EmbeddingDim is the fixed dimensionality of every stored and query embedding.
const EmbeddingDim = 384

// DefaultTopK is the retrieval width used when the caller does not pick one.
const DefaultTopK = 5

// Chunk is a stored, embeddable unit of corpus text.
// ID is the chunk's zero-based position in the corpus it was cut from.
type Chunk struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchResult represents a retrieved chunk with its cosine similarity score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// IndexState describes where a named index is in its lifecycle.
type IndexState int

const (
	IndexAbsent IndexState = iota
	IndexCreating
	IndexReady
	IndexDeleting
	// IndexUnloaded exists with its data but is not serving queries until loaded.
	IndexUnloaded
)

func (s IndexState) String() string {
	switch s {
	case IndexAbsent:
		return "absent"
	case IndexCreating:
		return "creating"
	case IndexReady:
		return "ready"
	case IndexDeleting:
		return "deleting"
	case IndexUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// CheckDim verifies that an embedding has exactly EmbeddingDim components.
func CheckDim(v []float32) error {
	if len(v) != EmbeddingDim {
		return &DimensionError{Got: len(v), Want: EmbeddingDim}
	}
	return nil
}
