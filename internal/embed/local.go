package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/hunterwarburton/webrag/internal/core"
)

// LocalEmbedder is a deterministic, dependency-free embedder for development
// and tests. It hashes lower-cased word unigrams and bigrams into
// core.EmbeddingDim buckets with a signed hash and L2-normalises the result,
// so texts sharing vocabulary land close under cosine similarity.
type LocalEmbedder struct{}

// NewLocalEmbedder creates a new LocalEmbedder instance
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{}
}

// EmbedQuery embeds a single piece of text.
func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hashEmbed(text), nil
}

// EmbedDocuments embeds every text in order.
func (e *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float64, core.EmbeddingDim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	add := func(feature string, weight float64) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(core.EmbeddingDim))
		if sum&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, core.EmbeddingDim)
	if norm == 0 {
		// A text with no words still needs a valid direction.
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
