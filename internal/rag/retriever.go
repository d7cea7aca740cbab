package rag

import (
	"context"
	"sort"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/metrics"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	store    core.VectorStore
	embedder core.EmbedService
	topK     int
}

// NewRetriever creates a retriever. topK <= 0 selects core.DefaultTopK.
func NewRetriever(store core.VectorStore, embedder core.EmbedService, topK int) *Retriever {
	if topK <= 0 {
		topK = core.DefaultTopK
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Embed embeds a query and checks its dimension.
func (r *Retriever) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("embed").Inc()
		return nil, core.Upstream("embed query", err)
	}
	if err := core.CheckDim(vec); err != nil {
		return nil, core.Upstream("embed query", err)
	}
	return vec, nil
}

// Retrieve returns up to k chunks ranked by descending cosine similarity.
// k <= 0 uses the retriever's default width.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]core.SearchResult, error) {
	vec, err := r.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.Nearest(ctx, vec, k, false)
}

// Nearest searches the store for the k chunks closest to vec.
func (r *Retriever) Nearest(ctx context.Context, vec []float32, k int, withVectors bool) ([]core.SearchResult, error) {
	if k <= 0 {
		k = r.topK
	}
	results, err := r.store.Search(ctx, vec, k, withVectors)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("search").Inc()
		return nil, core.Upstream("search index", err)
	}
	if results == nil {
		results = []core.SearchResult{}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	logger.Debug("Retrieved %d chunks (k=%d)", len(results), k)
	return results, nil
}
