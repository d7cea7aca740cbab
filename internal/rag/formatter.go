package rag

import (
	"strings"

	"github.com/samber/lo"

	"github.com/hunterwarburton/webrag/internal/core"
)

// ContextSeparator joins retrieved chunk texts into one context block.
const ContextSeparator = "\n\n"

// FormatContext concatenates the retrieved texts in result order.
func FormatContext(results []core.SearchResult) string {
	return strings.Join(Texts(results), ContextSeparator)
}

// Texts returns the chunk texts of results in order.
func Texts(results []core.SearchResult) []string {
	return lo.Map(results, func(r core.SearchResult, _ int) string { return r.Chunk.Text })
}
