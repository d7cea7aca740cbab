package projection

import (
	"context"
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/vecmath"
)

// Defaults for the projector.
const (
	DefaultSampleCap  = 1000
	DefaultNeighbours = 5
)

// QueryIndex embeds questions and finds their nearest stored chunks.
type QueryIndex interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Nearest(ctx context.Context, vec []float32, k int, withVectors bool) ([]core.SearchResult, error)
}

// Request selects the reduction method and an optional question to place.
type Request struct {
	Question string
	Method   Method
}

// Result is the projected sample plus, when a question was given, its
// position and its nearest neighbours.
type Result struct {
	Points []Point
	Labels []string

	Question         string
	QuestionPoint    *Point
	SimilarPoints    []Point
	SimilarLabels    []string
	SimilarityScores []float64
}

// Projector reduces a sample of the index to two dimensions.
type Projector struct {
	store      core.VectorStore
	query      QueryIndex
	sampleCap  int
	neighbours int
}

// NewProjector creates a projector reading at most sampleCap stored vectors.
func NewProjector(store core.VectorStore, query QueryIndex, sampleCap int) *Projector {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	return &Projector{store: store, query: query, sampleCap: sampleCap, neighbours: DefaultNeighbours}
}

// Project fits the selected reducer on the stored sample and, if a question
// is present, places it and its nearest neighbours in the same plane
// without refitting.
func (p *Projector) Project(ctx context.Context, req Request) (*Result, error) {
	sample, err := p.store.Sample(ctx, p.sampleCap)
	if err != nil {
		return nil, core.Upstream("sample index", err)
	}
	if len(sample) == 0 {
		return nil, &core.NotFoundError{Message: core.MsgNoVectors}
	}

	X := vecmath.Matrix(lo.Map(sample, func(c core.Chunk, _ int) []float32 { return c.Embedding }))
	reducer := NewReducer(req.Method)
	if err := reducer.Fit(X); err != nil {
		return nil, err
	}
	points, err := reducer.Transform(X)
	if err != nil {
		return nil, err
	}
	if err := checkFinite(points); err != nil {
		return nil, err
	}
	logger.Debug("Projected %d vectors with %s", len(points), req.Method)

	res := &Result{
		Points: points,
		Labels: lo.Map(sample, func(c core.Chunk, _ int) string { return c.Text }),
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return res, nil
	}

	qvec, err := p.query.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	neighbours, err := p.query.Nearest(ctx, qvec, p.neighbours, true)
	if err != nil {
		return nil, err
	}
	neighbours = lo.Filter(neighbours, func(r core.SearchResult, _ int) bool { return len(r.Chunk.Embedding) > 0 })
	if len(neighbours) == 0 {
		return res, nil
	}

	qpts, err := reducer.Transform([][]float64{vecmath.ToFloat64(qvec)})
	if err != nil {
		return nil, err
	}
	npts, err := reducer.Transform(vecmath.Matrix(lo.Map(neighbours, func(r core.SearchResult, _ int) []float32 { return r.Chunk.Embedding })))
	if err != nil {
		return nil, err
	}
	if err := checkFinite(append(qpts, npts...)); err != nil {
		return nil, err
	}

	res.Question = question
	res.QuestionPoint = &qpts[0]
	res.SimilarPoints = npts
	res.SimilarLabels = lo.Map(neighbours, func(r core.SearchResult, _ int) string { return r.Chunk.Text })
	res.SimilarityScores = lo.Map(neighbours, func(r core.SearchResult, _ int) float64 {
		return vecmath.Cosine32(qvec, r.Chunk.Embedding)
	})
	return res, nil
}

func checkFinite(points []Point) error {
	for _, pt := range points {
		for _, v := range pt {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.Upstream("project vectors", errNonFinite)
			}
		}
	}
	return nil
}
