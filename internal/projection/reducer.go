// Package projection reduces stored embeddings to two dimensions for
// visualisation and relates a question to its nearest chunks.
package projection

import (
	"errors"

	"github.com/hunterwarburton/webrag/internal/core"
)

// Method selects a dimensionality reduction technique.
type Method int

const (
	PCA Method = iota
	TSNE
)

func (m Method) String() string {
	switch m {
	case PCA:
		return "PCA"
	case TSNE:
		return "TSNE"
	default:
		return "unknown"
	}
}

// ParseMethod maps a request value onto a Method. Only the exact names
// "PCA" and "TSNE" are accepted.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "PCA":
		return PCA, nil
	case "TSNE":
		return TSNE, nil
	}
	return 0, &core.ValidationError{Message: core.MsgInvalidReduction}
}

// Point is a position in the projected plane.
type Point = [2]float64

// Reducer is fitted once on a sample and then maps vectors into the fitted plane.
type Reducer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([]Point, error)
}

// ErrNotFitted is returned by Transform before Fit.
var ErrNotFitted = errors.New("projection: reducer is not fitted")

// ErrEmptyInput is returned by Fit on an empty sample.
var ErrEmptyInput = errors.New("projection: no vectors to fit")

var errNonFinite = errors.New("projection: non-finite coordinate")

// NewReducer returns a fresh reducer for m.
func NewReducer(m Method) Reducer {
	switch m {
	case TSNE:
		return NewTSNE()
	default:
		return NewPCA()
	}
}
