// Package vecmath holds the small amount of vector arithmetic shared by the
// stores and the projector.
package vecmath

import (
	"gonum.org/v1/gonum/floats"
)

// ToFloat64 widens a float32 vector.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Matrix widens a set of float32 vectors into row-major float64 rows.
func Matrix(vs [][]float32) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = ToFloat64(v)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Mismatched lengths or a zero vector yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	s := floats.Dot(a, b) / (na * nb)
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// Cosine32 is Cosine for float32 inputs, computed in float64.
func Cosine32(a, b []float32) float64 {
	return Cosine(ToFloat64(a), ToFloat64(b))
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
