package projection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// varianceFloor drops axes whose variance is negligible next to the first.
const varianceFloor = 1e-12

// PCAReducer projects onto the first two principal axes of the fitted sample.
type PCAReducer struct {
	mean   []float64
	axes   [][]float64
	fitted bool
}

// NewPCA creates an unfitted PCA reducer.
func NewPCA() *PCAReducer {
	return &PCAReducer{}
}

// Fit computes the sample mean and up to two principal axes. Each axis is
// oriented so its largest-magnitude loading is positive.
func (p *PCAReducer) Fit(X [][]float64) error {
	n := len(X)
	if n == 0 {
		return ErrEmptyInput
	}
	d := len(X[0])
	data := mat.NewDense(n, d, nil)
	mean := make([]float64, d)
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("projection: row %d has %d components, want %d", i, len(row), d)
		}
		data.SetRow(i, row)
		floats.Add(mean, row)
	}
	floats.Scale(1/float64(n), mean)

	p.mean = mean
	p.axes = nil
	p.fitted = true
	if n < 2 {
		return nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return fmt.Errorf("projection: principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, k := vecs.Dims()
	for j := 0; j < k && j < 2; j++ {
		if vars[j] <= varianceFloor*math.Max(vars[0], 1) {
			break
		}
		axis := mat.Col(nil, j, &vecs)
		orient(axis)
		p.axes = append(p.axes, axis)
	}
	return nil
}

// Transform projects each row onto the fitted axes. Missing axes yield 0.
func (p *PCAReducer) Transform(X [][]float64) ([]Point, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	out := make([]Point, len(X))
	centred := make([]float64, len(p.mean))
	for i, row := range X {
		if len(row) != len(p.mean) {
			return nil, fmt.Errorf("projection: row %d has %d components, want %d", i, len(row), len(p.mean))
		}
		floats.SubTo(centred, row, p.mean)
		for j, axis := range p.axes {
			out[i][j] = floats.Dot(centred, axis)
		}
	}
	return out, nil
}

// orient flips v so that its largest-magnitude component is positive.
func orient(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if v[best] < 0 {
		floats.Scale(-1, v)
	}
}
