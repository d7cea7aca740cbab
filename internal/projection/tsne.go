package projection

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hunterwarburton/webrag/internal/vecmath"
)

// t-SNE parameters.
const (
	DefaultPerplexity   = 30.0
	DefaultSeed         = 42
	DefaultIterations   = 1000
	DefaultLearningRate = 200.0

	exaggeration      = 12.0
	exaggerationIters = 250
	initialMomentum   = 0.5
	finalMomentum     = 0.8
	minGain           = 0.01
	entropyTolerance  = 1e-5
	maxBetaSearch     = 50
	probFloor         = 1e-12
)

// TSNEReducer is an exact t-SNE embedding with a deterministic out-of-sample
// mapping.
type TSNEReducer struct {
	Perplexity   float64
	Iterations   int
	LearningRate float64
	Seed         int64

	perplexity float64
	data       [][]float64
	embedding  []Point
	fitted     bool
}

// NewTSNE creates an unfitted t-SNE reducer with the default parameters.
func NewTSNE() *TSNEReducer {
	return &TSNEReducer{
		Perplexity:   DefaultPerplexity,
		Iterations:   DefaultIterations,
		LearningRate: DefaultLearningRate,
		Seed:         DefaultSeed,
	}
}

// EffectivePerplexity returns the perplexity used by the last Fit,
// min(Perplexity, n-1).
func (t *TSNEReducer) EffectivePerplexity() float64 {
	return t.perplexity
}

// Embedding returns the fitted coordinates in input order.
func (t *TSNEReducer) Embedding() []Point {
	return append([]Point(nil), t.embedding...)
}

// Fit embeds X into the plane.
func (t *TSNEReducer) Fit(X [][]float64) error {
	n := len(X)
	if n == 0 {
		return ErrEmptyInput
	}
	d := len(X[0])
	t.data = make([][]float64, n)
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("projection: row %d has %d components, want %d", i, len(row), d)
		}
		t.data[i] = append([]float64(nil), row...)
	}

	t.perplexity = math.Min(t.Perplexity, float64(n-1))
	t.fitted = true
	if n == 1 {
		t.perplexity = 0
		t.embedding = []Point{{0, 0}}
		return nil
	}

	P := t.jointProbabilities()
	t.embedding = t.optimise(P)
	for _, y := range t.embedding {
		if math.IsNaN(y[0]) || math.IsNaN(y[1]) || math.IsInf(y[0], 0) || math.IsInf(y[1], 0) {
			return fmt.Errorf("projection: t-SNE diverged")
		}
	}
	return nil
}

// Transform maps rows into the fitted plane. A row equal to a fitted vector
// lands on that vector's coordinate; any other row lands on the affinity
// weighted mean of the fitted coordinates.
func (t *TSNEReducer) Transform(X [][]float64) ([]Point, error) {
	if !t.fitted {
		return nil, ErrNotFitted
	}
	out := make([]Point, len(X))
	dist := make([]float64, len(t.data))
	for i, row := range X {
		if len(row) != len(t.data[0]) {
			return nil, fmt.Errorf("projection: row %d has %d components, want %d", i, len(row), len(t.data[0]))
		}
		exact := -1
		for j, fitted := range t.data {
			dist[j] = vecmath.SquaredDistance(row, fitted)
			if dist[j] == 0 && exact < 0 {
				exact = j
			}
		}
		if exact >= 0 || len(t.data) == 1 {
			out[i] = t.embedding[max(exact, 0)]
			continue
		}

		w := affinities(dist, -1, t.perplexity)
		for j, y := range t.embedding {
			out[i][0] += w[j] * y[0]
			out[i][1] += w[j] * y[1]
		}
	}
	return out, nil
}

// jointProbabilities returns the symmetrised input affinities as a dense n×n matrix.
func (t *TSNEReducer) jointProbabilities() [][]float64 {
	n := len(t.data)
	D := make([][]float64, n)
	for i := range D {
		D[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := vecmath.SquaredDistance(t.data[i], t.data[j])
			D[i][j] = d
			D[j][i] = d
		}
	}

	cond := make([][]float64, n)
	for i := 0; i < n; i++ {
		cond[i] = affinities(D[i], i, t.perplexity)
	}

	P := make([][]float64, n)
	for i := range P {
		P[i] = make([]float64, n)
	}
	scale := 1 / (2 * float64(n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			P[i][j] = math.Max((cond[i][j]+cond[j][i])*scale, probFloor)
		}
	}
	return P
}

// affinities returns Gaussian conditional probabilities over dist whose
// entropy matches log(perplexity). Entry skip, if in range, is excluded.
func affinities(dist []float64, skip int, perplexity float64) []float64 {
	n := len(dist)
	p := make([]float64, n)

	minD := math.Inf(1)
	for j, d := range dist {
		if j != skip && d < minD {
			minD = d
		}
	}

	target := math.Log(math.Max(perplexity, 1))
	beta := 1.0
	betaMin, betaMax := math.Inf(-1), math.Inf(1)

	for try := 0; try < maxBetaSearch; try++ {
		var sum, weighted float64
		for j, d := range dist {
			if j == skip {
				p[j] = 0
				continue
			}
			shifted := d - minD
			p[j] = math.Exp(-shifted * beta)
			sum += p[j]
			weighted += shifted * p[j]
		}
		entropy := math.Log(sum) + beta*weighted/sum
		for j := range p {
			p[j] /= sum
		}

		diff := entropy - target
		if math.Abs(diff) < entropyTolerance {
			break
		}
		if diff > 0 {
			betaMin = beta
			if math.IsInf(betaMax, 1) {
				beta *= 2
			} else {
				beta = (beta + betaMax) / 2
			}
		} else {
			betaMax = beta
			if math.IsInf(betaMin, -1) {
				beta /= 2
			} else {
				beta = (beta + betaMin) / 2
			}
		}
	}
	return p
}

// optimise runs gradient descent on the Kullback-Leibler divergence between
// P and the Student-t affinities of the embedding.
func (t *TSNEReducer) optimise(P [][]float64) []Point {
	n := len(P)
	rng := rand.New(rand.NewSource(t.Seed))

	Y := make([]Point, n)
	for i := range Y {
		Y[i] = Point{rng.NormFloat64() * 1e-4, rng.NormFloat64() * 1e-4}
	}
	update := make([]Point, n)
	gains := make([]Point, n)
	for i := range gains {
		gains[i] = Point{1, 1}
	}

	num := make([][]float64, n)
	for i := range num {
		num[i] = make([]float64, n)
	}
	grad := make([]Point, n)

	for iter := 0; iter < t.Iterations; iter++ {
		exag, momentum := 1.0, finalMomentum
		if iter < exaggerationIters {
			exag, momentum = exaggeration, initialMomentum
		}

		var z float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := Y[i][0] - Y[j][0]
				dy := Y[i][1] - Y[j][1]
				q := 1 / (1 + dx*dx + dy*dy)
				num[i][j] = q
				num[j][i] = q
				z += 2 * q
			}
		}

		for i := 0; i < n; i++ {
			grad[i] = Point{}
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				q := math.Max(num[i][j]/z, probFloor)
				mult := (exag*P[i][j] - q) * num[i][j]
				grad[i][0] += 4 * mult * (Y[i][0] - Y[j][0])
				grad[i][1] += 4 * mult * (Y[i][1] - Y[j][1])
			}
		}

		var mean Point
		for i := 0; i < n; i++ {
			for c := 0; c < 2; c++ {
				if (grad[i][c] > 0) != (update[i][c] > 0) {
					gains[i][c] += 0.2
				} else {
					gains[i][c] *= 0.8
				}
				gains[i][c] = math.Max(gains[i][c], minGain)
				update[i][c] = momentum*update[i][c] - t.LearningRate*gains[i][c]*grad[i][c]
				Y[i][c] += update[i][c]
				mean[c] += Y[i][c]
			}
		}
		mean[0] /= float64(n)
		mean[1] /= float64(n)
		for i := range Y {
			Y[i][0] -= mean[0]
			Y[i][1] -= mean[1]
		}
	}
	return Y
}
