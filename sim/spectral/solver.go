package spectral

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// SolverLanczos is restarted Lanczos with full reorthogonalisation.
	SolverLanczos = "lanczos"
	// SolverDense factorises the full Laplacian.
	SolverDense = "dense"
)

// ValidSolvers lists the accepted solver names.
var ValidSolvers = map[string]bool{
	SolverLanczos: true,
	SolverDense:   true,
}

// SolverConfig controls the Fiedler eigensolver.
type SolverConfig struct {
	Solver         string  `yaml:"solver"`
	MaxIterations  int     `yaml:"max_iterations" validate:"gte=1"`
	Tolerance      float64 `yaml:"tolerance" validate:"gt=0"`
	KrylovDim      int     `yaml:"krylov_dim" validate:"gte=2"`
	DenseThreshold int     `yaml:"dense_threshold" validate:"gte=0"`
}

// DefaultSolverConfig returns the solver defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Solver:        SolverLanczos,
		MaxIterations: 3000,
		Tolerance:     1e-8,
		KrylovDim:     60,
	}
}

// Eigenpair is the second-smallest eigenpair of a Laplacian.
// Vector has unit norm and its largest-magnitude entry is positive.
type Eigenpair struct {
	Value      float64
	Vector     []float64
	Iterations int
	Residual   float64
}

// NonConvergenceError reports that the iterative solver exhausted its
// iteration budget before the residual met the tolerance.
type NonConvergenceError struct {
	Iterations int
	Residual   float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("eigensolver did not converge after %d iterations (residual %.3g)", e.Iterations, e.Residual)
}

// Fiedler computes the second-smallest eigenpair of l. The operator must
// describe a connected graph. Dimensions below 2 yield a zero vector.
func Fiedler(l *Laplacian, cfg SolverConfig, rng *rand.Rand) (Eigenpair, error) {
	n := l.Dim()
	if n < 2 {
		return Eigenpair{Vector: make([]float64, n)}, nil
	}
	if cfg.Solver == SolverDense || n <= cfg.DenseThreshold {
		return denseFiedler(l)
	}
	return lanczosFiedler(l, cfg, rng)
}

func denseFiedler(l *Laplacian) (Eigenpair, error) {
	var es mat.EigenSym
	if !es.Factorize(l.Dense(), true) {
		return Eigenpair{}, &NonConvergenceError{Residual: math.Inf(1)}
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	v := mat.Col(nil, 1, &vecs)
	orient(v)
	return Eigenpair{Value: values[1], Vector: v, Residual: residual(l, values[1], v)}, nil
}

// lanczosFiedler runs Lanczos on L restricted to the complement of the constant
// vector, so the smallest Ritz value approximates lambda_2. Each restart
// begins from the previous Ritz vector.
func lanczosFiedler(l *Laplacian, cfg SolverConfig, rng *rand.Rand) (Eigenpair, error) {
	n := l.Dim()
	m := cfg.KrylovDim
	if m > n-1 {
		m = n - 1
	}
	scale := math.Max(1, l.NormBound())
	inv := 1 / math.Sqrt(float64(n))

	q := make([]float64, n)
	for i := range q {
		q[i] = rng.NormFloat64()
	}
	if !deflateNormalize(q, inv) {
		floats.Scale(0, q)
		q[0], q[1] = 1, -1
		deflateNormalize(q, inv)
	}

	w := make([]float64, n)
	total := 0
	res := math.Inf(1)
	for total < cfg.MaxIterations {
		basis := [][]float64{q}
		var alpha, beta []float64
		for j := 0; j < m && total < cfg.MaxIterations; j++ {
			l.MulVec(w, basis[j])
			total++
			alpha = append(alpha, floats.Dot(basis[j], w))
			// Two passes of Gram-Schmidt keep the basis orthogonal to the
			// constant vector and to itself.
			for pass := 0; pass < 2; pass++ {
				removeConstant(w, inv)
				for _, b := range basis {
					floats.AddScaled(w, -floats.Dot(b, w), b)
				}
			}
			b := floats.Norm(w, 2)
			if j == m-1 || b <= 1e-12*scale {
				break
			}
			beta = append(beta, b)
			next := make([]float64, n)
			floats.ScaleTo(next, 1/b, w)
			basis = append(basis, next)
		}

		k := len(alpha)
		t := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			t.SetSym(i, i, alpha[i])
			if i+1 < k {
				t.SetSym(i, i+1, beta[i])
			}
		}
		var es mat.EigenSym
		if !es.Factorize(t, true) {
			return Eigenpair{}, &NonConvergenceError{Iterations: total, Residual: res}
		}
		theta := es.Values(nil)[0]
		var s mat.Dense
		es.VectorsTo(&s)

		ritz := make([]float64, n)
		for i := 0; i < k; i++ {
			floats.AddScaled(ritz, s.At(i, 0), basis[i])
		}
		if !deflateNormalize(ritz, inv) {
			break
		}
		res = residual(l, theta, ritz)
		if res <= cfg.Tolerance*scale {
			orient(ritz)
			return Eigenpair{Value: theta, Vector: ritz, Iterations: total, Residual: res}, nil
		}
		q = ritz
	}
	return Eigenpair{}, &NonConvergenceError{Iterations: total, Residual: res}
}

// residual returns ||L v - theta v||.
func residual(l *Laplacian, theta float64, v []float64) float64 {
	r := make([]float64, len(v))
	l.MulVec(r, v)
	floats.AddScaled(r, -theta, v)
	return floats.Norm(r, 2)
}

// removeConstant projects out the unit constant vector whose entries are inv.
func removeConstant(x []float64, inv float64) {
	c := floats.Sum(x) * inv
	for i := range x {
		x[i] -= c * inv
	}
}

// deflateNormalize removes the constant component and scales x to unit norm.
// Returns false if nothing is left.
func deflateNormalize(x []float64, inv float64) bool {
	removeConstant(x, inv)
	norm := floats.Norm(x, 2)
	if norm < 1e-14 {
		return false
	}
	floats.Scale(1/norm, x)
	return true
}

// orient flips v so its largest-magnitude entry (lowest index on ties) is positive.
func orient(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best])+1e-12 {
			best = i
		}
	}
	if v[best] < 0 {
		floats.Scale(-1, v)
	}
}
