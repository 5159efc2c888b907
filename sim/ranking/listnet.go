package ranking

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ListNet is the top-one cross entropy between softmax(labels) and
// softmax(scores / Temperature) over the valid candidates of each example.
type ListNet struct {
	Temperature float64
}

// Name implements Loss.
func (ListNet) Name() string { return LossListNet }

// Compute implements Loss.
func (l ListNet) Compute(b Batch) (Output, error) {
	if err := b.Validate(); err != nil {
		return Output{}, err
	}
	temp := l.Temperature
	if temp <= 0 {
		temp = 1
	}
	out := newOutput(b)
	for row := range b.Scores {
		ex := b.example(row, temp)
		out.Unstable = out.Unstable || ex.unstable
		if len(ex.z) < 2 {
			continue
		}
		target := softmax(ex.labels)
		zLSE := floats.LogSumExp(ex.z)
		loss := 0.0
		for i, z := range ex.z {
			logP := z - zLSE
			loss -= target[i] * logP
			out.Grad[row][ex.cols[i]] = (math.Exp(logP) - target[i]) / temp
		}
		if !finite(loss) {
			out.Unstable = true
			for _, col := range ex.cols {
				out.Grad[row][col] = 0
			}
			continue
		}
		out.PerExample[row] = math.Max(0, loss)
		out.ValidExamples++
	}
	out.finish()
	return out, nil
}

func softmax(xs []float64) []float64 {
	lse := floats.LogSumExp(xs)
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Exp(x - lse)
	}
	return out
}
