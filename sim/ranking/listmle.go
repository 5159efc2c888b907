package ranking

import "math"

// ListMLE is the Plackett-Luce negative log-likelihood of the ground-truth
// permutation. For an example with candidates ordered by descending label,
//
//	loss = sum_i [ logsumexp(z_{pi_i..pi_n}) - z_{pi_i} ],  z = score / Temperature
//
// Lower temperatures sharpen the distribution. Each term is non-negative, so
// the loss is non-negative, and it is invariant to adding a constant to every
// score of an example.
type ListMLE struct {
	Temperature float64
}

// Name implements Loss.
func (ListMLE) Name() string { return LossListMLE }

// Compute implements Loss.
func (l ListMLE) Compute(b Batch) (Output, error) {
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
		loss, grad := listMLEExample(ex)
		if !finite(loss) {
			out.Unstable = true
			continue
		}
		out.PerExample[row] = loss
		for i, col := range ex.cols {
			out.Grad[row][col] = grad[i] / temp
		}
		out.ValidExamples++
	}
	out.finish()
	return out, nil
}

// listMLEExample returns the loss and dLoss/dz (in the example's column
// order) for one example with at least two candidates.
func listMLEExample(ex example) (float64, []float64) {
	order := groundTruthOrder(ex.labels)
	n := len(order)
	zs := make([]float64, n)
	for i, p := range order {
		zs[i] = ex.z[p]
	}

	// Suffix log-sum-exp with a running max: lse[i] = log sum_{j>=i} exp(zs[j]).
	lse := make([]float64, n)
	runMax := math.Inf(-1)
	sum := 0.0
	for i := n - 1; i >= 0; i-- {
		if zs[i] > runMax {
			sum = sum*math.Exp(runMax-zs[i]) + 1
			runMax = zs[i]
		} else {
			sum += math.Exp(zs[i] - runMax)
		}
		lse[i] = runMax + math.Log(sum)
	}

	loss := 0.0
	for i := 0; i < n; i++ {
		loss += math.Max(0, lse[i]-zs[i])
	}

	// d/dz_k = -1 + sum_{i<=k} exp(z_k - lse_i); every term is at most 1.
	grad := make([]float64, n)
	for k := 0; k < n; k++ {
		g := -1.0
		for i := 0; i <= k; i++ {
			g += math.Exp(zs[k] - lse[i])
		}
		grad[order[k]] = g
	}
	return loss, grad
}
