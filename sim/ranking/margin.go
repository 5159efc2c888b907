package ranking

// PairwiseMargin is the mean hinge loss max(0, Margin - (s_i - s_j)) over all
// valid pairs where candidate i has the strictly higher label. Pairs with
// equal labels carry no preference and are skipped.
type PairwiseMargin struct {
	Margin float64
}

// Name implements Loss.
func (PairwiseMargin) Name() string { return LossMargin }

// Compute implements Loss.
func (m PairwiseMargin) Compute(b Batch) (Output, error) {
	if err := b.Validate(); err != nil {
		return Output{}, err
	}
	out := newOutput(b)
	for row := range b.Scores {
		ex := b.example(row, 1)
		out.Unstable = out.Unstable || ex.unstable
		if len(ex.z) < 2 {
			continue
		}
		pairs := 0
		loss := 0.0
		grad := make([]float64, len(ex.z))
		for i := range ex.z {
			for j := range ex.z {
				if ex.labels[i] <= ex.labels[j] {
					continue
				}
				pairs++
				if h := m.Margin - (ex.z[i] - ex.z[j]); h > 0 {
					loss += h
					grad[i]--
					grad[j]++
				}
			}
		}
		if pairs == 0 {
			continue
		}
		loss /= float64(pairs)
		if !finite(loss) {
			out.Unstable = true
			continue
		}
		out.PerExample[row] = loss
		for i, col := range ex.cols {
			out.Grad[row][col] = grad[i] / float64(pairs)
		}
		out.ValidExamples++
	}
	out.finish()
	return out, nil
}
