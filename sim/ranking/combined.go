package ranking

// Combined is Alpha*ListMLE + Beta*ListNet + Gamma*PairwiseMargin. Terms with
// zero weight are not evaluated.
type Combined struct {
	Alpha, Beta, Gamma float64
	ListMLE            ListMLE
	ListNet            ListNet
	Margin             PairwiseMargin
}

// Name implements Loss.
func (Combined) Name() string { return LossCombined }

// Compute implements Loss. PerExample and Grad are the weighted sums of the
// component outputs; ValidExamples is the largest component count.
func (c Combined) Compute(b Batch) (Output, error) {
	if err := b.Validate(); err != nil {
		return Output{}, err
	}
	out := newOutput(b)
	out.Components = make(map[string]float64)
	parts := []struct {
		weight float64
		loss   Loss
	}{
		{c.Alpha, c.ListMLE},
		{c.Beta, c.ListNet},
		{c.Gamma, c.Margin},
	}
	for _, p := range parts {
		if p.weight <= 0 {
			continue
		}
		o, err := p.loss.Compute(b)
		if err != nil {
			return Output{}, err
		}
		out.Components[p.loss.Name()] = o.Loss
		out.Loss += p.weight * o.Loss
		for i := range o.PerExample {
			out.PerExample[i] += p.weight * o.PerExample[i]
			for j := range o.Grad[i] {
				out.Grad[i][j] += p.weight * o.Grad[i][j]
			}
		}
		if o.ValidExamples > out.ValidExamples {
			out.ValidExamples = o.ValidExamples
		}
		out.Unstable = out.Unstable || o.Unstable
	}
	out.NoSignal = out.ValidExamples == 0
	return out, nil
}
