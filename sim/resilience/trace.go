// Package resilience computes resilience metrics from LCC traces: the
// resilience integral, the collapse point, averaged curves, and the
// per-candidate impact labels used as ranking ground truth.
package resilience

import (
	"gonum.org/v1/gonum/stat"
)

// DefaultCollapseThreshold is the LCC fraction below which a network counts as collapsed.
const DefaultCollapseThreshold = 0.2

// Point is one trace sample.
type Point struct {
	Step        int     `json:"step"`
	LCCFraction float64 `json:"lcc_fraction"`
}

// Trace is the ordered LCC-fraction record of a run, one point per step
// including the initial state, so a run with budget b has b+1 points.
type Trace []Point

// NewTrace builds a trace from consecutive LCC fractions starting at step 0.
func NewTrace(values ...float64) Trace {
	tr := make(Trace, len(values))
	for i, v := range values {
		tr[i] = Point{Step: i, LCCFraction: v}
	}
	return tr
}

// Budget returns the number of steps the trace covers.
func (tr Trace) Budget() int {
	if len(tr) == 0 {
		return 0
	}
	return len(tr) - 1
}

// Values returns the LCC fractions in step order.
func (tr Trace) Values() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.LCCFraction
	}
	return out
}

// Integral integrates the LCC fraction over q in [0,1] with the trapezoid rule
// on the budget+1 evenly spaced points. A single point returns its value and an
// empty trace returns 0. Constant traces integrate to their value exactly.
func Integral(tr Trace) float64 {
	if len(tr) == 0 {
		return 0
	}
	y0 := tr[0].LCCFraction
	if len(tr) == 1 {
		return y0
	}
	// Integrate the offset from y0 so the constant part contributes exactly y0.
	sum := 0.0
	for i := 1; i < len(tr); i++ {
		sum += (tr[i-1].LCCFraction - y0) + (tr[i].LCCFraction - y0)
	}
	return y0 + sum/(2*float64(tr.Budget()))
}

// CollapseFraction returns the first q = step/budget at which the LCC fraction
// is below threshold, or nil if the trace never drops below it.
func CollapseFraction(tr Trace, threshold float64) *float64 {
	for i, p := range tr {
		if p.LCCFraction < threshold {
			q := 0.0
			if b := tr.Budget(); b > 0 {
				q = float64(i) / float64(b)
			}
			return &q
		}
	}
	return nil
}

// AverageTraces returns the pointwise mean of traces. Shorter traces are
// padded with their last value.
func AverageTraces(traces []Trace) Trace {
	longest := 0
	for _, tr := range traces {
		if len(tr) > longest {
			longest = len(tr)
		}
	}
	out := make(Trace, longest)
	col := make([]float64, 0, len(traces))
	for i := 0; i < longest; i++ {
		col = col[:0]
		for _, tr := range traces {
			switch {
			case len(tr) == 0:
				continue
			case i < len(tr):
				col = append(col, tr[i].LCCFraction)
			default:
				col = append(col, tr[len(tr)-1].LCCFraction)
			}
		}
		out[i] = Point{Step: i, LCCFraction: stat.Mean(col, nil)}
	}
	return out
}

// MeanStd returns the population mean and standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(xs, nil)
}
