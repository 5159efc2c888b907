// Package ranking implements listwise ranking losses over padded score and
// label tensors, and the ranking quality metrics used to assess them.
//
// Every loss is a pure function of its Batch: no state is retained between
// calls and concurrent calls on disjoint batches are safe.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Loss names.
const (
	LossListMLE  = "listmle"
	LossListNet  = "listnet"
	LossMargin   = "margin"
	LossCombined = "combined"
)

// ValidLosses lists the accepted loss names.
var ValidLosses = map[string]bool{
	LossListMLE:  true,
	LossListNet:  true,
	LossMargin:   true,
	LossCombined: true,
}

// Config selects and parameterises a loss.
type Config struct {
	Loss        string  `yaml:"loss"`
	Temperature float64 `yaml:"temperature" validate:"gt=0"`
	Margin      float64 `yaml:"margin" validate:"gte=0"`
	Alpha       float64 `yaml:"alpha" validate:"gte=0"`
	Beta        float64 `yaml:"beta" validate:"gte=0"`
	Gamma       float64 `yaml:"gamma" validate:"gte=0"`
}

// DefaultConfig returns ListMLE at temperature 1. The combined weights
// default to pure ListMLE.
func DefaultConfig() Config {
	return Config{Loss: LossListMLE, Temperature: 1, Margin: 1, Alpha: 1}
}

// Batch is a padded [batch, max_candidates] pair of score and label tensors.
// Mask marks real candidates; a nil Mask treats every entry as valid.
type Batch struct {
	Scores [][]float64 `json:"scores"`
	Labels [][]float64 `json:"labels"`
	Mask   [][]bool    `json:"mask,omitempty"`
}

// Output is the result of a loss evaluation.
type Output struct {
	// Loss is the batch loss, normalised by ValidExamples.
	Loss float64 `json:"loss"`
	// PerExample holds each example's unnormalised loss; 0 for examples
	// with fewer than two valid candidates.
	PerExample []float64 `json:"per_example"`
	// Grad is dLoss/dScores with the shape of Scores; masked entries are 0.
	Grad [][]float64 `json:"-"`
	// ValidExamples counts examples with at least two valid candidates.
	ValidExamples int `json:"valid_examples"`
	// Unstable is set when non-finite inputs or intermediates were masked out.
	Unstable bool `json:"unstable"`
	// NoSignal is set when no example could be ranked; Loss is then 0.
	NoSignal bool `json:"no_signal"`
	// Components holds the weighted parts of a combined loss.
	Components map[string]float64 `json:"components,omitempty"`
}

// Loss computes a ranking loss over a batch.
type Loss interface {
	Name() string
	Compute(b Batch) (Output, error)
}

// NewLoss builds the loss named in cfg.
// Panics on unknown name (validation should catch this before reaching here).
func NewLoss(cfg Config) Loss {
	switch cfg.Loss {
	case LossListMLE, "":
		return ListMLE{Temperature: cfg.Temperature}
	case LossListNet:
		return ListNet{Temperature: cfg.Temperature}
	case LossMargin:
		return PairwiseMargin{Margin: cfg.Margin}
	case LossCombined:
		return Combined{
			Alpha: cfg.Alpha, Beta: cfg.Beta, Gamma: cfg.Gamma,
			ListMLE: ListMLE{Temperature: cfg.Temperature},
			ListNet: ListNet{Temperature: cfg.Temperature},
			Margin:  PairwiseMargin{Margin: cfg.Margin},
		}
	default:
		panic(fmt.Sprintf("unknown loss %q", cfg.Loss))
	}
}

// ShapeError reports a tensor whose shape differs from Scores.
type ShapeError struct {
	Field string
	Row   int
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s has %d rows, want %d", e.Field, e.Got, e.Want)
	}
	return fmt.Sprintf("%s row %d has %d columns, want %d", e.Field, e.Row, e.Got, e.Want)
}

// Validate checks that Labels and Mask match the shape of Scores.
func (b Batch) Validate() error {
	if len(b.Labels) != len(b.Scores) {
		return &ShapeError{Field: "labels", Row: -1, Want: len(b.Scores), Got: len(b.Labels)}
	}
	if b.Mask != nil && len(b.Mask) != len(b.Scores) {
		return &ShapeError{Field: "mask", Row: -1, Want: len(b.Scores), Got: len(b.Mask)}
	}
	for i, row := range b.Scores {
		if len(b.Labels[i]) != len(row) {
			return &ShapeError{Field: "labels", Row: i, Want: len(row), Got: len(b.Labels[i])}
		}
		if b.Mask != nil && len(b.Mask[i]) != len(row) {
			return &ShapeError{Field: "mask", Row: i, Want: len(row), Got: len(b.Mask[i])}
		}
	}
	return nil
}

// example is the unmasked, finite part of one batch row. z holds scores
// divided by the temperature.
type example struct {
	cols     []int
	z        []float64
	labels   []float64
	unstable bool
}

func (b Batch) example(row int, temperature float64) example {
	var ex example
	for col, s := range b.Scores[row] {
		if b.Mask != nil && !b.Mask[row][col] {
			continue
		}
		y := b.Labels[row][col]
		z := s / temperature
		if !finite(s) || !finite(y) || !finite(z) {
			ex.unstable = true
			continue
		}
		ex.cols = append(ex.cols, col)
		ex.z = append(ex.z, z)
		ex.labels = append(ex.labels, y)
	}
	return ex
}

// groundTruthOrder returns positions sorted by label descending, ties by
// position ascending.
func groundTruthOrder(labels []float64) []int {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return labels[order[a]] > labels[order[b]] })
	return order
}

// newOutput allocates an Output with zeroed gradient rows shaped like scores.
func newOutput(b Batch) Output {
	out := Output{PerExample: make([]float64, len(b.Scores)), Grad: make([][]float64, len(b.Scores))}
	for i, row := range b.Scores {
		out.Grad[i] = make([]float64, len(row))
	}
	return out
}

// finish normalises the summed loss and gradients by the number of valid examples.
func (o *Output) finish() {
	if o.ValidExamples == 0 {
		o.Loss = 0
		o.NoSignal = true
		return
	}
	total := 0.0
	for _, l := range o.PerExample {
		total += l
	}
	n := float64(o.ValidExamples)
	o.Loss = total / n
	for _, row := range o.Grad {
		for j := range row {
			row[j] /= n
		}
	}
	if !finite(o.Loss) {
		o.Loss = 0
		o.Unstable = true
	}
}

// DescribeShape renders a short human-readable shape string for diagnostics.
func (b Batch) DescribeShape() string {
	widths := make([]string, len(b.Scores))
	for i, row := range b.Scores {
		widths[i] = fmt.Sprint(len(row))
	}
	return fmt.Sprintf("[%d x {%s}]", len(b.Scores), strings.Join(widths, ","))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
