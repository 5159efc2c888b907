package ranking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMLE_TwoCandidates(t *testing.T) {
	// GIVEN scores [1, 0] with the correct order
	b := Batch{Scores: [][]float64{{1, 0}}, Labels: [][]float64{{1, 0}}}

	// WHEN ListMLE is computed at temperature 1
	out, err := ListMLE{Temperature: 1}.Compute(b)
	require.NoError(t, err)

	// THEN loss = log(1 + e^-1) and the gradient pushes the scores apart
	want := math.Log(1 + math.Exp(-1))
	assert.InDelta(t, want, out.Loss, 1e-12)
	sigma := 1 / (1 + math.Exp(1))
	assert.InDelta(t, -sigma, out.Grad[0][0], 1e-12)
	assert.InDelta(t, sigma, out.Grad[0][1], 1e-12)
	assert.Equal(t, 1, out.ValidExamples)
	assert.False(t, out.NoSignal)
	assert.False(t, out.Unstable)
}

func TestListMLE_SingleCandidateContributesNothing(t *testing.T) {
	// GIVEN one example with two candidates and one with a single valid candidate
	b := Batch{
		Scores: [][]float64{{2, 1}, {5, 9}},
		Labels: [][]float64{{1, 0}, {1, 0}},
		Mask:   [][]bool{{true, true}, {true, false}},
	}

	out, err := ListMLE{Temperature: 1}.Compute(b)
	require.NoError(t, err)

	// THEN only the first example counts and the masked row has no gradient
	assert.Equal(t, 1, out.ValidExamples)
	assert.Zero(t, out.PerExample[1])
	assert.Equal(t, []float64{0, 0}, out.Grad[1])
	assert.InDelta(t, out.PerExample[0], out.Loss, 1e-12)
}

func TestListMLE_NoSignal(t *testing.T) {
	// GIVEN a batch where no example has two valid candidates
	b := Batch{Scores: [][]float64{{1}, {3}}, Labels: [][]float64{{1}, {0}}}

	out, err := ListMLE{Temperature: 1}.Compute(b)
	require.NoError(t, err)

	// THEN the loss is exactly zero and flagged as carrying no signal
	assert.Zero(t, out.Loss)
	assert.True(t, out.NoSignal)
	assert.Zero(t, out.ValidExamples)
}

func TestListMLE_NonFiniteInputsAreMasked(t *testing.T) {
	// GIVEN a NaN score and an infinite label among valid entries
	b := Batch{
		Scores: [][]float64{{math.NaN(), 1, 0}, {1, 2, 3}},
		Labels: [][]float64{{1, 1, 0}, {math.Inf(1), 0, 1}},
	}

	out, err := ListMLE{Temperature: 1}.Compute(b)
	require.NoError(t, err)

	// THEN the loss stays finite, the offending entries get zero gradient, and the run is flagged
	assert.True(t, out.Unstable)
	assert.False(t, math.IsNaN(out.Loss))
	assert.Equal(t, 2, out.ValidExamples)
	assert.Zero(t, out.Grad[0][0])
	assert.Zero(t, out.Grad[1][0])
}

func TestListMLE_LowTemperatureStaysFinite(t *testing.T) {
	b := Batch{Scores: [][]float64{{500, -500, 0}}, Labels: [][]float64{{0, 1, 2}}}
	out, err := ListMLE{Temperature: 1e-3}.Compute(b)
	require.NoError(t, err)
	assert.False(t, math.IsInf(out.Loss, 0))
	assert.False(t, out.Unstable)
	assert.Greater(t, out.Loss, 0.0)
}

func TestListMLE_TiedLabelsUsePositionOrder(t *testing.T) {
	// GIVEN tied labels, ground truth is positional order
	tied := Batch{Scores: [][]float64{{3, 2, 1}}, Labels: [][]float64{{1, 1, 1}}}
	strict := Batch{Scores: [][]float64{{3, 2, 1}}, Labels: [][]float64{{3, 2, 1}}}

	a, err := ListMLE{Temperature: 1}.Compute(tied)
	require.NoError(t, err)
	b, err := ListMLE{Temperature: 1}.Compute(strict)
	require.NoError(t, err)

	assert.InDelta(t, b.Loss, a.Loss, 1e-12)
}

func TestListMLE_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	scores := gen.SliceOfN(6, gen.Float64Range(-10, 10))
	labels := gen.SliceOfN(6, gen.Float64Range(0, 1))

	properties.Property("non-negative", prop.ForAll(
		func(s, y []float64) bool {
			out, err := ListMLE{Temperature: 1}.Compute(Batch{Scores: [][]float64{s}, Labels: [][]float64{y}})
			return err == nil && out.Loss >= 0
		},
		scores, labels,
	))

	properties.Property("invariant to score translation", prop.ForAll(
		func(s, y []float64, c float64) bool {
			shifted := make([]float64, len(s))
			for i := range s {
				shifted[i] = s[i] + c
			}
			a, _ := ListMLE{Temperature: 1}.Compute(Batch{Scores: [][]float64{s}, Labels: [][]float64{y}})
			b, _ := ListMLE{Temperature: 1}.Compute(Batch{Scores: [][]float64{shifted}, Labels: [][]float64{y}})
			return math.Abs(a.Loss-b.Loss) < 1e-9
		},
		scores, labels, gen.Float64Range(-50, 50),
	))

	properties.TestingRun(t)
}

func TestLosses_GradientMatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := Batch{Scores: make([][]float64, 3), Labels: make([][]float64, 3)}
	for i := range b.Scores {
		b.Scores[i] = make([]float64, 5)
		b.Labels[i] = make([]float64, 5)
		for j := range b.Scores[i] {
			b.Scores[i][j] = rng.NormFloat64()
			b.Labels[i][j] = rng.Float64()
		}
	}
	losses := []Loss{
		ListMLE{Temperature: 0.7},
		ListNet{Temperature: 1.3},
	}
	const h = 1e-6
	for _, l := range losses {
		t.Run(l.Name(), func(t *testing.T) {
			out, err := l.Compute(b)
			require.NoError(t, err)
			for i := range b.Scores {
				for j := range b.Scores[i] {
					orig := b.Scores[i][j]
					b.Scores[i][j] = orig + h
					up, _ := l.Compute(b)
					b.Scores[i][j] = orig - h
					down, _ := l.Compute(b)
					b.Scores[i][j] = orig
					numeric := (up.Loss - down.Loss) / (2 * h)
					assert.InDelta(t, numeric, out.Grad[i][j], 1e-5, "grad[%d][%d]", i, j)
				}
			}
		})
	}
}

func TestListNet_PerfectScoresBeatReversed(t *testing.T) {
	labels := [][]float64{{3, 2, 1}}
	good, err := ListNet{Temperature: 1}.Compute(Batch{Scores: [][]float64{{3, 2, 1}}, Labels: labels})
	require.NoError(t, err)
	bad, err := ListNet{Temperature: 1}.Compute(Batch{Scores: [][]float64{{1, 2, 3}}, Labels: labels})
	require.NoError(t, err)
	assert.Less(t, good.Loss, bad.Loss)
}

func TestPairwiseMargin(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []float64
		want   float64
	}{
		{"separated beyond margin", []float64{3, 1}, []float64{1, 0}, 0},
		{"inside margin", []float64{1.5, 1}, []float64{1, 0}, 0.5},
		{"inverted", []float64{0, 1}, []float64{1, 0}, 2},
		{"equal labels carry no pairs", []float64{0, 5}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := PairwiseMargin{Margin: 1}.Compute(Batch{Scores: [][]float64{tt.scores}, Labels: [][]float64{tt.labels}})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out.Loss, 1e-12)
		})
	}
}

func TestCombined_WeightsComponents(t *testing.T) {
	b := Batch{Scores: [][]float64{{0.2, 1.5, -0.3}}, Labels: [][]float64{{0.1, 0.9, 0.4}}}
	cfg := DefaultConfig()
	cfg.Loss = LossCombined
	cfg.Alpha, cfg.Beta, cfg.Gamma = 1, 0.5, 2

	out, err := NewLoss(cfg).Compute(b)
	require.NoError(t, err)

	mle, _ := ListMLE{Temperature: 1}.Compute(b)
	net, _ := ListNet{Temperature: 1}.Compute(b)
	mar, _ := PairwiseMargin{Margin: 1}.Compute(b)
	assert.InDelta(t, mle.Loss+0.5*net.Loss+2*mar.Loss, out.Loss, 1e-12)
	assert.Len(t, out.Components, 3)
	assert.InDelta(t, mle.Loss, out.Components[LossListMLE], 1e-12)
}

func TestBatchValidate_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
		field string
		row   int
	}{
		{"label rows", Batch{Scores: [][]float64{{1}}, Labels: nil}, "labels", -1},
		{"label columns", Batch{Scores: [][]float64{{1, 2}}, Labels: [][]float64{{1}}}, "labels", 0},
		{"mask columns", Batch{Scores: [][]float64{{1, 2}}, Labels: [][]float64{{1, 0}}, Mask: [][]bool{{true}}}, "mask", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ListMLE{Temperature: 1}.Compute(tt.batch)
			var se *ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.Equal(t, tt.row, se.Row)
		})
	}
}

func TestNewLoss_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { NewLoss(Config{Loss: "hinge"}) })
}

func TestMetrics(t *testing.T) {
	labels := []float64{3, 2, 1, 0}
	perfect := []float64{4, 3, 2, 1}
	reversed := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.0, NDCG(perfect, labels, 0), 1e-12)
	assert.Less(t, NDCG(reversed, labels, 0), 1.0)
	assert.InDelta(t, 1.0, MRR(perfect, labels), 1e-12)
	assert.InDelta(t, 0.25, MRR(reversed, labels), 1e-12)
	assert.InDelta(t, 1.0, PrecisionAtK(perfect, labels, 2), 1e-12)
	assert.InDelta(t, 0.0, PrecisionAtK(reversed, labels, 2), 1e-12)
	assert.InDelta(t, 1.0, KendallTau(perfect, labels), 1e-12)
	assert.InDelta(t, -1.0, KendallTau(reversed, labels), 1e-12)
	assert.Zero(t, KendallTau([]float64{1, 1, 1}, labels[:3]))
	assert.Zero(t, NDCG(perfect, []float64{0, 0, 0, 0}, 2))
}
