package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilience-sim/resilience-sim/sim/spectral"
	"github.com/resilience-sim/resilience-sim/sim/trace"
)

func TestLoadEvalConfig_ValidYAML(t *testing.T) {
	yaml := `
min_nodes: 5
budget_fraction: 0.5
random_runs: 3
seed: 7
spectral:
  top_k: 10
  solver: dense
  edge_combine: product
  scorers:
    - name: fiedler-degree
      weight: 1
ranking:
  loss: combined
  beta: 0.5
trace:
  level: decisions
`
	cfg, err := LoadEvalConfig(writeTempYAML(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MinNodes)
	assert.Equal(t, 0.5, cfg.BudgetFraction)
	assert.Equal(t, 3, cfg.RandomRuns)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 10, cfg.Spectral.TopK)
	assert.Equal(t, spectral.SolverDense, cfg.Spectral.Solver)
	assert.Equal(t, spectral.CombineProduct, cfg.Spectral.EdgeCombine)
	assert.Len(t, cfg.Spectral.Scorers, 1)
	assert.Equal(t, 0.5, cfg.Ranking.Beta)
	assert.Equal(t, trace.TraceLevelDecisions, cfg.Trace.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadEvalConfig_OmittedFieldsKeepDefaults(t *testing.T) {
	cfg, err := LoadEvalConfig(writeTempYAML(t, "random_runs: 9\n"))
	require.NoError(t, err)

	def := DefaultEvalConfig()
	assert.Equal(t, 9, cfg.RandomRuns)
	assert.Equal(t, def.BudgetFraction, cfg.BudgetFraction)
	assert.Equal(t, def.Spectral, cfg.Spectral)
	assert.Equal(t, def.CollapseThreshold, cfg.CollapseThreshold)
}

func TestLoadEvalConfig_UnknownKeyRejected(t *testing.T) {
	_, err := LoadEvalConfig(writeTempYAML(t, "budget_fractoin: 0.5\n"))
	assert.Error(t, err)
}

func TestLoadEvalConfig_NonexistentFile(t *testing.T) {
	_, err := LoadEvalConfig("/nonexistent/path/eval.yaml")
	assert.Error(t, err)
}

func TestLoadEvalConfig_MalformedYAML(t *testing.T) {
	_, err := LoadEvalConfig(writeTempYAML(t, "{{invalid yaml"))
	assert.Error(t, err)
}

func TestEvalConfig_DefaultsAreValid(t *testing.T) {
	cfg := DefaultEvalConfig()
	assert.NoError(t, cfg.Validate())
}

func TestEvalConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EvalConfig)
	}{
		{"zero budget fraction", func(c *EvalConfig) { c.BudgetFraction = 0 }},
		{"budget fraction above one", func(c *EvalConfig) { c.BudgetFraction = 1.5 }},
		{"negative attack budget", func(c *EvalConfig) { c.AttackBudget = -1 }},
		{"no random runs", func(c *EvalConfig) { c.RandomRuns = 0 }},
		{"threshold above one", func(c *EvalConfig) { c.CollapseThreshold = 2 }},
		{"zero top k", func(c *EvalConfig) { c.Spectral.TopK = 0 }},
		{"unknown solver", func(c *EvalConfig) { c.Spectral.Solver = "arpack" }},
		{"unknown combine", func(c *EvalConfig) { c.Spectral.EdgeCombine = "max" }},
		{"unknown scorer", func(c *EvalConfig) { c.Spectral.Scorers = []spectral.ScorerConfig{{Name: "pagerank", Weight: 1}} }},
		{"negative scorer weight", func(c *EvalConfig) { c.Spectral.Scorers[0].Weight = -1 }},
		{"zero temperature", func(c *EvalConfig) { c.Ranking.Temperature = 0 }},
		{"unknown loss", func(c *EvalConfig) { c.Ranking.Loss = "lambdarank" }},
		{"combined without weights", func(c *EvalConfig) {
			c.Ranking.Loss = "combined"
			c.Ranking.Alpha = 0
		}},
		{"unknown trace level", func(c *EvalConfig) { c.Trace.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEvalConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEvalConfig_Budgets(t *testing.T) {
	cfg := DefaultEvalConfig()

	// GIVEN 100 nodes and 250 edges at the default fractions
	assert.Equal(t, 30, cfg.NodeBudget(100))
	assert.Equal(t, 25, cfg.EdgeBudget(250))

	// THEN the post-construct attack reuses the node budget unless overridden
	assert.Equal(t, 30, cfg.PostAttackBudget(100))
	cfg.AttackBudget = 4
	assert.Equal(t, 4, cfg.PostAttackBudget(100))

	// AND tiny graphs still get one step
	assert.Equal(t, 1, cfg.NodeBudget(2))
	assert.Equal(t, 1, cfg.EdgeBudget(3))
}

func TestValidTaskNames(t *testing.T) {
	assert.Equal(t, []string{"both", "construct", "dismantle"}, ValidTaskNames())
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "eval.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
