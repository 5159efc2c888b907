package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/ranking"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
	"github.com/resilience-sim/resilience-sim/sim/trace"
)

// validate is the shared struct-tag validator.
var validate = validator.New()

// EvalConfig holds every tunable of an evaluation, loadable from a YAML file.
// Fields absent from the file keep the values of DefaultEvalConfig.
type EvalConfig struct {
	MinNodes           int     `yaml:"min_nodes" validate:"gte=1"`
	BudgetFraction     float64 `yaml:"budget_fraction" validate:"gt=0,lte=1"`
	EdgeBudgetFraction float64 `yaml:"edge_budget_fraction" validate:"gt=0"`
	// AttackBudget is the number of removals in the post-construct attacks;
	// 0 reuses the dismantle node budget.
	AttackBudget      int     `yaml:"attack_budget" validate:"gte=0"`
	CollapseThreshold float64 `yaml:"collapse_threshold" validate:"gte=0,lte=1"`
	RandomRuns        int     `yaml:"random_runs" validate:"gte=1"`
	Seed              int64   `yaml:"seed"`

	Spectral spectral.Config   `yaml:"spectral"`
	Ranking  ranking.Config    `yaml:"ranking"`
	Trace    trace.TraceConfig `yaml:"trace"`
}

// DefaultEvalConfig returns the defaults: 30% of nodes removed, 10% of edges
// added, collapse below 20% LCC, five random replays.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinNodes:           10,
		BudgetFraction:     0.3,
		EdgeBudgetFraction: 0.1,
		CollapseThreshold:  0.2,
		RandomRuns:         5,
		Seed:               42,
		Spectral:           spectral.DefaultConfig(),
		Ranking:            ranking.DefaultConfig(),
		Trace:              trace.TraceConfig{Level: trace.TraceLevelNone, CounterfactualK: 5},
	}
}

// LoadEvalConfig reads a YAML evaluation config over the defaults.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadEvalConfig(path string) (*EvalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading eval config: %w", err)
	}
	cfg := DefaultEvalConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing eval config: %w", err)
	}
	return &cfg, nil
}

// Validate checks parameter ranges and every named component.
func (c *EvalConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid eval config: %w", err)
	}
	if !spectral.ValidSolvers[c.Spectral.Solver] {
		return fmt.Errorf("unknown solver %q; valid: %v", c.Spectral.Solver, sortedNames(spectral.ValidSolvers))
	}
	if !spectral.ValidEdgeCombines[c.Spectral.EdgeCombine] {
		return fmt.Errorf("unknown edge combine %q; valid: %v", c.Spectral.EdgeCombine, sortedNames(spectral.ValidEdgeCombines))
	}
	for _, sc := range c.Spectral.Scorers {
		if !spectral.IsValidScorer(sc.Name) {
			return fmt.Errorf("unknown scorer %q; valid: %v", sc.Name, spectral.ValidScorerNames())
		}
		if sc.Weight < 0 {
			return fmt.Errorf("scorer %q weight must be non-negative, got %f", sc.Name, sc.Weight)
		}
	}
	if !ranking.ValidLosses[c.Ranking.Loss] {
		return fmt.Errorf("unknown loss %q; valid: %v", c.Ranking.Loss, sortedNames(ranking.ValidLosses))
	}
	if c.Ranking.Loss == ranking.LossCombined && c.Ranking.Alpha+c.Ranking.Beta+c.Ranking.Gamma == 0 {
		return fmt.Errorf("combined loss needs at least one positive weight")
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}

// NodeBudget returns the dismantle budget for a graph of n nodes, at least 1.
func (c *EvalConfig) NodeBudget(n int) int {
	return max(1, int(c.BudgetFraction*float64(n)))
}

// EdgeBudget returns the construct budget for a graph of m edges, at least 1.
func (c *EvalConfig) EdgeBudget(m int) int {
	return max(1, int(c.EdgeBudgetFraction*float64(m)))
}

// PostAttackBudget returns the removal budget of the attacks that score a
// constructed graph with n nodes.
func (c *EvalConfig) PostAttackBudget(n int) int {
	if c.AttackBudget > 0 {
		return c.AttackBudget
	}
	return c.NodeBudget(n)
}

// ValidTaskNames returns the accepted task names plus "both", sorted.
func ValidTaskNames() []string {
	names := sortedNames(graph.ValidTasks)
	names = append(names, "both")
	sort.Strings(names)
	return names
}

func sortedNames(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name, ok := range m {
		if ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
