// Package strategy implements the attack and construction strategies that pick
// one operation per step: HighestDegree, Random and ExternallyRanked, plus the
// InitialDegree and LowDegree comparison baselines.
//
// Strategies never own randomness. Every Select call receives the caller's
// seeded generator, so two runs with the same seed and graph pick the same
// operations.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// Strategy names.
const (
	NameHighestDegree = "highest-degree"
	NameInitialDegree = "initial-degree"
	NameLowDegree     = "low-degree"
	NameRandom        = "random"
	NameRanked        = "ranked"
)

// ValidStrategies lists the names accepted by New. "hda" is an alias for
// highest-degree. Ranked strategies need a sequence or ranker and are built
// with NewSequence or NewRanked instead.
var ValidStrategies = map[string]bool{
	NameHighestDegree: true,
	"hda":             true,
	NameInitialDegree: true,
	NameLowDegree:     true,
	NameRandom:        true,
}

// ValidStrategyNames returns the sorted list of names accepted by New.
func ValidStrategyNames() []string {
	names := make([]string, 0, len(ValidStrategies))
	for name := range ValidStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrNoCandidates is returned when no legal operation remains.
var ErrNoCandidates = errors.New("no legal candidates")

// ErrRankingExhausted is returned by ExternallyRanked when every ranked
// operation has been consumed or skipped.
var ErrRankingExhausted = errors.New("ranking exhausted")

// InvalidRankingError reports a malformed ranking from an external collaborator.
type InvalidRankingError struct {
	Step   int
	Reason string
}

func (e *InvalidRankingError) Error() string {
	return fmt.Sprintf("invalid ranking at step %d: %s", e.Step, e.Reason)
}

// Selection is a strategy decision.
type Selection struct {
	Op     graph.Operation
	Reason string
}

// Strategy selects the next operation for a run.
//
// cands is the pruner output for this step and may be nil. HighestDegree and
// Random always consider the full legal set; ExternallyRanked presents cands
// to its collaborator.
type Strategy interface {
	Name() string
	Select(ctx context.Context, s *graph.State, task graph.Task, cands *spectral.Candidates, rng *rand.Rand) (Selection, error)
}

// New creates a baseline strategy by name.
// Panics on unknown name (validation should catch this before reaching here).
func New(name string) Strategy {
	switch name {
	case NameHighestDegree, "hda":
		return HighestDegree{}
	case NameInitialDegree:
		return NewInitialDegree()
	case NameLowDegree:
		return LowDegree{}
	case NameRandom:
		return Random{}
	default:
		panic(fmt.Sprintf("unknown strategy %q", name))
	}
}
