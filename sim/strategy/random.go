package strategy

import (
	"context"
	"math/rand"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// maxRejections bounds pair sampling before falling back to enumeration.
const maxRejections = 64

// Random draws uniformly from the legal candidate set with the caller's rng.
type Random struct{}

// Name implements Strategy.
func (Random) Name() string { return NameRandom }

// Select implements Strategy. Pruned candidates are not used.
func (Random) Select(_ context.Context, s *graph.State, task graph.Task, _ *spectral.Candidates, rng *rand.Rand) (Selection, error) {
	nodes := s.Graph().Nodes()
	if task == graph.Dismantle {
		if len(nodes) == 0 {
			return Selection{}, ErrNoCandidates
		}
		return Selection{Op: graph.RemoveNode(nodes[rng.Intn(len(nodes))]), Reason: "uniform"}, nil
	}

	if s.LegalCount(graph.Construct) == 0 {
		return Selection{}, ErrNoCandidates
	}
	// Ordered pairs with u != v are uniform over unordered pairs, so
	// rejecting existing edges keeps the draw uniform over non-edges.
	for i := 0; i < maxRejections; i++ {
		u, v := nodes[rng.Intn(len(nodes))], nodes[rng.Intn(len(nodes))]
		if u != v && !s.Graph().HasEdge(u, v) {
			return Selection{Op: graph.AddEdge(u, v), Reason: "uniform"}, nil
		}
	}
	legal := s.LegalCandidates(graph.Construct)
	return Selection{Op: legal[rng.Intn(len(legal))], Reason: "uniform (enumerated)"}, nil
}
