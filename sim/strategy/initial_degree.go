package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// InitialDegree is the static variant of HighestDegree: degrees are read once
// from the graph at step 0 and never recalculated. Dismantle removes nodes in
// descending initial degree; construct adds the non-edge with the largest
// initial endpoint degree sum. Ties go to the smaller identifier.
//
// Thread-safety: NOT thread-safe. The snapshot belongs to the run in progress
// and is retaken whenever a run starts at step 0.
type InitialDegree struct {
	degrees map[graph.NodeID]int
	order   []graph.NodeID
}

// NewInitialDegree creates an InitialDegree strategy.
func NewInitialDegree() *InitialDegree { return &InitialDegree{} }

// Name implements Strategy.
func (d *InitialDegree) Name() string { return NameInitialDegree }

// Select implements Strategy. Pruned candidates and rng are not used.
func (d *InitialDegree) Select(_ context.Context, s *graph.State, task graph.Task, _ *spectral.Candidates, _ *rand.Rand) (Selection, error) {
	g := s.Graph()
	if d.degrees == nil || s.Step() == 0 {
		d.snapshot(g)
	}
	if task == graph.Dismantle {
		for _, n := range d.order {
			if g.HasNode(n) {
				return Selection{Op: graph.RemoveNode(n), Reason: fmt.Sprintf("initial degree %d", d.degrees[n])}, nil
			}
		}
		return Selection{}, ErrNoCandidates
	}

	e, sum, ok := maxDegreeNonEdge(g, func(n graph.NodeID) int { return d.degrees[n] })
	if !ok {
		return Selection{}, ErrNoCandidates
	}
	return Selection{Op: graph.AddEdge(e.U, e.V), Reason: fmt.Sprintf("initial degree sum %d", sum)}, nil
}

func (d *InitialDegree) snapshot(g *graph.Graph) {
	d.order = g.Nodes()
	d.degrees = make(map[graph.NodeID]int, len(d.order))
	for _, n := range d.order {
		d.degrees[n] = g.Degree(n)
	}
	sort.SliceStable(d.order, func(i, j int) bool { return d.degrees[d.order[i]] > d.degrees[d.order[j]] })
}
