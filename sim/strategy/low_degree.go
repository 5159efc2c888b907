package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// LowDegree works from the periphery. Construct links the two lowest-degree
// nodes that are not yet adjacent, scanning pairs (i, j) of the nodes sorted
// by ascending current degree; dismantle removes the lowest-degree node. Ties
// go to the smaller identifier.
type LowDegree struct{}

// Name implements Strategy.
func (LowDegree) Name() string { return NameLowDegree }

// Select implements Strategy. Pruned candidates and rng are not used.
func (LowDegree) Select(_ context.Context, s *graph.State, task graph.Task, _ *spectral.Candidates, _ *rand.Rand) (Selection, error) {
	g := s.Graph()
	nodes := g.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool { return g.Degree(nodes[i]) < g.Degree(nodes[j]) })

	if task == graph.Dismantle {
		if len(nodes) == 0 {
			return Selection{}, ErrNoCandidates
		}
		return Selection{Op: graph.RemoveNode(nodes[0]), Reason: fmt.Sprintf("degree %d", g.Degree(nodes[0]))}, nil
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if !g.HasEdge(nodes[i], nodes[j]) {
				sum := g.Degree(nodes[i]) + g.Degree(nodes[j])
				return Selection{Op: graph.AddEdge(nodes[i], nodes[j]), Reason: fmt.Sprintf("degree sum %d", sum)}, nil
			}
		}
	}
	return Selection{}, ErrNoCandidates
}
