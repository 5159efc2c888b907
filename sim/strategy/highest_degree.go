package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// HighestDegree removes the node of maximum current degree, or adds the
// non-edge whose endpoint degree sum is largest. Ties go to the smaller
// identifier.
type HighestDegree struct{}

// Name implements Strategy.
func (HighestDegree) Name() string { return NameHighestDegree }

// Select implements Strategy. Pruned candidates and rng are not used.
func (HighestDegree) Select(_ context.Context, s *graph.State, task graph.Task, _ *spectral.Candidates, _ *rand.Rand) (Selection, error) {
	g := s.Graph()
	if task == graph.Dismantle {
		var best graph.NodeID
		found := false
		for _, n := range g.Nodes() {
			if !found || g.Degree(n) > g.Degree(best) {
				best, found = n, true
			}
		}
		if !found {
			return Selection{}, ErrNoCandidates
		}
		return Selection{Op: graph.RemoveNode(best), Reason: fmt.Sprintf("degree %d", g.Degree(best))}, nil
	}

	e, sum, ok := maxDegreeNonEdge(g, g.Degree)
	if !ok {
		return Selection{}, ErrNoCandidates
	}
	return Selection{Op: graph.AddEdge(e.U, e.V), Reason: fmt.Sprintf("degree sum %d", sum)}, nil
}

// maxDegreeNonEdge scans pairs in descending deg order and stops once no
// remaining pair can reach the best sum found.
func maxDegreeNonEdge(g *graph.Graph, deg func(graph.NodeID) int) (graph.Edge, int, bool) {
	nodes := g.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool { return deg(nodes[i]) > deg(nodes[j]) })

	var best graph.Edge
	bestSum := -1
	for i := 0; i < len(nodes); i++ {
		di := deg(nodes[i])
		if i+1 < len(nodes) && di+deg(nodes[i+1]) < bestSum {
			break
		}
		for j := i + 1; j < len(nodes); j++ {
			sum := di + deg(nodes[j])
			if sum < bestSum {
				break
			}
			if g.HasEdge(nodes[i], nodes[j]) {
				continue
			}
			e := graph.NewEdge(nodes[i], nodes[j])
			if sum > bestSum || e.Less(best) {
				best, bestSum = e, sum
			}
		}
	}
	return best, bestSum, bestSum >= 0
}
