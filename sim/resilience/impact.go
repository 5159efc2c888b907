package resilience

import (
	"math"
	"math/rand"
	"sort"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// NodeImpact returns the drop in LCC fraction, relative to the current node
// count, caused by removing n from g. Absent nodes score 0. The result is in [0,1].
func NodeImpact(g *graph.Graph, n graph.NodeID) float64 {
	if !g.HasNode(n) {
		return 0
	}
	total := float64(g.NodeCount())
	before := float64(g.LargestComponentSize()) / total
	c := g.Clone()
	c.RemoveNode(n)
	after := float64(c.LargestComponentSize()) / total
	return clamp01(before - after)
}

// EdgeGain returns the rise in LCC fraction from adding e to g. When the edge
// stays inside one component it returns a small redundancy gain that favours
// endpoints with low clustering. Existing edges and absent endpoints score 0.
func EdgeGain(g *graph.Graph, e graph.Edge) float64 {
	if e.U == e.V || !g.HasNode(e.U) || !g.HasNode(e.V) || g.HasEdge(e.U, e.V) {
		return 0
	}
	total := float64(g.NodeCount())
	before := float64(g.LargestComponentSize()) / total
	c := g.Clone()
	c.AddEdge(e.U, e.V)
	gain := float64(c.LargestComponentSize())/total - before
	if math.Abs(gain) < 1e-9 {
		gain = 0.1 * (2 - g.Clustering(e.U) - g.Clustering(e.V)) / (2 * total)
	}
	return clamp01(gain)
}

// Label returns the ground-truth relevance of op in the current state.
func Label(s *graph.State, op graph.Operation) float64 {
	if op.Kind == graph.OpAddEdge {
		return EdgeGain(s.Graph(), op.Edge)
	}
	return NodeImpact(s.Graph(), op.Node)
}

// LabelCandidates returns Label for each op, in order.
func LabelCandidates(s *graph.State, ops []graph.Operation) []float64 {
	out := make([]float64, len(ops))
	for i, op := range ops {
		out[i] = Label(s, op)
	}
	return out
}

// RankNodesByImpact returns the nodes of g ordered by NodeImpact descending,
// ties by identifier, truncated to topK when topK > 0.
func RankNodesByImpact(g *graph.Graph, topK int) []graph.NodeID {
	nodes := g.Nodes()
	impact := make(map[graph.NodeID]float64, len(nodes))
	for _, n := range nodes {
		impact[n] = NodeImpact(g, n)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return impact[nodes[i]] > impact[nodes[j]]
	})
	if topK > 0 && len(nodes) > topK {
		nodes = nodes[:topK]
	}
	return nodes
}

// AlgebraicConnectivity returns lambda_2 of the Laplacian of g, or 0 when g is
// disconnected or has fewer than two nodes.
func AlgebraicConnectivity(g *graph.Graph, cfg spectral.SolverConfig, rng *rand.Rand) (float64, error) {
	if g.NodeCount() < 2 || g.LargestComponentSize() < g.NodeCount() {
		return 0, nil
	}
	ep, err := spectral.Fiedler(spectral.NewLaplacian(g, g.Nodes()), cfg, rng)
	if err != nil {
		return 0, err
	}
	return math.Max(0, ep.Value), nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
