package spectral

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/resilience-sim/resilience-sim/sim/graph"
)

const (
	// CombineSum scores an edge as s(u) + s(v).
	CombineSum = "sum"
	// CombineProduct scores an edge as s(u) * s(v).
	CombineProduct = "product"
)

// ValidEdgeCombines lists the accepted edge score combinations.
var ValidEdgeCombines = map[string]bool{
	CombineSum:     true,
	CombineProduct: true,
}

// Config controls candidate pruning.
type Config struct {
	TopK         int            `yaml:"top_k" validate:"gte=1"`
	EdgePool     int            `yaml:"edge_pool" validate:"gte=2"`
	EdgeCombine  string         `yaml:"edge_combine"`
	Scorers      []ScorerConfig `yaml:"scorers" validate:"min=1"`
	SolverConfig `yaml:",inline"`
}

// DefaultConfig returns the pruning defaults: top 20 candidates, a 50-node
// endpoint pool for edges, summed endpoint scores.
func DefaultConfig() Config {
	return Config{
		TopK:         20,
		EdgePool:     50,
		EdgeCombine:  CombineSum,
		Scorers:      DefaultScorerConfigs(),
		SolverConfig: DefaultSolverConfig(),
	}
}

// Candidate is a legal operation with its spectral score.
type Candidate struct {
	Op    graph.Operation
	Score float64
}

// Candidates is the pruner output for one step: descending score, ties by
// operation identifier. When Degraded is set the eigensolver failed, Items is
// the full legal set in identifier order with zero scores, and Err holds the cause.
type Candidates struct {
	Items      []Candidate
	Degraded   bool
	Err        error
	Iterations int
}

// Ops returns the candidate operations in rank order.
func (c *Candidates) Ops() []graph.Operation {
	out := make([]graph.Operation, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.Op
	}
	return out
}

// Pruner reduces the legal candidate set with Fiedler-vector scores.
//
// Thread-safety: NOT thread-safe; each run owns its Pruner and RNG.
type Pruner struct {
	cfg     Config
	scorers []nodeScorer
	weights []float64
	rng     *rand.Rand
}

// NewPruner creates a pruner. rng seeds the Lanczos start vectors.
// Panics on unknown scorer or combine names (validation should catch this before reaching here).
func NewPruner(cfg Config, rng *rand.Rand) *Pruner {
	if !ValidEdgeCombines[cfg.EdgeCombine] {
		panic(fmt.Sprintf("unknown edge combine %q", cfg.EdgeCombine))
	}
	if len(cfg.Scorers) == 0 {
		cfg.Scorers = DefaultScorerConfigs()
	}
	scorers := make([]nodeScorer, len(cfg.Scorers))
	for i, sc := range cfg.Scorers {
		scorers[i] = newScorer(sc.Name)
	}
	return &Pruner{cfg: cfg, scorers: scorers, weights: normalizeScorerWeights(cfg.Scorers), rng: rng}
}

// NodeScores scores every node of the current graph. Only the largest
// component is analysed; nodes outside it score 0.
func (p *Pruner) NodeScores(s *graph.State) (map[graph.NodeID]float64, Eigenpair, error) {
	g := s.Graph()
	lap := NewLaplacian(g, g.LargestComponent())
	ep, err := Fiedler(lap, p.cfg.SolverConfig, p.rng)
	if err != nil {
		return nil, ep, err
	}
	combined := make([]float64, lap.Dim())
	for k, scorer := range p.scorers {
		for i, v := range minMaxNormalize(scorer(lap, ep.Vector)) {
			combined[i] += v * p.weights[k]
		}
	}
	scores := make(map[graph.NodeID]float64, g.NodeCount())
	for _, n := range g.Nodes() {
		scores[n] = 0
	}
	for i, n := range lap.Nodes {
		scores[n] = combined[i]
	}
	return scores, ep, nil
}

// Prune returns at most TopK legal candidates for task, best first.
func (p *Pruner) Prune(s *graph.State, task graph.Task) *Candidates {
	scores, ep, err := p.NodeScores(s)
	if err != nil {
		logrus.Warnf("graph %q step %d: %v; using unpruned candidates", s.Name(), s.Step(), err)
		legal := s.LegalCandidates(task)
		items := make([]Candidate, len(legal))
		for i, op := range legal {
			items[i] = Candidate{Op: op}
		}
		return &Candidates{Items: items, Degraded: true, Err: err}
	}

	var items []Candidate
	if task == graph.Dismantle {
		for n, sc := range scores {
			items = append(items, Candidate{Op: graph.RemoveNode(n), Score: sc})
		}
	} else {
		items = p.edgeCandidates(s, scores)
	}
	sortCandidates(items)
	if len(items) > p.cfg.TopK {
		items = items[:p.cfg.TopK]
	}
	logrus.Debugf("graph %q step %d: pruned to %d %s candidates (lambda2=%.4g, %d iterations)",
		s.Name(), s.Step(), len(items), task, ep.Value, ep.Iterations)
	return &Candidates{Items: items, Iterations: ep.Iterations}
}

// edgeCandidates scores non-adjacent pairs among the EdgePool best nodes. If
// the pool is saturated every legal non-edge is scored instead.
func (p *Pruner) edgeCandidates(s *graph.State, scores map[graph.NodeID]float64) []Candidate {
	g := s.Graph()
	ranked := make([]graph.NodeID, 0, len(scores))
	for n := range scores {
		ranked = append(ranked, n)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i].Less(ranked[j])
	})
	pool := ranked
	if len(pool) > p.cfg.EdgePool {
		pool = pool[:p.cfg.EdgePool]
	}

	var items []Candidate
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if !g.HasEdge(pool[i], pool[j]) {
				items = append(items, p.edgeCandidate(pool[i], pool[j], scores))
			}
		}
	}
	if len(items) == 0 && len(pool) < len(ranked) {
		for _, op := range s.LegalCandidates(graph.Construct) {
			items = append(items, p.edgeCandidate(op.Edge.U, op.Edge.V, scores))
		}
	}
	return items
}

func (p *Pruner) edgeCandidate(u, v graph.NodeID, scores map[graph.NodeID]float64) Candidate {
	su, sv := scores[u], scores[v]
	score := su + sv
	if p.cfg.EdgeCombine == CombineProduct {
		score = su * sv
	}
	return Candidate{Op: graph.AddEdge(u, v), Score: score}
}

func sortCandidates(items []Candidate) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Op.Less(items[j].Op)
	})
}
