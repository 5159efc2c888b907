package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

// RankedCandidate is one pruned candidate as presented to a Ranker.
type RankedCandidate struct {
	ID       string             `json:"id"`
	Score    float64            `json:"score"`
	Features map[string]float64 `json:"features,omitempty"`
}

// RankRequest is the per-step input to a Ranker.
type RankRequest struct {
	Graph      string            `json:"graph"`
	Step       int               `json:"step"`
	Task       graph.Task        `json:"task"`
	Candidates []RankedCandidate `json:"candidates"`
}

// RankResponse is either a full order over candidate identifiers or a score
// per identifier. Order takes precedence when both are set.
type RankResponse struct {
	Order  []string           `json:"order,omitempty"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Ranker is an external scoring collaborator, such as a trained model.
type Ranker interface {
	Rank(ctx context.Context, req RankRequest) (RankResponse, error)
}

// ExternallyRanked applies operations in an externally supplied order.
//
// Built with NewSequence it pops a fixed list, skipping entries that have
// become illegal, and returns ErrRankingExhausted when the list runs out.
// Built with NewRanked it asks its Ranker to order the pruned candidates at
// every step and returns *InvalidRankingError for malformed answers.
type ExternallyRanked struct {
	name   string
	seq    []graph.Operation
	next   int
	ranker Ranker
}

// NewSequence wraps a fixed operation list.
func NewSequence(name string, ops []graph.Operation) *ExternallyRanked {
	if name == "" {
		name = NameRanked
	}
	return &ExternallyRanked{name: name, seq: ops}
}

// NewRanked wraps a per-step Ranker.
func NewRanked(name string, r Ranker) *ExternallyRanked {
	if name == "" {
		name = NameRanked
	}
	return &ExternallyRanked{name: name, ranker: r}
}

// Name implements Strategy.
func (r *ExternallyRanked) Name() string { return r.name }

// UsesCandidates reports whether Select reads the pruned candidates, which
// is the case only for ranker-backed instances.
func (r *ExternallyRanked) UsesCandidates() bool { return r.ranker != nil }

// Remaining returns the number of unconsumed sequence entries.
func (r *ExternallyRanked) Remaining() int { return len(r.seq) - r.next }

// Select implements Strategy.
func (r *ExternallyRanked) Select(ctx context.Context, s *graph.State, task graph.Task, cands *spectral.Candidates, _ *rand.Rand) (Selection, error) {
	if r.ranker != nil {
		return r.selectRanked(ctx, s, task, cands)
	}
	skipped := 0
	for r.next < len(r.seq) {
		op := r.seq[r.next]
		r.next++
		if s.IsLegal(op, task) {
			reason := fmt.Sprintf("sequence position %d", r.next-1)
			if skipped > 0 {
				reason += fmt.Sprintf(", skipped %d illegal", skipped)
			}
			return Selection{Op: op, Reason: reason}, nil
		}
		skipped++
		logrus.Debugf("graph %q step %d: skipping illegal ranked %s", s.Name(), s.Step(), op)
	}
	return Selection{}, ErrRankingExhausted
}

func (r *ExternallyRanked) selectRanked(ctx context.Context, s *graph.State, task graph.Task, cands *spectral.Candidates) (Selection, error) {
	if cands == nil || len(cands.Items) == 0 {
		return Selection{}, ErrNoCandidates
	}
	req := RankRequest{Graph: s.Name(), Step: s.Step(), Task: task, Candidates: describe(s.Graph(), cands)}
	resp, err := r.ranker.Rank(ctx, req)
	if err != nil {
		return Selection{}, &InvalidRankingError{Step: s.Step(), Reason: err.Error()}
	}
	byID := make(map[string]graph.Operation, len(cands.Items))
	for _, it := range cands.Items {
		byID[it.Op.ID()] = it.Op
	}
	order, err := resolveOrder(resp, byID)
	if err != nil {
		return Selection{}, &InvalidRankingError{Step: s.Step(), Reason: err.Error()}
	}
	for i, id := range order {
		if op := byID[id]; s.IsLegal(op, task) {
			return Selection{Op: op, Reason: fmt.Sprintf("ranked %d of %d", i+1, len(order))}, nil
		}
	}
	return Selection{}, ErrRankingExhausted
}

// resolveOrder checks a response against the candidate identifiers and
// returns the implied order, best first. Score ties go to the smaller identifier.
func resolveOrder(resp RankResponse, byID map[string]graph.Operation) ([]string, error) {
	if len(resp.Order) == 0 && len(resp.Scores) == 0 {
		return nil, fmt.Errorf("empty ranking")
	}
	if len(resp.Order) > 0 {
		if len(resp.Order) != len(byID) {
			return nil, fmt.Errorf("ranking has %d entries, want %d", len(resp.Order), len(byID))
		}
		seen := make(map[string]bool, len(resp.Order))
		for _, id := range resp.Order {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("unknown candidate %q", id)
			}
			if seen[id] {
				return nil, fmt.Errorf("duplicate candidate %q", id)
			}
			seen[id] = true
		}
		return resp.Order, nil
	}
	if len(resp.Scores) != len(byID) {
		return nil, fmt.Errorf("scores cover %d candidates, want %d", len(resp.Scores), len(byID))
	}
	order := make([]string, 0, len(resp.Scores))
	for id := range resp.Scores {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("unknown candidate %q", id)
		}
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := resp.Scores[order[i]], resp.Scores[order[j]]
		if a != b {
			return a > b
		}
		return byID[order[i]].Less(byID[order[j]])
	})
	return order, nil
}

// describe renders candidates with the structural features a scorer may use.
func describe(g *graph.Graph, cands *spectral.Candidates) []RankedCandidate {
	out := make([]RankedCandidate, len(cands.Items))
	for i, it := range cands.Items {
		f := make(map[string]float64)
		if it.Op.Kind == graph.OpAddEdge {
			f["degree_u"] = float64(g.Degree(it.Op.Edge.U))
			f["degree_v"] = float64(g.Degree(it.Op.Edge.V))
		} else {
			f["degree"] = float64(g.Degree(it.Op.Node))
			f["clustering"] = g.Clustering(it.Op.Node)
		}
		out[i] = RankedCandidate{ID: it.Op.ID(), Score: it.Score, Features: f}
	}
	return out
}
