package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/internal/testutil"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

var ctx = context.Background()

func TestHighestDegree_Dismantle(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
		want graph.NodeID
	}{
		{"star centre", graph.Star(5), "0"},
		{"path ties go to smallest id", graph.Path(5), "1"},
		{"barbell bridge endpoint", testutil.Barbell(4), "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := HighestDegree{}.Select(ctx, testutil.MustState(t, tt.g), graph.Dismantle, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, graph.RemoveNode(tt.want), sel.Op)
		})
	}
}

func TestHighestDegree_SameIntegerSpellingsTieDeterministically(t *testing.T) {
	// GIVEN path x - 1 - 01 - y, where "1" and "01" are distinct nodes of top degree
	g := graph.New("spellings")
	g.AddEdge("x", "1")
	g.AddEdge("1", "01")
	g.AddEdge("01", "y")

	// WHEN HDA selects repeatedly on identical fresh states
	// THEN the lexically smaller spelling wins every time
	for i := 0; i < 200; i++ {
		sel, err := HighestDegree{}.Select(ctx, testutil.MustState(t, g), graph.Dismantle, nil, nil)
		require.NoError(t, err)
		require.Equal(t, graph.RemoveNode("01"), sel.Op, "iteration %d", i)
	}
}

func TestHighestDegree_Construct(t *testing.T) {
	// GIVEN path 0-1-2-3 with degrees 1,2,2,1
	s := testutil.MustState(t, graph.Path(4))

	// WHEN HDA picks an edge
	sel, err := HighestDegree{}.Select(ctx, s, graph.Construct, nil, nil)
	require.NoError(t, err)

	// THEN 0-2 and 1-3 both sum to 3 and the smaller identifier wins
	assert.Equal(t, graph.AddEdge("0", "2"), sel.Op)
}

func TestHighestDegree_ConstructMatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		g, err := graph.ErdosRenyi(25, 0.3, rng)
		require.NoError(t, err)
		s := testutil.MustState(t, g)

		var want graph.Operation
		bestSum := -1
		for _, op := range s.LegalCandidates(graph.Construct) {
			sum := s.Graph().Degree(op.Edge.U) + s.Graph().Degree(op.Edge.V)
			if sum > bestSum {
				want, bestSum = op, sum
			}
		}
		if bestSum < 0 {
			continue
		}
		sel, err := HighestDegree{}.Select(ctx, s, graph.Construct, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, want, sel.Op, "trial %d", trial)
	}
}

func TestHighestDegree_NoCandidates(t *testing.T) {
	_, err := HighestDegree{}.Select(ctx, testutil.MustState(t, graph.Complete(4)), graph.Construct, nil, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

// hubsGraph is a star 0-{1,2,3} whose leaf 3 leads to a second hub 4-{5,7}
// with tail 5-6.
func hubsGraph() *graph.Graph {
	g := graph.New("hubs")
	for _, e := range [][2]graph.NodeID{{"0", "1"}, {"0", "2"}, {"0", "3"}, {"3", "4"}, {"4", "5"}, {"5", "6"}, {"4", "7"}} {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestInitialDegree_DismantleKeepsInitialOrder(t *testing.T) {
	// GIVEN initial degrees 0:3 4:3 3:2 5:2 and leaves of degree 1
	s := testutil.MustState(t, hubsGraph())
	static := NewInitialDegree()

	// WHEN three nodes are removed by initial degree
	var got []graph.NodeID
	for i := 0; i < 3; i++ {
		sel, err := static.Select(ctx, s, graph.Dismantle, nil, nil)
		require.NoError(t, err)
		got = append(got, sel.Op.Node)
		require.NoError(t, s.Apply(sel.Op))
	}

	// THEN node 3 follows the hubs even though its current degree is now 0,
	// where the adaptive attack would take node 5
	assert.Equal(t, []graph.NodeID{"0", "4", "3"}, got)
	adaptive, err := HighestDegree{}.Select(ctx, testutil.MustState(t, hubsGraph()), graph.Dismantle, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.RemoveNode("0"), adaptive.Op)

	// AND a new run at step 0 takes a fresh snapshot
	sel, err := static.Select(ctx, testutil.MustState(t, graph.Star(4)), graph.Dismantle, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.RemoveNode("0"), sel.Op)
}

func TestInitialDegree_ConstructUsesInitialDegreeSums(t *testing.T) {
	// GIVEN path 0-1-2-3 with initial degrees 1,2,2,1
	s := testutil.MustState(t, graph.Path(4))
	static := NewInitialDegree()

	sel, err := static.Select(ctx, s, graph.Construct, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.AddEdge("0", "2"), sel.Op)
	require.NoError(t, s.Apply(sel.Op))

	// WHEN the next edge is chosen after 0-2 raised node 0 to degree 2
	sel, err = static.Select(ctx, s, graph.Construct, nil, nil)
	require.NoError(t, err)

	// THEN 1-3 (initial sum 3) beats 0-3 (initial sum 2)
	assert.Equal(t, graph.AddEdge("1", "3"), sel.Op)
}

func TestLowDegree(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
		task graph.Task
		want graph.Operation
	}{
		{"construct joins the path ends", graph.Path(5), graph.Construct, graph.AddEdge("0", "4")},
		{"construct on a cycle takes the first non-adjacent pair", graph.Cycle(5), graph.Construct, graph.AddEdge("0", "2")},
		{"dismantle removes a leaf", graph.Star(5), graph.Dismantle, graph.RemoveNode("1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := LowDegree{}.Select(ctx, testutil.MustState(t, tt.g), tt.task, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Op)
		})
	}
}

func TestDegreeVariants_NoCandidatesOnCompleteGraph(t *testing.T) {
	for _, strat := range []Strategy{NewInitialDegree(), LowDegree{}} {
		_, err := strat.Select(ctx, testutil.MustState(t, graph.Complete(4)), graph.Construct, nil, nil)
		assert.ErrorIs(t, err, ErrNoCandidates, strat.Name())
	}
}

func TestRandom_DeterministicAndLegal(t *testing.T) {
	g, err := graph.BarabasiAlbert(60, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for _, task := range []graph.Task{graph.Dismantle, graph.Construct} {
		t.Run(string(task), func(t *testing.T) {
			a, b := testutil.MustState(t, g), testutil.MustState(t, g)
			ra, rb := rand.New(rand.NewSource(9)), rand.New(rand.NewSource(9))
			for i := 0; i < 15; i++ {
				sa, err := Random{}.Select(ctx, a, task, nil, ra)
				require.NoError(t, err)
				sb, err := Random{}.Select(ctx, b, task, nil, rb)
				require.NoError(t, err)
				assert.Equal(t, sa.Op, sb.Op, "step %d", i)
				require.NoError(t, a.Apply(sa.Op))
				require.NoError(t, b.Apply(sb.Op))
			}
		})
	}
}

func TestRandom_DismantleIsRoughlyUniform(t *testing.T) {
	s := testutil.MustState(t, graph.Cycle(4))
	rng := rand.New(rand.NewSource(5))
	counts := map[graph.NodeID]int{}
	for i := 0; i < 4000; i++ {
		sel, err := Random{}.Select(ctx, s, graph.Dismantle, nil, rng)
		require.NoError(t, err)
		counts[sel.Op.Node]++
	}
	for n, c := range counts {
		assert.InDelta(t, 1000, c, 150, "node %s", n)
	}
}

func TestRandom_DenseGraphFallsBackToEnumeration(t *testing.T) {
	// GIVEN K_30 minus one edge, so rejection sampling almost always fails
	g := graph.Complete(30)
	g2 := graph.New(g.Name())
	for _, e := range g.Edges() {
		if e != graph.NewEdge("3", "17") {
			g2.AddEdge(e.U, e.V)
		}
	}
	sel, err := Random{}.Select(ctx, testutil.MustState(t, g2), graph.Construct, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, graph.AddEdge("3", "17"), sel.Op)
}

func TestSequence_SkipsIllegalAndExhausts(t *testing.T) {
	// GIVEN a cycle and a sequence that repeats a node and names a missing one
	s := testutil.MustState(t, graph.Cycle(5))
	seq := NewSequence("", []graph.Operation{
		graph.RemoveNode("0"), graph.RemoveNode("0"), graph.RemoveNode("x"), graph.RemoveNode("2"),
	})
	assert.Equal(t, NameRanked, seq.Name())

	sel, err := seq.Select(ctx, s, graph.Dismantle, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Apply(sel.Op))

	// WHEN the next two entries are illegal
	sel, err = seq.Select(ctx, s, graph.Dismantle, nil, nil)
	require.NoError(t, err)

	// THEN they are skipped
	assert.Equal(t, graph.RemoveNode("2"), sel.Op)
	assert.Contains(t, sel.Reason, "skipped 2")
	assert.Zero(t, seq.Remaining())

	// AND the ranking is then exhausted
	_, err = seq.Select(ctx, s, graph.Dismantle, nil, nil)
	assert.ErrorIs(t, err, ErrRankingExhausted)
}

func TestSequence_WrongTaskIsIllegal(t *testing.T) {
	s := testutil.MustState(t, graph.Path(4))
	seq := NewSequence("seq", []graph.Operation{graph.RemoveNode("1")})
	_, err := seq.Select(ctx, s, graph.Construct, nil, nil)
	assert.ErrorIs(t, err, ErrRankingExhausted)
}

type fakeRanker struct {
	resp RankResponse
	err  error
	got  RankRequest
}

func (f *fakeRanker) Rank(_ context.Context, req RankRequest) (RankResponse, error) {
	f.got = req
	return f.resp, f.err
}

func pathCandidates() *spectral.Candidates {
	return &spectral.Candidates{Items: []spectral.Candidate{
		{Op: graph.RemoveNode("2"), Score: 0.7},
		{Op: graph.RemoveNode("1"), Score: 0.6},
		{Op: graph.RemoveNode("3"), Score: 0.6},
	}}
}

func TestRanked_FollowsOrderAndScores(t *testing.T) {
	s := testutil.MustState(t, graph.Path(5))

	tests := []struct {
		name string
		resp RankResponse
		want graph.NodeID
	}{
		{"order", RankResponse{Order: []string{"3", "2", "1"}}, "3"},
		{"scores", RankResponse{Scores: map[string]float64{"1": 0.9, "2": 0.1, "3": 0.5}}, "1"},
		{"score ties by id", RankResponse{Scores: map[string]float64{"1": 0.5, "2": 0.1, "3": 0.5}}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRanker{resp: tt.resp}
			sel, err := NewRanked("model", f).Select(ctx, s, graph.Dismantle, pathCandidates(), nil)
			require.NoError(t, err)
			assert.Equal(t, graph.RemoveNode(tt.want), sel.Op)
			require.Len(t, f.got.Candidates, 3)
			assert.Equal(t, "2", f.got.Candidates[0].ID)
			assert.Equal(t, 2.0, f.got.Candidates[0].Features["degree"])
		})
	}
}

func TestRanked_InvalidRankings(t *testing.T) {
	s := testutil.MustState(t, graph.Path(5))
	tests := []struct {
		name string
		f    *fakeRanker
	}{
		{"length mismatch", &fakeRanker{resp: RankResponse{Order: []string{"2", "1"}}}},
		{"unknown id", &fakeRanker{resp: RankResponse{Order: []string{"2", "1", "9"}}}},
		{"duplicate id", &fakeRanker{resp: RankResponse{Order: []string{"2", "1", "1"}}}},
		{"score map mismatch", &fakeRanker{resp: RankResponse{Scores: map[string]float64{"2": 1}}}},
		{"unknown scored id", &fakeRanker{resp: RankResponse{Scores: map[string]float64{"2": 1, "1": 1, "4": 0}}}},
		{"empty", &fakeRanker{}},
		{"collaborator failure", &fakeRanker{err: errors.New("model offline")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRanked("model", tt.f).Select(ctx, s, graph.Dismantle, pathCandidates(), nil)
			var ire *InvalidRankingError
			require.ErrorAs(t, err, &ire)
			assert.Equal(t, 0, ire.Step)
		})
	}
}

func TestRanked_EdgeIdentifiersWithDashesStayDistinct(t *testing.T) {
	// GIVEN path "a-b" - "a" - "c" - "b-c", whose non-edges include a-b/c and a/b-c
	g := graph.New("dashes")
	g.AddEdge("a-b", "a")
	g.AddEdge("a", "c")
	g.AddEdge("c", "b-c")
	s := testutil.MustState(t, g)
	cands := &spectral.Candidates{Items: []spectral.Candidate{
		{Op: graph.AddEdge("a-b", "c"), Score: 0.9},
		{Op: graph.AddEdge("a", "b-c"), Score: 0.8},
	}}

	// WHEN a ranker echoes the candidate identifiers in reverse
	echo := rankerFunc(func(req RankRequest) RankResponse {
		order := make([]string, 0, len(req.Candidates))
		for i := len(req.Candidates) - 1; i >= 0; i-- {
			order = append(order, req.Candidates[i].ID)
		}
		return RankResponse{Order: order}
	})
	sel, err := NewRanked("echo", echo).Select(ctx, s, graph.Construct, cands, nil)

	// THEN both identifiers resolve and the reversed order is honoured
	require.NoError(t, err)
	assert.Equal(t, graph.AddEdge("a", "b-c"), sel.Op)
}

type rankerFunc func(RankRequest) RankResponse

func (f rankerFunc) Rank(_ context.Context, req RankRequest) (RankResponse, error) {
	return f(req), nil
}

func TestHTTPRanker_RoundTrip(t *testing.T) {
	// GIVEN a scoring service that ranks candidates by ascending spectral score
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req RankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		scores := make(map[string]float64, len(req.Candidates))
		for _, c := range req.Candidates {
			scores[c.ID] = -c.Score
		}
		_ = json.NewEncoder(w).Encode(RankResponse{Scores: scores})
	}))
	defer srv.Close()

	// WHEN the ranked strategy consults it
	s := testutil.MustState(t, graph.Path(5))
	sel, err := NewRanked("http", NewHTTPRanker(srv.URL, time.Second)).Select(ctx, s, graph.Dismantle, pathCandidates(), nil)

	// THEN the lowest spectral score wins, ties by id
	require.NoError(t, err)
	assert.Equal(t, graph.RemoveNode("1"), sel.Op)
}

func TestHTTPRanker_ServerErrorIsInvalidRanking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := testutil.MustState(t, graph.Path(5))
	_, err := NewRanked("http", NewHTTPRanker(srv.URL, time.Second)).Select(ctx, s, graph.Dismantle, pathCandidates(), nil)
	var ire *InvalidRankingError
	require.ErrorAs(t, err, &ire)
	assert.Contains(t, ire.Reason, "HTTP 500")
}

func TestNew(t *testing.T) {
	assert.Equal(t, NameHighestDegree, New("hda").Name())
	assert.Equal(t, NameRandom, New("random").Name())
	assert.Equal(t, NameInitialDegree, New("initial-degree").Name())
	assert.Equal(t, NameLowDegree, New("low-degree").Name())
	assert.Panics(t, func() { New("betweenness") })
	assert.Equal(t, []string{"hda", "highest-degree", "initial-degree", "low-degree", "random"}, ValidStrategyNames())
}
