package cmd

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilience-sim/resilience-sim/sim"
	"github.com/resilience-sim/resilience-sim/sim/graph"
)

func generateWithSeed(t *testing.T, model string, s int64) *graph.Graph {
	t.Helper()
	rng := sim.NewPartitionedRNG(sim.NewRunKey(s)).ForSubsystem(subsystemGenerate)
	g, err := generateGraph(model, 60, 2, 0.08, rng)
	require.NoError(t, err)
	return g
}

func TestGenerate_SameSeedSameGraph(t *testing.T) {
	for _, model := range []string{ModelBA, ModelER} {
		t.Run(model, func(t *testing.T) {
			// GIVEN two generations with seed 42
			g1 := generateWithSeed(t, model, 42)
			g2 := generateWithSeed(t, model, 42)

			// THEN the edge sets are identical
			if diff := cmp.Diff(g1.Edges(), g2.Edges()); diff != "" {
				t.Errorf("same seed produced different graphs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestGenerate_DifferentSeedsDifferentGraphs(t *testing.T) {
	// GIVEN seeds 100 and 200
	g1 := generateWithSeed(t, ModelBA, 100)
	g2 := generateWithSeed(t, ModelBA, 200)

	// THEN the graphs differ but have the same size
	assert.NotEqual(t, g1.Edges(), g2.Edges())
	assert.Equal(t, g1.NodeCount(), g2.NodeCount())
	assert.Equal(t, g1.EdgeCount(), g2.EdgeCount(), "BA edge count depends only on n and m")
}

func TestGenerate_NamesAndUnknownModel(t *testing.T) {
	assert.Equal(t, "ba_n60_m2", generateWithSeed(t, ModelBA, 1).Name())
	assert.Equal(t, "er_n60_p0.08", generateWithSeed(t, ModelER, 1).Name())

	_, err := generateGraph("ws", 10, 2, 0.1, nil)
	assert.ErrorContains(t, err, `unknown model "ws"`)
}

func TestWriteGraph_RoundTripsThroughReadFile(t *testing.T) {
	// GIVEN a generated graph written as an edge list
	g := generateWithSeed(t, ModelBA, 3)
	path := writeGraphFile(t, g, "ba.edgelist")

	// WHEN read back
	back, err := graph.ReadFile(path)
	require.NoError(t, err)

	// THEN nodes and edges survive
	if diff := cmp.Diff(g.Edges(), back.Edges()); diff != "" {
		t.Errorf("edge list round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "ba", back.Name())
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestCloseFile_ReportsCloseFailure(t *testing.T) {
	flushErr := errors.New("disk full")
	writeErr := errors.New("short write")
	tests := []struct {
		name    string
		prior   error
		close   error
		wantErr string
	}{
		{"clean close keeps success", nil, nil, ""},
		{"close failure surfaces on success path", nil, flushErr, "closing out.edgelist: disk full"},
		{"earlier error wins", writeErr, flushErr, "short write"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a writer that finished with tt.prior
			err := tt.prior

			// WHEN the file is closed
			closeFile(failingCloser{err: tt.close}, "out.edgelist", &err)

			// THEN the first failure is the one reported
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestWriteGraph_CreateFailure(t *testing.T) {
	err := writeGraph(filepath.Join(t.TempDir(), "missing", "g.edgelist"), graph.Path(3))
	assert.ErrorContains(t, err, "creating")
}

func TestConvertGraph_Reductions(t *testing.T) {
	// GIVEN a 10-cycle plus a detached edge, stored as GML
	gml := "graph [\n"
	for i := 0; i < 12; i++ {
		gml += "  node [ id " + strconv.Itoa(i) + " label \"n" + strconv.Itoa(i) + "\" ]\n"
	}
	for i := 0; i < 10; i++ {
		gml += "  edge [ source " + strconv.Itoa(i) + " target " + strconv.Itoa((i+1)%10) + " ]\n"
	}
	gml += "  edge [ source 10 target 11 ]\n]\n"
	path := writeFile(t, "ring.gml", gml)

	tests := []struct {
		name      string
		lcc       bool
		center    graph.NodeID
		hops      int
		wantNodes int
		wantEdges int
	}{
		{"unchanged", false, "", 0, 12, 11},
		{"largest component", true, "", 0, 10, 10},
		{"one hop", false, "0", 1, 3, 2},
		{"two hops then lcc", true, "0", 2, 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := convertGraph(path, tt.lcc, tt.center, tt.hops)

			require.NoError(t, err)
			assert.Equal(t, tt.wantNodes, g.NodeCount())
			assert.Equal(t, tt.wantEdges, g.EdgeCount())
			assert.Equal(t, "ring", g.Name())
		})
	}

	_, err := convertGraph(path, false, "99", 1)
	assert.ErrorContains(t, err, `node "99"`)
}
