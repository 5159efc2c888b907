// Package testutil provides shared test infrastructure for the resilience
// simulator: graph fixtures under testdata/graphs and float assertions.
package testutil

import (
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/resilience-sim/resilience-sim/sim/graph"
)

// GraphsDir returns the absolute path of testdata/graphs.
// The path is resolved relative to this source file: sim/internal/testutil/ -> testdata/.
func GraphsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "graphs")
}

// LoadGraph reads a fixture from testdata/graphs.
func LoadGraph(t *testing.T, file string) *graph.Graph {
	t.Helper()
	g, err := graph.ReadFile(filepath.Join(GraphsDir(t), file))
	if err != nil {
		t.Fatalf("Failed to load graph fixture %s: %v", file, err)
	}
	return g
}

// Barbell returns two k-cliques joined by a single bridge between node k-1 and node k.
func Barbell(k int) *graph.Graph {
	g := graph.New(fmt.Sprintf("barbell_%d", k))
	for off := 0; off <= k; off += k {
		for i := 0; i < k; i++ {
			for j := 0; j < i; j++ {
				g.AddEdge(nodeID(off+i), nodeID(off+j))
			}
		}
	}
	g.AddEdge(nodeID(k-1), nodeID(k))
	return g
}

// MustState loads g with no minimum size, failing the test on error.
func MustState(t *testing.T, g *graph.Graph) *graph.State {
	t.Helper()
	s, err := graph.Load(g, 1)
	if err != nil {
		t.Fatalf("Load(%s): %v", g.Name(), err)
	}
	return s
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

func nodeID(i int) graph.NodeID { return graph.NodeID(fmt.Sprint(i)) }
