package graph

import (
	"fmt"
	"math/rand"
	"strconv"
)

func id(i int) NodeID { return NodeID(strconv.Itoa(i)) }

// BarabasiAlbert grows a preferential-attachment graph of n nodes where each new
// node attaches to m distinct existing nodes chosen proportionally to degree.
// The seed graph is a star on nodes 0..m.
func BarabasiAlbert(n, m int, rng *rand.Rand) (*Graph, error) {
	if m < 1 || m >= n {
		return nil, fmt.Errorf("barabasi-albert: need 1 <= m < n, got m=%d n=%d", m, n)
	}
	g := New(fmt.Sprintf("ba_%d_%d", n, m))
	// repeated holds each node once per incident edge end.
	var repeated []NodeID
	for i := 1; i <= m; i++ {
		g.AddEdge(id(0), id(i))
		repeated = append(repeated, id(0), id(i))
	}
	for v := m + 1; v < n; v++ {
		targets := make(map[NodeID]struct{}, m)
		order := make([]NodeID, 0, m)
		for len(targets) < m {
			t := repeated[rng.Intn(len(repeated))]
			if _, dup := targets[t]; dup {
				continue
			}
			targets[t] = struct{}{}
			order = append(order, t)
		}
		for _, t := range order {
			g.AddEdge(id(v), t)
			repeated = append(repeated, id(v), t)
		}
	}
	return g, nil
}

// ErdosRenyi samples G(n, p): every pair is an edge independently with probability p.
func ErdosRenyi(n int, p float64, rng *rand.Rand) (*Graph, error) {
	if n < 1 || p < 0 || p > 1 {
		return nil, fmt.Errorf("erdos-renyi: need n >= 1 and 0 <= p <= 1, got n=%d p=%v", n, p)
	}
	g := New(fmt.Sprintf("er_%d_%g", n, p))
	for i := 0; i < n; i++ {
		g.AddNode(id(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				g.AddEdge(id(i), id(j))
			}
		}
	}
	return g, nil
}

// Path returns 0-1-...-(n-1).
func Path(n int) *Graph {
	g := New(fmt.Sprintf("path_%d", n))
	for i := 0; i < n; i++ {
		g.AddNode(id(i))
		if i > 0 {
			g.AddEdge(id(i-1), id(i))
		}
	}
	return g
}

// Cycle returns the ring 0-1-...-(n-1)-0.
func Cycle(n int) *Graph {
	g := Path(n)
	g.SetName(fmt.Sprintf("cycle_%d", n))
	if n > 2 {
		g.AddEdge(id(n-1), id(0))
	}
	return g
}

// Star returns node 0 joined to nodes 1..n-1.
func Star(n int) *Graph {
	g := New(fmt.Sprintf("star_%d", n))
	g.AddNode(id(0))
	for i := 1; i < n; i++ {
		g.AddEdge(id(0), id(i))
	}
	return g
}

// Complete returns K_n.
func Complete(n int) *Graph {
	g := New(fmt.Sprintf("complete_%d", n))
	for i := 0; i < n; i++ {
		g.AddNode(id(i))
		for j := 0; j < i; j++ {
			g.AddEdge(id(i), id(j))
		}
	}
	return g
}
