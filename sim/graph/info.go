package graph

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeInfo describes one node for candidate presentation.
type NodeInfo struct {
	ID          NodeID  `json:"id"`
	Degree      int     `json:"degree"`
	Clustering  float64 `json:"clustering"`
	Betweenness float64 `json:"betweenness"`
}

// Clustering returns the local clustering coefficient of n: the fraction of
// neighbour pairs that are themselves adjacent. Nodes with degree < 2 return 0.
func (g *Graph) Clustering(n NodeID) float64 {
	nbrs := g.Neighbors(n)
	k := len(nbrs)
	if k < 2 {
		return 0
	}
	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if g.HasEdge(nbrs[i], nbrs[j]) {
				links++
			}
		}
	}
	return 2 * float64(links) / float64(k*(k-1))
}

// Betweenness returns the shortest-path betweenness of every node with a
// non-zero value. Nodes absent from the map have betweenness 0.
func (g *Graph) Betweenness() map[NodeID]float64 {
	nodes := g.Nodes()
	index := make(map[NodeID]int64, len(nodes))
	ug := simple.NewUndirectedGraph()
	for i, n := range nodes {
		index[n] = int64(i)
		ug.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges() {
		ug.SetEdge(ug.NewEdge(simple.Node(index[e.U]), simple.Node(index[e.V])))
	}
	out := make(map[NodeID]float64)
	for i, b := range network.Betweenness(ug) {
		out[nodes[i]] = b
	}
	return out
}

// Info collects NodeInfo for the given nodes. Betweenness is computed once for
// the whole graph.
func (g *Graph) Info(nodes []NodeID) []NodeInfo {
	btw := g.Betweenness()
	out := make([]NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeInfo{
			ID:          n,
			Degree:      g.Degree(n),
			Clustering:  g.Clustering(n),
			Betweenness: btw[n],
		})
	}
	return out
}
