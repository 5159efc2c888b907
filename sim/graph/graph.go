package graph

import (
	"sort"
	"strconv"
	"strings"
)

// NodeID identifies a node. Identifiers are opaque and stable for the lifetime of a run.
type NodeID string

// Less orders identifiers numerically when both parse as integers, integers before
// non-integers, and lexically otherwise. Distinct spellings of one integer
// ("1", "01") fall back to lexical order, so the order is strict and total.
// Every deterministic tie-break in the simulator uses this order.
func (a NodeID) Less(b NodeID) bool {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai == bi {
			return a < b
		}
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// SortNodes sorts ids in place by NodeID.Less.
func SortNodes(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Edge is an unordered node pair stored with U <= V.
type Edge struct {
	U NodeID
	V NodeID
}

// NewEdge returns the canonical form of the pair (u, v).
func NewEdge(u, v NodeID) Edge {
	if v.Less(u) {
		u, v = v, u
	}
	return Edge{U: u, V: v}
}

// edgeIDEscaper escapes the endpoint separator so that edge identifiers stay
// unique when node identifiers themselves contain '-'.
var edgeIDEscaper = strings.NewReplacer(`\`, `\\`, "-", `\-`)

// ID is the identifier used when presenting the edge to rankers: the two
// endpoints joined by '-', with any '-' or backslash inside an endpoint escaped by a backslash.
func (e Edge) ID() string {
	return edgeIDEscaper.Replace(string(e.U)) + "-" + edgeIDEscaper.Replace(string(e.V))
}

// Less orders edges by U, then V.
func (e Edge) Less(f Edge) bool {
	if e.U != f.U {
		return e.U.Less(f.U)
	}
	return e.V.Less(f.V)
}

// Graph is an undirected simple graph. The zero value is not usable; call New.
//
// Thread-safety: NOT thread-safe. A Graph is owned by exactly one run.
type Graph struct {
	name  string
	adj   map[NodeID]map[NodeID]struct{}
	edges int
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{name: name, adj: make(map[NodeID]map[NodeID]struct{})}
}

// Name returns the graph identifier used in errors and result records.
func (g *Graph) Name() string { return g.name }

// SetName replaces the graph identifier.
func (g *Graph) SetName(name string) { g.name = name }

// AddNode inserts n if absent.
func (g *Graph) AddNode(n NodeID) {
	if _, ok := g.adj[n]; !ok {
		g.adj[n] = make(map[NodeID]struct{})
	}
}

// AddEdge inserts the undirected edge (u, v), creating missing endpoints.
// Self-loops and existing edges are ignored; the return value reports whether
// the edge set changed.
func (g *Graph) AddEdge(u, v NodeID) bool {
	if u == v {
		return false
	}
	g.AddNode(u)
	g.AddNode(v)
	if _, ok := g.adj[u][v]; ok {
		return false
	}
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
	g.edges++
	return true
}

// RemoveNode deletes n and its incident edges. Returns false if n is absent.
func (g *Graph) RemoveNode(n NodeID) bool {
	nbrs, ok := g.adj[n]
	if !ok {
		return false
	}
	for m := range nbrs {
		delete(g.adj[m], n)
	}
	g.edges -= len(nbrs)
	delete(g.adj, n)
	return true
}

// HasNode reports whether n is present.
func (g *Graph) HasNode(n NodeID) bool {
	_, ok := g.adj[n]
	return ok
}

// HasEdge reports whether (u, v) is an edge.
func (g *Graph) HasEdge(u, v NodeID) bool {
	_, ok := g.adj[u][v]
	return ok
}

// Degree returns the number of neighbours of n (0 if absent).
func (g *Graph) Degree(n NodeID) int { return len(g.adj[n]) }

// Neighbors returns the neighbours of n in identifier order.
func (g *Graph) Neighbors(n NodeID) []NodeID {
	out := make([]NodeID, 0, len(g.adj[n]))
	for m := range g.adj[n] {
		out = append(out, m)
	}
	SortNodes(out)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns all node identifiers in identifier order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	SortNodes(out)
	return out
}

// Edges returns all edges in canonical order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for u, nbrs := range g.adj {
		for v := range nbrs {
			if u.Less(v) {
				out = append(out, Edge{U: u, V: v})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// MaxDegree returns the largest node degree.
func (g *Graph) MaxDegree() int {
	maxDeg := 0
	for _, nbrs := range g.adj {
		if len(nbrs) > maxDeg {
			maxDeg = len(nbrs)
		}
	}
	return maxDeg
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{name: g.name, adj: make(map[NodeID]map[NodeID]struct{}, len(g.adj)), edges: g.edges}
	for n, nbrs := range g.adj {
		cp := make(map[NodeID]struct{}, len(nbrs))
		for m := range nbrs {
			cp[m] = struct{}{}
		}
		c.adj[n] = cp
	}
	return c
}

// Subgraph returns the subgraph induced by nodes. Unknown ids are ignored.
func (g *Graph) Subgraph(nodes []NodeID) *Graph {
	keep := make(map[NodeID]struct{}, len(nodes))
	sub := New(g.name)
	for _, n := range nodes {
		if g.HasNode(n) {
			keep[n] = struct{}{}
			sub.AddNode(n)
		}
	}
	for n := range keep {
		for m := range g.adj[n] {
			if _, ok := keep[m]; ok && n.Less(m) {
				sub.AddEdge(n, m)
			}
		}
	}
	return sub
}
