package graph

import "sort"

// Components returns the connected components, each sorted by identifier.
// Components are ordered by size descending, then by their smallest identifier.
func (g *Graph) Components() [][]NodeID {
	visited := make(map[NodeID]bool, len(g.adj))
	var comps [][]NodeID
	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		comp := g.bfs(start, visited, -1)
		SortNodes(comp)
		comps = append(comps, comp)
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0].Less(comps[j][0])
	})
	return comps
}

// LargestComponent returns the node ids of the largest connected component.
// Ties resolve to the component containing the smallest identifier.
func (g *Graph) LargestComponent() []NodeID {
	comps := g.Components()
	if len(comps) == 0 {
		return nil
	}
	return comps[0]
}

// LargestComponentSize returns the node count of the largest connected component
// without materialising the component lists.
func (g *Graph) LargestComponentSize() int {
	visited := make(map[NodeID]bool, len(g.adj))
	best := 0
	for n := range g.adj {
		if visited[n] {
			continue
		}
		if size := len(g.bfs(n, visited, -1)); size > best {
			best = size
		}
	}
	return best
}

// KHop returns the subgraph induced by all nodes within hops of center.
func (g *Graph) KHop(center NodeID, hops int) *Graph {
	if !g.HasNode(center) {
		return New(g.name)
	}
	return g.Subgraph(g.bfs(center, make(map[NodeID]bool), hops))
}

// bfs marks and returns every node reachable from start within maxDepth hops
// (unbounded when maxDepth < 0).
func (g *Graph) bfs(start NodeID, visited map[NodeID]bool, maxDepth int) []NodeID {
	visited[start] = true
	out := []NodeID{start}
	frontier := []NodeID{start}
	for depth := 0; len(frontier) > 0 && (maxDepth < 0 || depth < maxDepth); depth++ {
		var next []NodeID
		for _, n := range frontier {
			for m := range g.adj[n] {
				if !visited[m] {
					visited[m] = true
					out = append(out, m)
					next = append(next, m)
				}
			}
		}
		frontier = next
	}
	return out
}
