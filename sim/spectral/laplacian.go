// Package spectral scores nodes and candidate operations with the Fiedler vector
// of the combinatorial graph Laplacian and prunes the legal candidate set to a
// bounded top-K.
package spectral

import (
	"gonum.org/v1/gonum/mat"

	"github.com/resilience-sim/resilience-sim/sim/graph"
)

// Laplacian is the sparse operator L = D - A over a fixed node subset.
// Row i corresponds to Nodes[i]; Nodes is in identifier order.
type Laplacian struct {
	Nodes []graph.NodeID
	nbrs  [][]int
	deg   []float64
}

// NewLaplacian builds L for the subgraph of g induced by nodes.
func NewLaplacian(g *graph.Graph, nodes []graph.NodeID) *Laplacian {
	sorted := append([]graph.NodeID(nil), nodes...)
	graph.SortNodes(sorted)
	index := make(map[graph.NodeID]int, len(sorted))
	for i, n := range sorted {
		index[n] = i
	}
	l := &Laplacian{
		Nodes: sorted,
		nbrs:  make([][]int, len(sorted)),
		deg:   make([]float64, len(sorted)),
	}
	for i, n := range sorted {
		for _, m := range g.Neighbors(n) {
			if j, ok := index[m]; ok {
				l.nbrs[i] = append(l.nbrs[i], j)
			}
		}
		l.deg[i] = float64(len(l.nbrs[i]))
	}
	return l
}

// Dim returns the operator dimension.
func (l *Laplacian) Dim() int { return len(l.Nodes) }

// Degree returns the degree of row i within the subset.
func (l *Laplacian) Degree(i int) float64 { return l.deg[i] }

// Neighbors returns the row indices adjacent to row i.
func (l *Laplacian) Neighbors(i int) []int { return l.nbrs[i] }

// MulVec sets dst = L x.
func (l *Laplacian) MulVec(dst, x []float64) {
	for i := range l.nbrs {
		sum := l.deg[i] * x[i]
		for _, j := range l.nbrs[i] {
			sum -= x[j]
		}
		dst[i] = sum
	}
}

// NormBound returns 2*maxdeg, a Gershgorin bound on the largest eigenvalue.
func (l *Laplacian) NormBound() float64 {
	maxDeg := 0.0
	for _, d := range l.deg {
		if d > maxDeg {
			maxDeg = d
		}
	}
	return 2 * maxDeg
}

// Dense materialises L as a symmetric dense matrix.
func (l *Laplacian) Dense() *mat.SymDense {
	n := l.Dim()
	sym := mat.NewSymDense(n, nil)
	for i := range l.nbrs {
		sym.SetSym(i, i, l.deg[i])
		for _, j := range l.nbrs[i] {
			if j > i {
				sym.SetSym(i, j, -1)
			}
		}
	}
	return sym
}
