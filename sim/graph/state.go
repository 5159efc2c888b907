package graph

import "sort"

// State owns the mutable graph of one run and its derived largest-component size.
// States move forward only: every Apply advances the step counter by one and no
// operation is undone.
//
// Thread-safety: NOT thread-safe. Each run exclusively owns its State; use Clone
// to hand an independent copy to a replay.
type State struct {
	g        *Graph
	original int
	lcc      int
	step     int
}

// Snapshot is an immutable view of a State after a step.
type Snapshot struct {
	Step        int
	Nodes       int
	Edges       int
	LCCSize     int
	LCCFraction float64
}

// Load reduces raw to its largest connected component and wraps the result.
// The input graph is not modified. Returns *GraphTooSmallError when the
// component has fewer than minNodes nodes.
func Load(raw *Graph, minNodes int) (*State, error) {
	lcc := raw.LargestComponent()
	if len(lcc) < minNodes || len(lcc) == 0 {
		return nil, &GraphTooSmallError{Graph: raw.Name(), Nodes: len(lcc), Min: minNodes}
	}
	g := raw.Subgraph(lcc)
	return &State{g: g, original: g.NodeCount(), lcc: g.NodeCount()}, nil
}

// Name returns the graph identifier.
func (s *State) Name() string { return s.g.Name() }

// Graph exposes the current graph for read-only queries. Callers must not mutate it.
func (s *State) Graph() *Graph { return s.g }

// Step returns the number of operations applied so far.
func (s *State) Step() int { return s.step }

// OriginalNodes returns the node count after load-time reduction. It is the
// constant denominator of LCCFraction.
func (s *State) OriginalNodes() int { return s.original }

// LCCSize returns the node count of the current largest component.
func (s *State) LCCSize() int { return s.lcc }

// LCCFraction returns LCCSize divided by OriginalNodes.
func (s *State) LCCFraction() float64 {
	if s.original == 0 {
		return 0
	}
	return float64(s.lcc) / float64(s.original)
}

// Snapshot captures the current step.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Step:        s.step,
		Nodes:       s.g.NodeCount(),
		Edges:       s.g.EdgeCount(),
		LCCSize:     s.lcc,
		LCCFraction: s.LCCFraction(),
	}
}

// Clone returns an independent State at the same step.
func (s *State) Clone() *State {
	return &State{g: s.g.Clone(), original: s.original, lcc: s.lcc, step: s.step}
}

// Reset returns a State at step 0 over the current graph: the current node
// count becomes the new denominator. Used to attack a finished construct graph.
func (s *State) Reset() *State {
	g := s.g.Clone()
	return &State{g: g, original: g.NodeCount(), lcc: g.LargestComponentSize()}
}

// Apply mutates the graph with op and recomputes the largest component.
// Returns *InvalidOperationError, leaving the state unchanged, if op is illegal.
func (s *State) Apply(op Operation) error {
	if reason := s.violation(op); reason != "" {
		return &InvalidOperationError{Graph: s.g.Name(), Step: s.step, Op: op, Reason: reason}
	}
	switch op.Kind {
	case OpRemoveNode:
		s.g.RemoveNode(op.Node)
		s.lcc = s.g.LargestComponentSize()
	case OpAddEdge:
		s.g.AddEdge(op.Edge.U, op.Edge.V)
		// Adding an edge can only merge components.
		s.lcc = s.g.LargestComponentSize()
	}
	s.step++
	return nil
}

// IsLegal reports whether op may be applied now under task.
func (s *State) IsLegal(op Operation, task Task) bool {
	return op.Kind == task.Kind() && s.violation(op) == ""
}

func (s *State) violation(op Operation) string {
	switch op.Kind {
	case OpRemoveNode:
		if !s.g.HasNode(op.Node) {
			return "node not present"
		}
	case OpAddEdge:
		u, v := op.Edge.U, op.Edge.V
		switch {
		case u == v:
			return "self-loop"
		case !s.g.HasNode(u) || !s.g.HasNode(v):
			return "endpoint not present"
		case s.g.HasEdge(u, v):
			return "edge already present"
		}
	default:
		return "unknown operation kind"
	}
	return ""
}

// LegalCount returns the size of the legal candidate set without enumerating it.
func (s *State) LegalCount(task Task) int {
	n := s.g.NodeCount()
	if task == Construct {
		return n*(n-1)/2 - s.g.EdgeCount()
	}
	return n
}

// LegalCandidates enumerates every legal operation under task in identifier order:
// all nodes for Dismantle, all non-adjacent pairs for Construct (quadratic).
func (s *State) LegalCandidates(task Task) []Operation {
	nodes := s.g.Nodes()
	if task == Dismantle {
		out := make([]Operation, len(nodes))
		for i, n := range nodes {
			out[i] = RemoveNode(n)
		}
		return out
	}
	var out []Operation
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if !s.g.HasEdge(nodes[i], nodes[j]) {
				out = append(out, Operation{Kind: OpAddEdge, Edge: Edge{U: nodes[i], V: nodes[j]}})
			}
		}
	}
	return out
}

// SortOperations sorts ops in identifier order.
func SortOperations(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })
}
