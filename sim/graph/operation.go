package graph

import (
	"fmt"
	"strings"
)

// Task selects the operation family of a run.
type Task string

const (
	// Dismantle removes nodes to collapse connectivity.
	Dismantle Task = "dismantle"
	// Construct adds edges to raise resilience.
	Construct Task = "construct"
)

// ValidTasks lists the accepted task names.
var ValidTasks = map[string]bool{
	string(Dismantle): true,
	string(Construct): true,
}

// OpKind tags an Operation.
type OpKind string

const (
	OpRemoveNode OpKind = "remove_node"
	OpAddEdge    OpKind = "add_edge"
)

// Kind returns the operation kind a task applies.
func (t Task) Kind() OpKind {
	if t == Construct {
		return OpAddEdge
	}
	return OpRemoveNode
}

// Operation is a single structural mutation: RemoveNode(Node) or AddEdge(Edge).
type Operation struct {
	Kind OpKind
	Node NodeID
	Edge Edge
}

// RemoveNode builds a node-removal operation.
func RemoveNode(n NodeID) Operation {
	return Operation{Kind: OpRemoveNode, Node: n}
}

// AddEdge builds an edge-addition operation in canonical endpoint order.
func AddEdge(u, v NodeID) Operation {
	return Operation{Kind: OpAddEdge, Edge: NewEdge(u, v)}
}

// ID returns the identifier the operation is ranked under.
func (o Operation) ID() string {
	if o.Kind == OpAddEdge {
		return o.Edge.ID()
	}
	return string(o.Node)
}

// Less orders operations by kind, then node or edge identifier.
func (o Operation) Less(p Operation) bool {
	if o.Kind != p.Kind {
		return o.Kind < p.Kind
	}
	if o.Kind == OpAddEdge {
		return o.Edge.Less(p.Edge)
	}
	return o.Node.Less(p.Node)
}

func (o Operation) String() string {
	if o.Kind == OpAddEdge {
		return fmt.Sprintf("AddEdge(%s, %s)", o.Edge.U, o.Edge.V)
	}
	return fmt.Sprintf("RemoveNode(%s)", o.Node)
}

// ParseOperation reads one whitespace-separated line: a single token is a node
// removal, two tokens are an edge addition.
func ParseOperation(line string) (Operation, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		return RemoveNode(NodeID(fields[0])), nil
	case 2:
		return AddEdge(NodeID(fields[0]), NodeID(fields[1])), nil
	}
	return Operation{}, fmt.Errorf("cannot parse operation %q: want 1 or 2 fields, got %d", line, len(fields))
}

// GraphTooSmallError reports that the largest component of a loaded graph is
// below the configured minimum size. The run does not start.
type GraphTooSmallError struct {
	Graph string
	Nodes int
	Min   int
}

func (e *GraphTooSmallError) Error() string {
	return fmt.Sprintf("graph %q: largest connected component has %d nodes, need at least %d", e.Graph, e.Nodes, e.Min)
}

// InvalidOperationError reports an operation that violates the graph invariants
// at the step it was applied. It aborts the run.
type InvalidOperationError struct {
	Graph  string
	Step   int
	Op     Operation
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("graph %q step %d: invalid operation %s: %s", e.Graph, e.Step, e.Op, e.Reason)
}
