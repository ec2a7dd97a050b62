// File: internal/graph/graph.go
package graph

import (
	"fmt"
	"slices"
	"strconv"
)

// NId identifies a node inside a single Graph. Ids are arena indexes and stay
// stable for the lifetime of the graph that issued them.
type NId int

// NoNode marks an absent child, an absent continuation or the post-exit sentinel.
const NoNode NId = -1

func (n NId) String() string {
	if n == NoNode {
		return "none"
	}
	return strconv.Itoa(int(n))
}

// EdgeKind tags the relation an edge belongs to.
type EdgeKind uint8

const (
	// AST is the ordered parent to child containment relation.
	AST EdgeKind = iota + 1
	// CFG is the "may execute next" relation synthesized by the control-flow linker.
	CFG
)

func (k EdgeKind) String() string {
	switch k {
	case AST:
		return "AST"
	case CFG:
		return "CFG"
	default:
		return "EdgeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Span is a byte range into the file the node came from.
type Span struct {
	Start uint32
	End   uint32
}

// Node is the attribute payload of one graph vertex.
type Node struct {
	ID NId
	// Label is the grammar type for raw nodes and the step kind for translated nodes.
	Label string
	// Field is the grammar field under which the parent holds this node, if any.
	Field string
	Pos   Position
	Span  Span
	Attrs map[string]string
	Step  Step
}

// Attr returns an attribute value or the empty string.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Graph is a mutable directed graph holding one file. The AST relation is kept
// as a tree; the CFG relation is a plain digraph and may contain cycles.
//
// A Graph is owned by a single analysis task and is not safe for concurrent
// mutation. Concurrent reads after linking are fine.
type Graph struct {
	nodes    []*Node
	parent   []NId
	children [][]NId
	succ     [][]NId
	pred     [][]NId
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Has reports whether id belongs to the graph.
func (g *Graph) Has(id NId) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *Graph) check(id NId) error {
	if !g.Has(id) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// AddNode appends a node and returns its id. The ID field of n is ignored.
func (g *Graph) AddNode(n Node) NId {
	id := NId(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, &n)
	g.parent = append(g.parent, NoNode)
	g.children = append(g.children, nil)
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	return id
}

// Node returns the node stored under id.
func (g *Graph) Node(id NId) (*Node, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return g.nodes[id], nil
}

// Label returns the label of id, or the empty string when id is unknown.
func (g *Graph) Label(id NId) string {
	if !g.Has(id) {
		return ""
	}
	return g.nodes[id].Label
}

// AddEdge links from to to under kind. AST edges keep child order and refuse a
// second parent. CFG edges are deduplicated and may form cycles.
func (g *Graph) AddEdge(from, to NId, kind EdgeKind) error {
	if err := g.check(from); err != nil {
		return err
	}
	if err := g.check(to); err != nil {
		return err
	}
	switch kind {
	case AST:
		if from == to {
			return fmt.Errorf("%w: %s is its own parent", ErrASTViolation, from)
		}
		if p := g.parent[to]; p != NoNode {
			return fmt.Errorf("%w: %s already has parent %s", ErrASTViolation, to, p)
		}
		g.parent[to] = from
		g.children[from] = append(g.children[from], to)
	case CFG:
		for _, s := range g.succ[from] {
			if s == to {
				return nil
			}
		}
		g.succ[from] = append(g.succ[from], to)
		g.pred[to] = append(g.pred[to], from)
	default:
		return fmt.Errorf("unknown edge kind %s", kind)
	}
	return nil
}

// Truncate drops every node with an id of n or more, together with the edges
// touching them. Ids below n are untouched.
func (g *Graph) Truncate(n int) error {
	if n < 0 || n > len(g.nodes) {
		return fmt.Errorf("%w: cannot truncate %d nodes to %d", ErrNodeNotFound, len(g.nodes), n)
	}
	dropped := func(id NId) bool { return int(id) >= n }
	clear(g.nodes[n:])
	g.nodes = g.nodes[:n]
	g.parent = g.parent[:n]
	g.children = g.children[:n]
	g.succ = g.succ[:n]
	g.pred = g.pred[:n]
	for i := range n {
		if dropped(g.parent[i]) {
			g.parent[i] = NoNode
		}
		g.children[i] = slices.DeleteFunc(g.children[i], dropped)
		g.succ[i] = slices.DeleteFunc(g.succ[i], dropped)
		g.pred[i] = slices.DeleteFunc(g.pred[i], dropped)
	}
	return nil
}

// AdjacentAST returns the ordered AST children of id. When labels are given,
// only children carrying one of them are returned.
func (g *Graph) AdjacentAST(id NId, labels ...string) ([]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return append([]NId(nil), g.children[id]...), nil
	}
	var out []NId
	for _, c := range g.children[id] {
		if slices.Contains(labels, g.nodes[c].Label) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ChildByField returns the first AST child held under the given grammar field,
// or NoNode.
func (g *Graph) ChildByField(id NId, field string) (NId, error) {
	if err := g.check(id); err != nil {
		return NoNode, err
	}
	for _, c := range g.children[id] {
		if g.nodes[c].Field == field {
			return c, nil
		}
	}
	return NoNode, nil
}

// MatchAST maps every requested label to the single child that carries it.
// Absent labels map to NoNode. More than one child with a requested label is
// reported as an AmbiguousMatchError.
func (g *Graph) MatchAST(id NId, labels ...string) (map[string]NId, error) {
	groups, err := g.MatchASTGroup(id, labels...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]NId, len(labels))
	for _, label := range labels {
		switch ids := groups[label]; len(ids) {
		case 0:
			out[label] = NoNode
		case 1:
			out[label] = ids[0]
		default:
			return nil, &AmbiguousMatchError{Node: id, Label: label, Count: len(ids)}
		}
	}
	return out, nil
}

// MatchASTGroup maps every requested label to all children that carry it, in
// source order.
func (g *Graph) MatchASTGroup(id NId, labels ...string) (map[string][]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	out := make(map[string][]NId, len(labels))
	for _, label := range labels {
		out[label] = nil
	}
	for _, c := range g.children[id] {
		label := g.nodes[c].Label
		if _, ok := out[label]; ok {
			out[label] = append(out[label], c)
		}
	}
	return out, nil
}

// ParentAST returns the AST parent of id, or NoNode for a root.
func (g *Graph) ParentAST(id NId) (NId, error) {
	if err := g.check(id); err != nil {
		return NoNode, err
	}
	return g.parent[id], nil
}

// PredecessorsAST walks up from id for at most depth levels, nearest first.
// A depth of -1 walks up to the root.
func (g *Graph) PredecessorsAST(id NId, depth int) ([]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	var out []NId
	for p := g.parent[id]; p != NoNode && (depth < 0 || len(out) < depth); p = g.parent[p] {
		out = append(out, p)
	}
	return out, nil
}

// PredecessorsCFG returns the control-flow predecessors of id in insertion order.
func (g *Graph) PredecessorsCFG(id NId) ([]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return append([]NId(nil), g.pred[id]...), nil
}

// SuccessorsCFG returns the control-flow successors of id in insertion order.
func (g *Graph) SuccessorsCFG(id NId) ([]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return append([]NId(nil), g.succ[id]...), nil
}

// EdgeCount returns the number of edges of the given kind.
func (g *Graph) EdgeCount(kind EdgeKind) int {
	total := 0
	for i := range g.nodes {
		switch kind {
		case AST:
			total += len(g.children[i])
		case CFG:
			total += len(g.succ[i])
		}
	}
	return total
}
