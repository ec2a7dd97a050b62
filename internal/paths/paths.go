// Package paths enumerates the backward execution paths that reach a node of
// a linked syntax graph.
package paths

import (
	"iter"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Path is one execution order, entry first and the queried statement last.
type Path []graph.NId

// Anchor returns the statement that owns n in the control-flow graph: n
// itself when it is linear, else its nearest linear AST ancestor. A node with
// no linear ancestor anchors to itself.
func Anchor(g *graph.Graph, n graph.NId) (graph.NId, error) {
	if _, err := g.Node(n); err != nil {
		return graph.NoNode, err
	}
	for id := n; id != graph.NoNode; {
		if s := g.Step(id); s != nil && s.Info().Linear {
			return id, nil
		}
		p, err := g.ParentAST(id)
		if err != nil {
			return graph.NoNode, err
		}
		id = p
	}
	return n, nil
}

// Backward returns the paths reaching the statement that anchors n. The walk
// follows CFG predecessors in insertion order and forks at joins, so the
// sequence is deterministic. No node repeats within a path. Each call returns
// a fresh sequence.
func Backward(g *graph.Graph, n graph.NId) (iter.Seq[Path], error) {
	start, err := Anchor(g, n)
	if err != nil {
		return nil, err
	}
	return func(yield func(Path) bool) {
		w := &walk{g: g, onPath: make(map[graph.NId]bool), yield: yield}
		w.visit(start)
	}, nil
}

// Collect drains at most limit paths from seq. A limit below one drains all.
func Collect(seq iter.Seq[Path], limit int) []Path {
	var out []Path
	for p := range seq {
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

type walk struct {
	g      *graph.Graph
	rev    []graph.NId
	onPath map[graph.NId]bool
	yield  func(Path) bool
}

// visit extends the current path with n and explores its predecessors. It
// reports false once the consumer stops.
func (w *walk) visit(n graph.NId) bool {
	w.rev = append(w.rev, n)
	w.onPath[n] = true
	defer func() {
		w.rev = w.rev[:len(w.rev)-1]
		delete(w.onPath, n)
	}()

	next := w.next(n)
	if len(next) == 0 {
		return w.yield(w.path())
	}
	for _, p := range next {
		if !w.visit(p) {
			return false
		}
	}
	return true
}

// next returns the predecessors of n still open on this path. When all of
// them are already on it, as on a loop back edge, the walk goes one step
// further back through their open predecessors, modelling a single iteration.
func (w *walk) next(n graph.NId) []graph.NId {
	preds, _ := w.g.PredecessorsCFG(n)
	var open []graph.NId
	for _, p := range preds {
		if !w.onPath[p] {
			open = append(open, p)
		}
	}
	if len(open) > 0 || len(preds) == 0 {
		return open
	}
	seen := make(map[graph.NId]bool)
	for _, p := range preds {
		further, _ := w.g.PredecessorsCFG(p)
		for _, q := range further {
			if !w.onPath[q] && !seen[q] {
				seen[q] = true
				open = append(open, q)
			}
		}
	}
	return open
}

func (w *walk) path() Path {
	out := make(Path, len(w.rev))
	for i, id := range w.rev {
		out[len(w.rev)-1-i] = id
	}
	return out
}
