// Package controlflow overlays control-flow edges on a translated syntax
// graph. Every method, lambda and file body is linked as its own entry.
package controlflow

import (
	"errors"
	"fmt"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// ErrNotEntry is returned when Link is asked to start from a node that is not
// a file, method or lambda.
var ErrNotEntry = errors.New("node is not a control-flow entry")

// Link adds the CFG edges of the body owned by entry. The body's last
// statements get no successor: NoNode stands for the post-exit sentinel.
func Link(g *graph.Graph, entry graph.NId, lang cst.Language) error {
	table, ok := tables[lang]
	if !ok {
		return fmt.Errorf("%w: %q", cst.ErrUnsupportedLanguage, lang)
	}
	s, err := g.StepOf(entry)
	if err != nil {
		return err
	}
	l := &linker{g: g, walkers: table}

	var body []graph.NId
	switch st := s.(type) {
	case *graph.File:
		if body, err = g.AdjacentAST(entry); err != nil {
			return err
		}
	case *graph.MethodDeclaration:
		body = []graph.NId{st.BodyID}
	case *graph.Lambda:
		body = []graph.NId{st.BodyID}
	default:
		return fmt.Errorf("%w: %s is a %s", ErrNotEntry, entry, s.Kind())
	}

	if first := l.sequence(body, graph.NoNode); first != graph.NoNode {
		l.edge(entry, first)
	}
	if l.err != nil {
		return fmt.Errorf("linking %s %s: %w", s.Kind(), entry, l.err)
	}
	return nil
}

// LinkFile links the file entry under root and every method and lambda in
// the graph, in id order.
func LinkFile(g *graph.Graph, root graph.NId, lang cst.Language) error {
	if err := Link(g, root, lang); err != nil {
		return err
	}
	for i := 0; i < g.Len(); i++ {
		id := graph.NId(i)
		switch g.Kind(id) {
		case graph.KindMethodDeclaration, graph.KindLambda:
			if err := Link(g, id, lang); err != nil {
				return err
			}
		}
	}
	return nil
}

type frameKind int

const (
	loopFrame frameKind = iota
	switchFrame
	tryFrame
)

// frame records where jumps inside a compound statement go.
type frame struct {
	kind frameKind
	// brk is the target of break, cont the target of continue.
	brk, cont graph.NId
	// fall is the next case body, for explicit fallthrough.
	fall    graph.NId
	catches []graph.NId
}

type linker struct {
	g       *graph.Graph
	walkers []walker
	frames  []frame
	err     error
}

// edge adds a CFG edge. The first failure sticks and later edges are ignored.
func (l *linker) edge(from, to graph.NId) {
	if l.err != nil || from == graph.NoNode || to == graph.NoNode {
		return
	}
	if err := l.g.AddEdge(from, to, graph.CFG); err != nil {
		l.err = err
	}
}

func (l *linker) push(f frame) { l.frames = append(l.frames, f) }

func (l *linker) pop() { l.frames = l.frames[:len(l.frames)-1] }

// innermost returns the closest frame of one of the given kinds.
func (l *linker) innermost(kinds ...frameKind) (frame, bool) {
	for i := len(l.frames) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if l.frames[i].kind == k {
				return l.frames[i], true
			}
		}
	}
	return frame{}, false
}

// mayThrow adds the alternate edges from a statement inside a try body to
// every catch clause of the innermost try.
func (l *linker) mayThrow(id graph.NId) {
	f, ok := l.innermost(tryFrame)
	if !ok {
		return
	}
	for _, c := range f.catches {
		l.edge(id, c)
	}
}

// sequence links statements in order and returns the entry of the first one
// that executes, or cont when none does.
func (l *linker) sequence(stmts []graph.NId, cont graph.NId) graph.NId {
	next := cont
	for i := len(stmts) - 1; i >= 0; i-- {
		next = l.link(stmts[i], next)
	}
	return next
}

// link dispatches one statement to the first walker that accepts its kind and
// returns the statement's entry.
func (l *linker) link(id, cont graph.NId) graph.NId {
	if id == graph.NoNode || l.err != nil {
		return cont
	}
	kind := l.g.Kind(id)
	for _, w := range l.walkers {
		if w.accepts(kind) {
			return w.link(l, id, cont)
		}
	}
	return cont
}
