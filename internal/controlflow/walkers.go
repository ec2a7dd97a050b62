package controlflow

import (
	"slices"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// walker links one statement shape. A walker with no kinds accepts any kind
// and must come last in its table.
type walker struct {
	kinds []graph.Kind
	link  func(l *linker, id, cont graph.NId) graph.NId
}

func (w walker) accepts(k graph.Kind) bool {
	return len(w.kinds) == 0 || slices.Contains(w.kinds, k)
}

// fallthroughPolicy decides how a case body exits when it does not jump.
type fallthroughPolicy int

const (
	// fallAlways continues into the next case body, as in C.
	fallAlways fallthroughPolicy = iota
	// fallWhenEmpty only continues from sections without statements.
	fallWhenEmpty
	// fallExplicit only continues on a fallthrough statement.
	fallExplicit
	// fallNever leaves the switch after every case.
	fallNever
)

var tables = map[cst.Language][]walker{
	cst.Java:       walkersFor(fallAlways),
	cst.JavaScript: walkersFor(fallAlways),
	cst.TypeScript: walkersFor(fallAlways),
	cst.CSharp:     walkersFor(fallWhenEmpty),
	cst.Go:         walkersFor(fallExplicit),
	cst.Python:     walkersFor(fallNever),
	cst.Kotlin:     walkersFor(fallNever),
}

// walkersFor builds a walker table. Kind sets are disjoint, so table order
// only matters for the catch-all statement walker at the end.
func walkersFor(policy fallthroughPolicy) []walker {
	return []walker{
		{kinds: []graph.Kind{graph.KindBlock}, link: linkBlock},
		{kinds: []graph.Kind{graph.KindIf}, link: linkIf},
		{kinds: []graph.Kind{graph.KindLoop}, link: linkLoop},
		{kinds: []graph.Kind{graph.KindTryCatch}, link: linkTry},
		{kinds: []graph.Kind{graph.KindSwitch}, link: switchWalker(policy)},
		{kinds: []graph.Kind{graph.KindBreak, graph.KindContinue, graph.KindFallthrough}, link: linkJump},
		{kinds: []graph.Kind{graph.KindReturn, graph.KindThrow}, link: linkExit},
		{kinds: []graph.Kind{graph.KindMethodDeclaration, graph.KindClass, graph.KindImport, graph.KindLambda}, link: skip},
		{link: linkStatement},
	}
}

// skip leaves nested entries and declarations out of the enclosing flow.
func skip(_ *linker, _, cont graph.NId) graph.NId { return cont }

func linkStatement(l *linker, id, cont graph.NId) graph.NId {
	l.mayThrow(id)
	l.edge(id, cont)
	return id
}

// linkExit handles return and throw: the post-exit sentinel takes no edge and
// a throw only reaches the enclosing catches.
func linkExit(l *linker, id, _ graph.NId) graph.NId {
	l.mayThrow(id)
	return id
}

func linkJump(l *linker, id, cont graph.NId) graph.NId {
	target := cont
	switch l.g.Kind(id) {
	case graph.KindBreak:
		if f, ok := l.innermost(loopFrame, switchFrame); ok {
			target = f.brk
		}
	case graph.KindContinue:
		if f, ok := l.innermost(loopFrame); ok {
			target = f.cont
		}
	case graph.KindFallthrough:
		if f, ok := l.innermost(switchFrame); ok {
			target = f.fall
		}
	}
	l.edge(id, target)
	return id
}

func linkBlock(l *linker, id, cont graph.NId) graph.NId {
	b, ok := graph.As[*graph.Block](l.g, id)
	if !ok {
		return cont
	}
	return l.sequence(b.StatementIDs, cont)
}

func linkIf(l *linker, id, cont graph.NId) graph.NId {
	s, ok := graph.As[*graph.If](l.g, id)
	if !ok {
		return cont
	}
	l.mayThrow(id)
	l.edge(id, l.link(s.TrueID, cont))
	if s.FalseID != graph.NoNode {
		l.edge(id, l.link(s.FalseID, cont))
	} else {
		l.edge(id, cont)
	}
	return id
}

// linkLoop makes the loop node the condition check: it leads into the body
// and out to cont, and the body leads back to it, through the update step of
// C-style loops. Do loops enter through their body.
func linkLoop(l *linker, id, cont graph.NId) graph.NId {
	s, ok := graph.As[*graph.Loop](l.g, id)
	if !ok {
		return cont
	}
	l.mayThrow(id)
	head := id
	if s.UpdateID != graph.NoNode {
		head = l.link(s.UpdateID, id)
	}

	l.push(frame{kind: loopFrame, brk: cont, cont: head})
	body := l.link(s.BodyID, head)
	l.pop()

	if body != id {
		l.edge(id, body)
	}
	l.edge(id, cont)

	if s.Variant == graph.LoopDo {
		return body
	}
	if s.InitID != graph.NoNode {
		return l.link(s.InitID, id)
	}
	return id
}

// linkTry links catches and finally before the body so the body's
// statements can reach the catch clauses.
func linkTry(l *linker, id, cont graph.NId) graph.NId {
	s, ok := graph.As[*graph.TryCatch](l.g, id)
	if !ok {
		return cont
	}
	after := cont
	if s.FinallyID != graph.NoNode {
		after = l.link(s.FinallyID, cont)
	}
	for _, c := range s.CatchIDs {
		if cc, ok := graph.As[*graph.CatchClause](l.g, c); ok {
			l.edge(c, l.link(cc.BodyID, after))
		}
	}

	l.push(frame{kind: tryFrame, catches: s.CatchIDs})
	body := l.link(s.BodyID, after)
	l.pop()

	l.mayThrow(id)
	l.edge(id, body)
	return id
}

func caseBody(g *graph.Graph, id graph.NId) graph.NId {
	switch s := g.Step(id).(type) {
	case *graph.SwitchLabelCase:
		return s.BodyID
	case *graph.SwitchLabelDefault:
		return s.BodyID
	}
	return graph.NoNode
}

// emptyBody reports whether a case body only holds the placeholder Pass.
func emptyBody(g *graph.Graph, id graph.NId) bool {
	b, ok := graph.As[*graph.Block](g, id)
	if !ok {
		return false
	}
	return len(b.StatementIDs) == 1 && g.Kind(b.StatementIDs[0]) == graph.KindPass
}

func switchWalker(policy fallthroughPolicy) func(l *linker, id, cont graph.NId) graph.NId {
	return func(l *linker, id, cont graph.NId) graph.NId {
		s, ok := graph.As[*graph.Switch](l.g, id)
		if !ok {
			return cont
		}
		l.mayThrow(id)

		// Cases link backwards so each body knows the entry of the next one.
		next := cont
		hasDefault := false
		for i := len(s.CaseIDs) - 1; i >= 0; i-- {
			label := s.CaseIDs[i]
			if l.g.Kind(label) == graph.KindSwitchLabelDefault {
				hasDefault = true
			}
			body := caseBody(l.g, label)
			exit := cont
			switch policy {
			case fallAlways:
				exit = next
			case fallWhenEmpty:
				if emptyBody(l.g, body) {
					exit = next
				}
			}
			l.push(frame{kind: switchFrame, brk: cont, fall: next})
			entry := l.link(body, exit)
			l.pop()
			l.edge(label, entry)
			next = entry
		}
		for _, label := range s.CaseIDs {
			l.edge(id, label)
		}
		if !hasDefault {
			l.edge(id, cont)
		}
		return id
	}
}
