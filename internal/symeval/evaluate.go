// File: internal/symeval/evaluate.go
package symeval

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/paths"
)

const (
	defaultLambdaDepth = 4
	// lambdaPaths bounds the paths explored inside one lambda body.
	lambdaPaths = 16
)

// Evaluation is the verdict for one target over one or more paths.
type Evaluation struct {
	Danger   bool
	Triggers Triggers
	// Sink reports whether the target resolved to a sink of the method.
	Sink bool
	// Path is the path that produced the verdict.
	Path paths.Path
}

// Option tunes an evaluation.
type Option func(*evaluator)

// WithoutMemoization evaluates every occurrence of a node again.
func WithoutMemoization() Option {
	return func(e *evaluator) { e.memo = nil }
}

// WithLambdaDepth bounds how deep lambda calls are followed.
func WithLambdaDepth(n int) Option {
	return func(e *evaluator) { e.maxDepth = n }
}

// Evaluate replays path, which must end at the statement anchoring target,
// and returns the taint of target. Every statement before the last binds its
// writes in order, so later writes win. It returns nil when the path is
// empty or target is not a step.
//
// Evaluate keeps all of its state per call and is safe to run concurrently
// over a shared graph and Method.
func Evaluate(m *Method, g *graph.Graph, path paths.Path, target graph.NId, opts ...Option) *Evaluation {
	if len(path) == 0 || g.Step(target) == nil {
		return nil
	}
	e := newEvaluator(m, g)
	for _, opt := range opts {
		opt(e)
	}
	for _, id := range path[:len(path)-1] {
		e.replay(id)
	}
	s := e.eval(target)
	return &Evaluation{
		Danger:   s.Danger,
		Triggers: s.Triggers,
		Sink:     e.sinks[target],
		Path:     path,
	}
}

type evaluator struct {
	m     *Method
	g     *graph.Graph
	vars  map[string]State
	types map[string]string
	// memo is nil when memoization is off.
	memo     map[graph.NId]State
	sinks    map[graph.NId]bool
	depth    int
	maxDepth int
}

func newEvaluator(m *Method, g *graph.Graph) *evaluator {
	return &evaluator{
		m:        m,
		g:        g,
		vars:     make(map[string]State),
		types:    make(map[string]string),
		memo:     make(map[graph.NId]State),
		sinks:    make(map[graph.NId]bool),
		maxDepth: defaultLambdaDepth,
	}
}

// fork returns an evaluator for a nested scope that sees the current
// bindings. Writes in the fork stay there.
func (e *evaluator) fork() *evaluator {
	f := newEvaluator(e.m, e.g)
	for k, v := range e.vars {
		f.vars[k] = v
	}
	for k, v := range e.types {
		f.types[k] = v
	}
	if e.memo == nil {
		f.memo = nil
	}
	f.depth = e.depth + 1
	f.maxDepth = e.maxDepth
	return f
}

// replay applies the effects of one statement on the path.
func (e *evaluator) replay(id graph.NId) {
	switch s := e.g.Step(id).(type) {
	case *graph.MethodDeclaration:
		e.bindParameters(s.ParameterIDs, true)
		return
	case *graph.Lambda:
		e.bindParameters(s.ParameterIDs, false)
		return
	case *graph.CatchClause:
		st := State{}
		if t, ok := e.m.ParameterTrigger(s.TypeName); ok && s.TypeName != "" {
			st = tainted(t)
		}
		if s.Var != "" {
			e.vars[s.Var] = st
		}
		return
	}

	order, err := graph.Linearize(e.g, id)
	if err != nil {
		return
	}
	for _, n := range order {
		switch e.g.Kind(n) {
		case graph.KindAssignment, graph.KindDeclaration, graph.KindMethodInvocation:
			e.eval(n)
		}
	}
	if l, ok := graph.As[*graph.Loop](e.g, id); ok && l.Variant == graph.LoopForEach && l.Var != "" {
		e.vars[l.Var] = e.eval(l.IterableID)
	}
}

// bindParameters binds declared parameters. Lambda parameters keep bindings
// made by a call.
func (e *evaluator) bindParameters(ids []graph.NId, overwrite bool) {
	for _, id := range ids {
		p, ok := graph.As[*graph.Parameter](e.g, id)
		if !ok {
			continue
		}
		if _, bound := e.vars[p.Name]; bound && !overwrite {
			continue
		}
		st := State{}
		if p.TypeName != "" {
			if t, ok := e.m.ParameterTrigger(p.TypeName); ok {
				st = tainted(t)
			}
			e.types[p.Name] = p.TypeName
		} else if t, ok := e.m.Source(p.Name); ok {
			st = tainted(t)
		}
		if !st.Danger && p.DefaultID != graph.NoNode {
			st = e.eval(p.DefaultID)
		}
		e.vars[p.Name] = st
	}
}

func (e *evaluator) eval(id graph.NId) State {
	if id == graph.NoNode {
		return State{}
	}
	if e.memo != nil {
		if s, ok := e.memo[id]; ok {
			return s
		}
	}
	step := e.g.Step(id)
	if step == nil {
		return State{}
	}
	var s State
	if f, ok := e.m.Evaluators[step.Kind()]; ok {
		s = f(&Args{Graph: e.g, Method: e.m, ID: id, e: e})
	} else {
		s = e.builtin(step)
	}
	if step.Info().Danger && !s.Danger {
		s.Danger = true
	}
	if e.memo != nil {
		e.memo[id] = s
	}
	return s
}

func (e *evaluator) builtin(step graph.Step) State {
	switch s := step.(type) {
	case *graph.SymbolLookup:
		// Unbound symbols are safe. Bare-name sources belong in an
		// Evaluators override.
		return e.vars[s.Symbol]
	case *graph.Parameter:
		return e.vars[s.Name]
	case *graph.MemberAccess:
		return e.member(s)
	case *graph.MethodInvocation:
		return e.invocation(s)
	case *graph.ObjectCreation:
		return e.creation(s)
	case *graph.ArgumentList:
		var st State
		for _, a := range s.ArgumentIDs {
			st = st.Or(e.eval(a))
		}
		return st
	case *graph.NamedArgument:
		return e.eval(s.ValueID)
	case *graph.BinaryOperation:
		return e.eval(s.LeftID).Or(e.eval(s.RightID))
	case *graph.Assignment:
		return e.assign(s)
	case *graph.Declaration:
		return e.declare(s)
	case *graph.Lambda:
		return State{fn: s}
	case *graph.Return:
		return e.eval(s.ValueID)
	case *graph.Throw:
		return e.eval(s.ValueID)
	}
	return State{}
}

// candidates lists the names a call or member is matched under: its written
// expression and, when the receiver type is known, Type.member.
func (e *evaluator) candidates(expression string, object graph.NId, member string) []string {
	out := []string{expression}
	var typ string
	switch o := e.g.Step(object).(type) {
	case *graph.SymbolLookup:
		typ = e.types[o.Symbol]
	case *graph.ObjectCreation:
		typ = o.TypeName
	}
	if typ != "" && member != "" {
		out = append(out, typ+"."+member)
		if b := baseType(typ); b != typ {
			out = append(out, b+"."+member)
		}
	}
	return out
}

func (e *evaluator) member(s *graph.MemberAccess) State {
	if st, ok := e.vars[s.Expression]; ok {
		return st
	}
	cands := e.candidates(s.Expression, s.ObjectID, s.Member)
	if t, ok := e.m.Source(cands...); ok {
		return tainted(t)
	}
	if e.m.Sanitizes(cands...) {
		return State{}
	}
	return e.eval(s.ObjectID)
}

func (e *evaluator) invocation(s *graph.MethodInvocation) State {
	cands := e.candidates(s.Expression, s.ObjectID, memberOf(s.Expression))
	if t, ok := e.m.Source(cands...); ok {
		return tainted(t)
	}
	if e.m.Sanitizes(cands...) {
		return State{}
	}
	if sink, ok := e.m.SinkFor(cands...); ok {
		e.sinks[s.ID] = true
		return e.eval(s.ObjectID).Or(e.arguments(s.ArgumentsID, sink.Args))
	}

	receiver := e.eval(s.ObjectID)
	fn := receiver.fn
	if s.ObjectID == graph.NoNode {
		fn = e.vars[s.Expression].fn
	}
	if fn != nil {
		return e.call(fn, s.ArgumentsID)
	}

	st := receiver.Or(e.eval(s.ArgumentsID))
	if e.m.Mutates(cands...) {
		if sym, ok := graph.As[*graph.SymbolLookup](e.g, s.ObjectID); ok {
			e.vars[sym.Symbol] = st
		}
	}
	return st
}

func (e *evaluator) creation(s *graph.ObjectCreation) State {
	cands := []string{s.TypeName}
	if b := baseType(s.TypeName); b != s.TypeName {
		cands = append(cands, b)
	}
	if t, ok := e.m.Source(cands...); ok {
		return tainted(t)
	}
	if e.m.Sanitizes(cands...) {
		return State{}
	}
	if sink, ok := e.m.SinkFor(cands...); ok {
		e.sinks[s.ID] = true
		return e.arguments(s.ArgumentsID, sink.Args)
	}
	return e.eval(s.ArgumentsID)
}

// arguments evaluates the given positions of an argument list only. No
// positions means every argument.
func (e *evaluator) arguments(id graph.NId, positions []int) State {
	if len(positions) == 0 {
		return e.eval(id)
	}
	al, ok := graph.As[*graph.ArgumentList](e.g, id)
	if !ok {
		return e.eval(id)
	}
	var st State
	for _, p := range positions {
		key := graph.PositionalKey(p)
		for i, k := range al.Keys {
			if k == key && i < len(al.ArgumentIDs) {
				st = st.Or(e.eval(al.ArgumentIDs[i]))
			}
		}
	}
	return st
}

func (e *evaluator) assign(s *graph.Assignment) State {
	st := e.eval(s.ValueID)
	switch s.Operator {
	case "", "=", ":=":
	default:
		st = e.vars[s.Var].Or(st)
	}
	e.vars[s.Var] = st
	e.noteType(s.Var, "", s.ValueID)

	// A dangerous write to obj.field or obj[i] taints obj as a whole.
	if root := rootOf(s.Var); root != s.Var && st.Danger {
		e.vars[root] = e.vars[root].Or(st)
	}
	return st
}

func (e *evaluator) declare(s *graph.Declaration) State {
	st := e.eval(s.ValueID)
	e.vars[s.Var] = st
	e.noteType(s.Var, s.VarType, s.ValueID)
	return st
}

func (e *evaluator) noteType(name, declared string, value graph.NId) {
	if declared != "" {
		e.types[name] = declared
		return
	}
	if oc, ok := graph.As[*graph.ObjectCreation](e.g, value); ok {
		e.types[name] = oc.TypeName
		return
	}
	delete(e.types, name)
}

func rootOf(v string) string {
	if i := strings.IndexAny(v, ".["); i > 0 {
		return v[:i]
	}
	return v
}

// call evaluates a lambda invoked with the given arguments: the value is
// dangerous when any return reachable in its body is.
func (e *evaluator) call(fn *graph.Lambda, argsID graph.NId) State {
	if e.depth >= e.maxDepth {
		return State{}
	}
	base := e.fork()
	al, _ := graph.As[*graph.ArgumentList](e.g, argsID)
	for i, name := range fn.Params {
		base.vars[name] = e.argument(al, i, name)
	}

	var st State
	for _, ret := range returnsOf(e.g, fn.BodyID) {
		seq, err := paths.Backward(e.g, ret)
		if err != nil {
			continue
		}
		for _, p := range paths.Collect(seq, lambdaPaths) {
			scope := base.fork()
			scope.depth = base.depth
			for _, id := range p[:len(p)-1] {
				scope.replay(id)
			}
			st = st.Or(scope.eval(ret))
		}
	}
	return st
}

// argument returns the value passed for parameter i named name.
func (e *evaluator) argument(al *graph.ArgumentList, i int, name string) State {
	if al == nil {
		return State{}
	}
	key := graph.PositionalKey(i)
	for j, k := range al.Keys {
		if (k == key || k == name) && j < len(al.ArgumentIDs) {
			return e.eval(al.ArgumentIDs[j])
		}
	}
	return State{}
}

// returnsOf collects the returns under body, leaving nested functions out.
func returnsOf(g *graph.Graph, body graph.NId) []graph.NId {
	var out []graph.NId
	var walk func(graph.NId)
	walk = func(id graph.NId) {
		switch g.Kind(id) {
		case graph.KindReturn:
			out = append(out, id)
			return
		case graph.KindLambda, graph.KindMethodDeclaration, graph.KindClass:
			return
		}
		children, _ := g.AdjacentAST(id)
		for _, c := range children {
			walk(c)
		}
	}
	walk(body)
	return out
}
