package symeval

import (
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Evaluator overrides how one kind of step is evaluated for a Method.
type Evaluator func(a *Args) State

// Args is what an Evaluator sees of the evaluation in progress.
type Args struct {
	Graph  *graph.Graph
	Method *Method
	ID     graph.NId
	e      *evaluator
}

// Step returns the step being evaluated.
func (a *Args) Step() graph.Step { return a.Graph.Step(a.ID) }

// Eval evaluates another node in the same scope.
func (a *Args) Eval(id graph.NId) State { return a.e.eval(id) }

// Default runs the built-in evaluation of the current step, so an override
// can refine it instead of replacing it.
func (a *Args) Default() State {
	s := a.Step()
	if s == nil {
		return State{}
	}
	return a.e.builtin(s)
}

// Lookup returns the current binding of a variable.
func (a *Args) Lookup(name string) State { return a.e.vars[name] }

// Bind sets a variable for the rest of the path.
func (a *Args) Bind(name string, s State) { a.e.vars[name] = s }

// Tainted returns a dangerous state carrying trigger.
func Tainted(trigger string) State { return tainted(trigger) }
