package symeval

import (
	"fmt"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/paths"
)

// Mode combines the verdicts of several paths.
type Mode int

const (
	// Any is dangerous when some path is.
	Any Mode = iota
	// All is dangerous only when every path is.
	All
)

func (m Mode) String() string {
	switch m {
	case Any:
		return "any"
	case All:
		return "all"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "any":
		return Any, nil
	case "all":
		return All, nil
	}
	return Any, fmt.Errorf("unknown aggregation mode %q", s)
}

// Aggregate combines per-path evaluations. Triggers are the union over the
// dangerous paths, and Path is the first dangerous one. It returns nil when
// there is nothing to combine.
func Aggregate(mode Mode, evals []*Evaluation) *Evaluation {
	out := &Evaluation{}
	n := 0
	dangerous := 0
	for _, ev := range evals {
		if ev == nil {
			continue
		}
		n++
		out.Sink = out.Sink || ev.Sink
		if !ev.Danger {
			continue
		}
		dangerous++
		out.Triggers = union(out.Triggers, ev.Triggers)
		if out.Path == nil {
			out.Path = ev.Path
		}
	}
	if n == 0 {
		return nil
	}
	switch mode {
	case All:
		out.Danger = dangerous == n
	default:
		out.Danger = dangerous > 0
	}
	if !out.Danger {
		out.Triggers = nil
		out.Path = nil
	}
	return out
}

// EvaluatePaths evaluates target over at most maxPaths backward paths and
// aggregates the verdicts. A maxPaths below one follows every path.
func EvaluatePaths(m *Method, g *graph.Graph, target graph.NId, mode Mode, maxPaths int, opts ...Option) (*Evaluation, error) {
	seq, err := paths.Backward(g, target)
	if err != nil {
		return nil, err
	}
	var evals []*Evaluation
	for _, p := range paths.Collect(seq, maxPaths) {
		evals = append(evals, Evaluate(m, g, p, target, opts...))
	}
	return Aggregate(mode, evals), nil
}
