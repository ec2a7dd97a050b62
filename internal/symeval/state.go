package symeval

import (
	"maps"
	"slices"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Triggers is the set of source labels that made a value dangerous.
type Triggers map[string]struct{}

// NewTriggers returns a set holding names.
func NewTriggers(names ...string) Triggers {
	t := make(Triggers, len(names))
	for _, n := range names {
		t[n] = struct{}{}
	}
	return t
}

// Has reports whether name is in the set.
func (t Triggers) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Sorted returns the names in lexical order.
func (t Triggers) Sorted() []string {
	return slices.Sorted(maps.Keys(t))
}

// union returns a fresh set; states share trigger sets, so neither argument
// is modified.
func union(a, b Triggers) Triggers {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := make(Triggers, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}

// State is the taint of one value. The zero State is safe.
type State struct {
	Danger   bool
	Triggers Triggers
	// fn is the function the value refers to, when it is a lambda.
	fn *graph.Lambda
}

func tainted(trigger string) State {
	return State{Danger: true, Triggers: NewTriggers(trigger)}
}

// Or merges two values flowing into one. Only dangerous values contribute
// triggers.
func (s State) Or(o State) State {
	out := State{Danger: s.Danger || o.Danger}
	if s.Danger {
		out.Triggers = s.Triggers
	}
	if o.Danger {
		out.Triggers = union(out.Triggers, o.Triggers)
	}
	return out
}
