package graph

import "fmt"

// AddStep stores s as a new node positioned at pos, wires the given children
// under it with AST edges and fills in the step's Meta. NoNode children are
// skipped. Dependencies are the children that produce a value.
func (g *Graph) AddStep(s Step, pos Position, children ...NId) (NId, error) {
	id := g.AddNode(Node{Label: string(s.Kind()), Pos: pos})
	for _, c := range children {
		if c == NoNode {
			continue
		}
		if err := g.AddEdge(id, c, AST); err != nil {
			return id, fmt.Errorf("adding %s step: %w", s.Kind(), err)
		}
	}
	return id, g.SetStep(id, s)
}

// SetStep attaches s to an existing node, replacing any previous step, and
// relabels the node with the step kind. The Meta is rebuilt from the node's
// current AST children.
func (g *Graph) SetStep(id NId, s Step) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	m := s.Info()
	m.ID = id
	m.Linear = s.Kind().Statement()
	m.Dependencies = m.Dependencies[:0]
	for _, c := range g.children[id] {
		if cs := g.nodes[c].Step; cs != nil && cs.Kind().Expression() && !cs.Info().Linear {
			m.Dependencies = append(m.Dependencies, c)
		}
	}
	m.Stack = stackEffect(s)
	n.Label = string(s.Kind())
	n.Step = s
	return nil
}

// SetLinear turns an expression into a statement, as happens to calls and
// assignments written on their own line.
func (g *Graph) SetLinear(id NId) error {
	s, err := g.StepOf(id)
	if err != nil {
		return err
	}
	s.Info().Linear = true
	s.Info().Stack = stackEffect(s)
	return nil
}

// StepOf returns the step held by id. Raw nodes have none and yield an error.
func (g *Graph) StepOf(id NId) (Step, error) {
	n, err := g.Node(id)
	if err != nil {
		return nil, err
	}
	if n.Step == nil {
		return nil, fmt.Errorf("node %s (%s) carries no syntax step", id, n.Label)
	}
	return n.Step, nil
}

// Step returns the step held by id, or nil for raw and unknown nodes.
func (g *Graph) Step(id NId) Step {
	if !g.Has(id) {
		return nil
	}
	return g.nodes[id].Step
}

// Kind returns the step kind of id, or the empty kind.
func (g *Graph) Kind(id NId) Kind {
	if s := g.Step(id); s != nil {
		return s.Kind()
	}
	return ""
}

// As returns the step under id when it has the concrete type T.
func As[T Step](g *Graph, id NId) (T, bool) {
	s, ok := g.Step(id).(T)
	return s, ok
}

func stackEffect(s Step) int {
	m := s.Info()
	if s.Kind().Expression() && !m.Linear {
		return 1 - len(m.Dependencies)
	}
	return -len(m.Dependencies)
}

// Linearize returns the postfix order of the dependency tree rooted at id,
// which is the order a stack machine evaluates it in. id itself comes last.
func Linearize(g *Graph, id NId) ([]NId, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	var out []NId
	var walk func(NId)
	walk = func(n NId) {
		if s := g.Step(n); s != nil {
			for _, d := range s.Info().Dependencies {
				walk(d)
			}
		}
		out = append(out, n)
	}
	walk(id)
	return out, nil
}
