package syntax

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Args is what a reader sees: the raw node it was dispatched for, read access
// to that node's subtree and the output graph to add steps to.
type Args struct {
	tr       *translation
	ID       graph.NId
	Language cst.Language
}

func (a *Args) raw() *graph.Graph { return a.tr.file.Graph }

func (a *Args) node(id graph.NId) *graph.Node {
	n, err := a.raw().Node(id)
	if err != nil {
		a.tr.fail(err)
	}
	return n
}

// Label is the grammar type of the dispatched node.
func (a *Args) Label() string { return a.raw().Label(a.ID) }

// Text is the source text of the dispatched node.
func (a *Args) Text() string { return a.TextOf(a.ID) }

// TextOf returns the source text of a raw node with whitespace collapsed.
func (a *Args) TextOf(id graph.NId) string {
	if id == graph.NoNode {
		return ""
	}
	return strings.Join(strings.Fields(a.tr.file.Text(id)), " ")
}

// Attr reads an anonymous-token attribute of the dispatched node.
func (a *Args) Attr(key string) string { return a.node(a.ID).Attr(key) }

// AttrOf reads an anonymous-token attribute of a raw node.
func (a *Args) AttrOf(id graph.NId, key string) string {
	if id == graph.NoNode {
		return ""
	}
	return a.node(id).Attr(key)
}

// LabelOf returns the grammar type of a raw node.
func (a *Args) LabelOf(id graph.NId) string { return a.raw().Label(id) }

// Field returns the child held under a grammar field, or NoNode.
func (a *Args) Field(name string) graph.NId { return a.FieldOf(a.ID, name) }

// FieldOf returns the child of id held under a grammar field, or NoNode.
func (a *Args) FieldOf(id graph.NId, name string) graph.NId {
	if id == graph.NoNode {
		return graph.NoNode
	}
	c, err := a.raw().ChildByField(id, name)
	if err != nil {
		a.tr.fail(err)
	}
	return c
}

// Fields returns every child held under a repeated grammar field.
func (a *Args) Fields(name string) []graph.NId {
	var out []graph.NId
	for _, c := range a.Children() {
		if a.node(c).Field == name {
			out = append(out, c)
		}
	}
	return out
}

// Children returns the named children of the dispatched node.
func (a *Args) Children(labels ...string) []graph.NId { return a.ChildrenOf(a.ID, labels...) }

// ChildrenOf returns the named children of id, optionally filtered by type.
func (a *Args) ChildrenOf(id graph.NId, labels ...string) []graph.NId {
	if id == graph.NoNode {
		return nil
	}
	c, err := a.raw().AdjacentAST(id, labels...)
	if err != nil {
		a.tr.fail(err)
	}
	return c
}

// First returns the first named child of id that is not a comment, or NoNode.
func (a *Args) First(id graph.NId) graph.NId {
	for _, c := range a.ChildrenOf(id) {
		if !isComment(a.LabelOf(c)) {
			return c
		}
	}
	return graph.NoNode
}

// Match returns the single child of each requested type. Several children of
// one type abort the reader for this node.
func (a *Args) Match(labels ...string) map[string]graph.NId { return a.MatchOf(a.ID, labels...) }

// MatchOf is Match on an arbitrary raw node.
func (a *Args) MatchOf(id graph.NId, labels ...string) map[string]graph.NId {
	if id == graph.NoNode {
		out := make(map[string]graph.NId, len(labels))
		for _, l := range labels {
			out[l] = graph.NoNode
		}
		return out
	}
	m, err := a.raw().MatchAST(id, labels...)
	if err != nil {
		a.tr.fail(err)
	}
	return m
}

// Translate dispatches a raw child to its reader.
func (a *Args) Translate(id graph.NId) graph.NId {
	return a.tr.translate(id)
}

// Statement translates a raw child standing on its own. Expressions become
// linear so the control-flow linker sequences them.
func (a *Args) Statement(id graph.NId) graph.NId {
	return a.Linear(a.Translate(id))
}

// Linear marks an already translated expression as standing on its own.
func (a *Args) Linear(out graph.NId) graph.NId {
	if out == graph.NoNode {
		return out
	}
	if s := a.tr.out.Step(out); s != nil && s.Kind().Expression() {
		if err := a.tr.out.SetLinear(out); err != nil {
			a.tr.fail(err)
		}
	}
	return out
}

// Add stores a step positioned at the dispatched node.
func (a *Args) Add(s graph.Step, children ...graph.NId) graph.NId {
	return a.AddAt(a.ID, s, children...)
}

// AddAt stores a step positioned at the raw node at.
func (a *Args) AddAt(at graph.NId, s graph.Step, children ...graph.NId) graph.NId {
	id, err := a.tr.out.AddStep(s, a.node(at).Pos, children...)
	if err != nil {
		a.tr.fail(err)
	}
	return id
}

// Block translates raw statements into a Block. An empty block gets a Pass
// so branches always have an entry.
func (a *Args) Block(raw ...graph.NId) graph.NId {
	var stmts []graph.NId
	for _, r := range raw {
		if s := a.Statement(r); s != graph.NoNode {
			stmts = append(stmts, s)
		}
	}
	return a.BlockOf(stmts...)
}

// BlockOf wraps already translated statements into a Block.
func (a *Args) BlockOf(stmts ...graph.NId) graph.NId {
	var kept []graph.NId
	for _, s := range stmts {
		if s != graph.NoNode {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, a.Add(&graph.Pass{}))
	}
	return a.Add(&graph.Block{StatementIDs: kept}, kept...)
}

// Body translates a raw branch or loop body. Raw blocks are translated by
// their reader; single statements are wrapped; NoNode gives a Pass block.
func (a *Args) Body(id graph.NId) graph.NId {
	if id == graph.NoNode {
		return a.BlockOf()
	}
	out := a.Statement(id)
	if out == graph.NoNode {
		return a.BlockOf()
	}
	if a.tr.out.Kind(out) == graph.KindBlock {
		return out
	}
	return a.BlockOf(out)
}

// Arguments builds an ArgumentList from raw argument nodes. named extracts a
// keyword argument's name and value when the raw node is one. Positions count
// every positional argument, including ones dropped during translation.
func (a *Args) Arguments(raw []graph.NId, named func(graph.NId) (string, graph.NId, bool)) graph.NId {
	var ids []graph.NId
	var keys []string
	pos := 0
	for _, r := range raw {
		if named != nil {
			if name, value, ok := named(r); ok {
				v := a.Translate(value)
				arg := a.AddAt(r, &graph.NamedArgument{Name: name, ValueID: v}, v)
				ids = append(ids, arg)
				keys = append(keys, name)
				continue
			}
		}
		key := graph.PositionalKey(pos)
		pos++
		if v := a.Translate(r); v != graph.NoNode {
			ids = append(ids, v)
			keys = append(keys, key)
		}
	}
	return a.Add(&graph.ArgumentList{ArgumentIDs: ids, Keys: keys}, ids...)
}

func isComment(label string) bool {
	return strings.Contains(label, "comment")
}
