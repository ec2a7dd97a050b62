// File: internal/syntax/common.go
package syntax

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Readers shared by several languages. Field-parametrized constructors cover
// grammars that name the same shape differently.

// ignore maps grammar types that carry no dataflow and must not be reported
// as missing.
func ignore(*Args) graph.NId { return graph.NoNode }

func readIdentifier(a *Args) graph.NId {
	return a.Add(&graph.SymbolLookup{Symbol: a.Text()})
}

func readLiteral(valueType string) Reader {
	return func(a *Args) graph.NId {
		return a.Add(&graph.Literal{Value: a.Text(), ValueType: valueType})
	}
}

// readInner yields the value of the only meaningful child, e.g. parentheses.
func readInner(a *Args) graph.NId {
	return a.Translate(a.First(a.ID))
}

// readLast yields the value of the last named child.
func readLast(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	return a.Translate(children[len(children)-1])
}

// readFieldValue yields the value of the child under field.
func readFieldValue(field string) Reader {
	return func(a *Args) graph.NId {
		return a.Translate(a.Field(field))
	}
}

func readExpressionStatement(a *Args) graph.NId {
	return a.Statement(a.First(a.ID))
}

func readBlock(a *Args) graph.NId {
	return a.Block(a.Children()...)
}

// readElse unwraps else clauses that hold a single statement or block.
func readElse(a *Args) graph.NId {
	return a.Statement(a.First(a.ID))
}

func readReturn(a *Args) graph.NId {
	v := a.Translate(a.First(a.ID))
	return a.Add(&graph.Return{ValueID: v}, v)
}

func readThrow(a *Args) graph.NId {
	v := a.Translate(a.First(a.ID))
	return a.Add(&graph.Throw{ValueID: v}, v)
}

func readBreak(a *Args) graph.NId { return a.Add(&graph.Break{}) }

func readContinue(a *Args) graph.NId { return a.Add(&graph.Continue{}) }

func readPass(a *Args) graph.NId { return a.Add(&graph.Pass{}) }

func operatorOf(a *Args, id graph.NId, fallback string) string {
	if op := a.AttrOf(id, "operator"); op != "" {
		return op
	}
	if op := a.AttrOf(id, cst.AttrToken); op != "" {
		return op
	}
	return fallback
}

func readBinary(left, right string) Reader {
	return func(a *Args) graph.NId {
		l := a.Translate(a.Field(left))
		r := a.Translate(a.Field(right))
		return a.Add(&graph.BinaryOperation{Operator: operatorOf(a, a.ID, ""), LeftID: l, RightID: r}, l, r)
	}
}

// readBinaryPositional handles grammars whose binary nodes carry no fields:
// the first and last named children are the operands.
func readBinaryPositional(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	l := a.Translate(children[0])
	r := graph.NoNode
	if len(children) > 1 {
		r = a.Translate(children[len(children)-1])
	}
	return a.Add(&graph.BinaryOperation{Operator: operatorOf(a, a.ID, ""), LeftID: l, RightID: r}, l, r)
}

// readConditional models c ? x : y as the union of both outcomes.
func readConditional(consequence, alternative string) Reader {
	return func(a *Args) graph.NId {
		l := a.Translate(a.Field(consequence))
		r := a.Translate(a.Field(alternative))
		return a.Add(&graph.BinaryOperation{Operator: "?:", LeftID: l, RightID: r}, l, r)
	}
}

func readAssignment(left, right string) Reader {
	return func(a *Args) graph.NId {
		target := a.Field(left)
		v := a.Translate(a.Field(right))
		return a.Add(&graph.Assignment{
			Var:      a.TextOf(target),
			Operator: operatorOf(a, a.ID, "="),
			ValueID:  v,
		}, v)
	}
}

// readUpdate turns x++ and friends into a compound assignment of x.
func readUpdate(a *Args) graph.NId {
	target := a.First(a.ID)
	if f := a.Field("argument"); f != graph.NoNode {
		target = f
	} else if f := a.Field("operand"); f != graph.NoNode {
		target = f
	}
	v := a.Translate(target)
	return a.Add(&graph.Assignment{Var: a.TextOf(target), Operator: operatorOf(a, a.ID, "++"), ValueID: v}, v)
}

// readMemberAccess reads obj.member shapes.
func readMemberAccess(object, member string) Reader {
	return func(a *Args) graph.NId {
		obj := a.Field(object)
		o := a.Translate(obj)
		return a.Add(&graph.MemberAccess{
			Expression: a.Text(),
			Member:     a.TextOf(a.Field(member)),
			ObjectID:   o,
		}, o)
	}
}

// readIndexAccess reads obj[index]; the index never taints the result.
func readIndexAccess(object string) Reader {
	return func(a *Args) graph.NId {
		obj := a.Field(object)
		if obj == graph.NoNode {
			obj = a.First(a.ID)
		}
		o := a.Translate(obj)
		return a.Add(&graph.MemberAccess{Expression: a.TextOf(obj) + "[]", Member: "[]", ObjectID: o}, o)
	}
}

func readIf(cond, consequence, alternative string) Reader {
	return func(a *Args) graph.NId {
		c := a.Translate(a.Field(cond))
		t := a.Body(a.Field(consequence))
		f := graph.NoNode
		if alt := a.Field(alternative); alt != graph.NoNode {
			f = a.Body(alt)
		}
		return a.Add(&graph.If{ConditionID: c, TrueID: t, FalseID: f}, c, t, f)
	}
}

func newLoop(variant graph.LoopVariant) *graph.Loop {
	return &graph.Loop{
		Variant:     variant,
		InitID:      graph.NoNode,
		ConditionID: graph.NoNode,
		UpdateID:    graph.NoNode,
		BodyID:      graph.NoNode,
		IterableID:  graph.NoNode,
	}
}

func readWhile(cond, body string) Reader {
	return func(a *Args) graph.NId {
		l := newLoop(graph.LoopWhile)
		l.ConditionID = a.Translate(a.Field(cond))
		l.BodyID = a.Body(a.Field(body))
		return a.Add(l, l.ConditionID, l.BodyID)
	}
}

func readDoWhile(body, cond string) Reader {
	return func(a *Args) graph.NId {
		l := newLoop(graph.LoopDo)
		l.BodyID = a.Body(a.Field(body))
		l.ConditionID = a.Translate(a.Field(cond))
		return a.Add(l, l.BodyID, l.ConditionID)
	}
}

// readForEach reads loops binding a variable to each element of an iterable.
func readForEach(variable, iterable, body string) Reader {
	return func(a *Args) graph.NId {
		l := newLoop(graph.LoopForEach)
		l.Var = a.TextOf(a.Field(variable))
		l.IterableID = a.Translate(a.Field(iterable))
		l.BodyID = a.Body(a.Field(body))
		return a.Add(l, l.IterableID, l.BodyID)
	}
}

// readCFor reads C-style for loops. Init and update may repeat.
func readCFor(init, cond, update, body string) Reader {
	return func(a *Args) graph.NId {
		l := newLoop(graph.LoopFor)
		if inits := a.Fields(init); len(inits) > 0 {
			l.InitID = a.Block(inits...)
		}
		l.ConditionID = a.Translate(a.Field(cond))
		if updates := a.Fields(update); len(updates) > 0 {
			l.UpdateID = a.Block(updates...)
		}
		l.BodyID = a.Body(a.Field(body))
		return a.Add(l, l.InitID, l.ConditionID, l.UpdateID, l.BodyID)
	}
}

func newTry() *graph.TryCatch {
	return &graph.TryCatch{BodyID: graph.NoNode, FinallyID: graph.NoNode}
}

func addTry(a *Args, t *graph.TryCatch) graph.NId {
	children := append([]graph.NId{t.BodyID}, t.CatchIDs...)
	children = append(children, t.FinallyID)
	return a.Add(t, children...)
}

func addSwitch(a *Args, subject graph.NId, cases []graph.NId) graph.NId {
	children := append([]graph.NId{subject}, cases...)
	return a.Add(&graph.Switch{SubjectID: subject, CaseIDs: cases}, children...)
}

// addCase stores a case label; no values makes it the default label.
func addCase(a *Args, at graph.NId, values []graph.NId, body graph.NId, isDefault bool) graph.NId {
	if isDefault {
		return a.AddAt(at, &graph.SwitchLabelDefault{BodyID: body}, body)
	}
	children := append(append([]graph.NId(nil), values...), body)
	return a.AddAt(at, &graph.SwitchLabelCase{ValueIDs: values, BodyID: body}, children...)
}

// addLambda stores an anonymous function. Expression bodies are wrapped in a
// block with a single return so every lambda body is linked the same way.
func addLambda(a *Args, params []graph.NId, body graph.NId) graph.NId {
	var names []string
	for _, p := range params {
		if prm, ok := graph.As[*graph.Parameter](a.tr.out, p); ok {
			names = append(names, prm.Name)
		}
	}
	if body != graph.NoNode && a.tr.out.Kind(body) != graph.KindBlock {
		ret := a.Add(&graph.Return{ValueID: body}, body)
		body = a.BlockOf(ret)
	}
	if body == graph.NoNode {
		body = a.BlockOf()
	}
	children := append(append([]graph.NId(nil), params...), body)
	return a.Add(&graph.Lambda{Params: names, ParameterIDs: params, BodyID: body}, children...)
}

// addMethod stores a function or method declaration.
func addMethod(a *Args, name string, params []graph.NId, body graph.NId) graph.NId {
	if body == graph.NoNode {
		body = a.BlockOf()
	}
	children := append(append([]graph.NId(nil), params...), body)
	return a.Add(&graph.MethodDeclaration{Name: name, ParameterIDs: params, BodyID: body}, children...)
}

// parameter stores a parameter read from raw name and type nodes.
func parameter(a *Args, at, name, typ, def graph.NId) graph.NId {
	d := a.Translate(def)
	return a.AddAt(at, &graph.Parameter{Name: a.TextOf(name), TypeName: a.TextOf(typ), DefaultID: d}, d)
}

// readFile collects top-level declarations and statements under a File.
func readFile(a *Args) graph.NId {
	var children []graph.NId
	for _, c := range a.Children() {
		if s := a.Statement(c); s != graph.NoNode {
			children = append(children, s)
		}
	}
	return a.Add(&graph.File{Path: a.tr.file.Path}, children...)
}

// readClass stores a class-like declaration whose members sit under body.
func readClass(name, body string) Reader {
	return func(a *Args) graph.NId {
		var members []graph.NId
		for _, m := range a.ChildrenOf(a.Field(body)) {
			if s := a.Statement(m); s != graph.NoNode {
				members = append(members, s)
			}
		}
		return a.Add(&graph.Class{Name: a.TextOf(a.Field(name))}, members...)
	}
}

// readImport records the first named child as the imported module.
func readImport(a *Args) graph.NId {
	return a.Add(&graph.Import{Module: trimQuotes(a.TextOf(a.First(a.ID)))})
}

func trimQuotes(s string) string { return strings.Trim(s, "\"'`") }

// newCollection models array and map literals as an object built from its elements.
func newCollection(a *Args, typeName string, elements []graph.NId) graph.NId {
	args := a.Arguments(elements, nil)
	return a.Add(&graph.ObjectCreation{TypeName: typeName, ArgumentsID: args}, args)
}

// readCollection reads literal containers whose named children are the elements.
func readCollection(typeName string) Reader {
	return func(a *Args) graph.NId {
		return newCollection(a, typeName, a.Children())
	}
}

func dottedCall(object, name string) string {
	if object == "" {
		return name
	}
	return object + "." + name
}
