package syntax

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func pythonReaders() Table {
	return Table{
		"module":                   readFile,
		"future_import_statement":  ignore,
		"import_statement":         pyReadImport,
		"import_from_statement":    pyReadImport,
		"function_definition":      pyReadFunction,
		"class_definition":         readClass("name", "body"),
		"decorated_definition":     readFieldValue("definition"),
		"block":                    readBlock,
		"expression_statement":     pyReadExpressionStatement,
		"assignment":               pyReadAssignment,
		"augmented_assignment":     readAssignment("left", "right"),
		"global_statement":         ignore,
		"nonlocal_statement":       ignore,
		"assert_statement":         ignore,
		"delete_statement":         ignore,
		"print_statement":          pyReadPrint,
		"exec_statement":           pyReadPrint,
		"pass_statement":           readPass,
		"break_statement":          readBreak,
		"continue_statement":       readContinue,
		"return_statement":         readReturn,
		"raise_statement":          readThrow,
		"if_statement":             pyReadIf,
		"elif_clause":              pyReadIf,
		"else_clause":              readFieldValue("body"),
		"for_statement":            readForEach("left", "right", "body"),
		"while_statement":          readWhile("condition", "body"),
		"try_statement":            pyReadTry,
		"with_statement":           pyReadWith,
		"match_statement":          pyReadMatch,
		"call":                     pyReadCall,
		"argument_list":            pyReadArguments,
		"generator_expression":     readCollection("generator"),
		"list_comprehension":       readCollection("list"),
		"dictionary_comprehension": readCollection("dict"),
		"set_comprehension":        readCollection("set"),
		"for_in_clause":            readFieldValue("right"),
		"if_clause":                ignore,
		"attribute":                readMemberAccess("object", "attribute"),
		"subscript":                readIndexAccess("value"),
		"binary_operator":          readBinary("left", "right"),
		"boolean_operator":         readBinary("left", "right"),
		"comparison_operator":      readBinaryPositional,
		"not_operator":             readFieldValue("argument"),
		"unary_operator":           readFieldValue("argument"),
		"conditional_expression":   pyReadConditional,
		"parenthesized_expression": readInner,
		"await":                    readInner,
		"list_splat":               readInner,
		"dictionary_splat":         readInner,
		"lambda":                   pyReadLambda,
		"named_expression":         pyReadWalrus,
		"list":                     readCollection("list"),
		"tuple":                    readCollection("tuple"),
		"set":                      readCollection("set"),
		"dictionary":               readCollection("dict"),
		"pair":                     readFieldValue("value"),
		"expression_list":          readCollection("tuple"),
		"pattern_list":             readCollection("tuple"),
		"identifier":               readIdentifier,
		"string":                   pyReadString,
		"concatenated_string":      pyReadConcatenated,
		"integer":                  readLiteral("number"),
		"float":                    readLiteral("number"),
		"true":                     readLiteral("boolean"),
		"false":                    readLiteral("boolean"),
		"none":                     readLiteral("null"),
		"ellipsis":                 readLiteral("ellipsis"),
		"type":                     ignore,
	}
}

func pyReadImport(a *Args) graph.NId {
	module := a.Field("module_name")
	if module == graph.NoNode {
		module = a.Field("name")
	}
	return a.Add(&graph.Import{Module: a.TextOf(module)})
}

func pyReadExpressionStatement(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 1 {
		return a.Statement(children[0])
	}
	return a.Block(children...)
}

// pyReadPrint reads Python 2 print and exec statements as calls.
func pyReadPrint(a *Args) graph.NId {
	args := a.Arguments(a.Children(), nil)
	return a.Add(&graph.MethodInvocation{
		Expression:  strings.TrimSuffix(a.Label(), "_statement"),
		ObjectID:    graph.NoNode,
		ArgumentsID: args,
	}, args)
}

// pyReadAssignment handles annotated and chained forms; `x: int` alone
// declares without a value.
func pyReadAssignment(a *Args) graph.NId {
	left := a.Field("left")
	right := a.Field("right")
	typ := a.TextOf(a.Field("type"))
	if a.LabelOf(right) == "assignment" {
		// a = b = value: bind the innermost first, then the outer name to it.
		inner := a.Translate(right)
		v := a.Add(&graph.SymbolLookup{Symbol: a.TextOf(a.FieldOf(right, "left"))})
		outer := a.Add(&graph.Assignment{Var: a.TextOf(left), Operator: "=", ValueID: v}, v)
		return a.BlockOf(a.Linear(inner), a.Linear(outer))
	}
	v := a.Translate(right)
	if typ != "" {
		return a.Add(&graph.Declaration{Var: a.TextOf(left), VarType: typ, ValueID: v}, v)
	}
	return a.Add(&graph.Assignment{Var: a.TextOf(left), Operator: "=", ValueID: v}, v)
}

func pyReadWalrus(a *Args) graph.NId {
	v := a.Translate(a.Field("value"))
	return a.Add(&graph.Assignment{Var: a.TextOf(a.Field("name")), Operator: ":=", ValueID: v}, v)
}

func pyReadParameters(a *Args, list graph.NId) []graph.NId {
	var params []graph.NId
	for _, p := range a.ChildrenOf(list) {
		switch a.LabelOf(p) {
		case "identifier":
			params = append(params, parameter(a, p, p, graph.NoNode, graph.NoNode))
		case "typed_parameter":
			params = append(params, parameter(a, p, a.First(p), a.FieldOf(p, "type"), graph.NoNode))
		case "default_parameter", "typed_default_parameter":
			params = append(params, parameter(a, p, a.FieldOf(p, "name"), a.FieldOf(p, "type"), a.FieldOf(p, "value")))
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, parameter(a, p, a.First(p), graph.NoNode, graph.NoNode))
		}
	}
	return params
}

func pyReadFunction(a *Args) graph.NId {
	params := pyReadParameters(a, a.Field("parameters"))
	return addMethod(a, a.TextOf(a.Field("name")), params, a.Translate(a.Field("body")))
}

func pyReadLambda(a *Args) graph.NId {
	params := pyReadParameters(a, a.Field("parameters"))
	return addLambda(a, params, a.Translate(a.Field("body")))
}

// pyReadIf chains elif clauses as nested ifs in the false branch.
func pyReadIf(a *Args) graph.NId {
	c := a.Translate(a.Field("condition"))
	t := a.Body(a.Field("consequence"))
	alts := a.Fields("alternative")
	f := graph.NoNode
	if len(alts) > 0 {
		f = pyChainElse(a, alts)
	}
	return a.Add(&graph.If{ConditionID: c, TrueID: t, FalseID: f}, c, t, f)
}

func pyChainElse(a *Args, alts []graph.NId) graph.NId {
	head := alts[0]
	if a.LabelOf(head) == "else_clause" {
		return a.Body(head)
	}
	c := a.Translate(a.FieldOf(head, "condition"))
	t := a.Body(a.FieldOf(head, "consequence"))
	f := graph.NoNode
	if len(alts) > 1 {
		f = pyChainElse(a, alts[1:])
	}
	return a.BlockOf(a.AddAt(head, &graph.If{ConditionID: c, TrueID: t, FalseID: f}, c, t, f))
}

func pyReadConditional(a *Args) graph.NId {
	children := a.Children()
	if len(children) < 3 {
		return graph.NoNode
	}
	l := a.Translate(children[0])
	r := a.Translate(children[2])
	return a.Add(&graph.BinaryOperation{Operator: "?:", LeftID: l, RightID: r}, l, r)
}

func pyReadTry(a *Args) graph.NId {
	t := newTry()
	t.BodyID = a.Body(a.Field("body"))
	for _, c := range a.Children("except_clause", "except_group_clause") {
		var typeName, name string
		body := graph.NoNode
		for _, e := range a.ChildrenOf(c) {
			switch a.LabelOf(e) {
			case "block":
				body = e
			case "as_pattern":
				typeName = a.TextOf(a.First(e))
				name = a.TextOf(a.FieldOf(e, "alias"))
			default:
				if typeName == "" {
					typeName = a.TextOf(e)
				} else if name == "" {
					name = a.TextOf(e)
				}
			}
		}
		cb := a.Body(body)
		t.CatchIDs = append(t.CatchIDs, a.AddAt(c, &graph.CatchClause{Var: name, TypeName: typeName, BodyID: cb}, cb))
	}
	var tail []graph.NId
	if e := a.Match("else_clause")["else_clause"]; e != graph.NoNode {
		tail = append(tail, a.Body(a.FieldOf(e, "body")))
	}
	if f := a.Match("finally_clause")["finally_clause"]; f != graph.NoNode {
		tail = append(tail, a.Body(a.MatchOf(f, "block")["block"]))
	}
	if len(tail) > 0 {
		t.FinallyID = a.BlockOf(tail...)
	}
	return addTry(a, t)
}

// pyReadWith binds each `expr as name` item before running the body.
func pyReadWith(a *Args) graph.NId {
	var stmts []graph.NId
	for _, clause := range a.Children("with_clause") {
		for _, item := range a.ChildrenOf(clause, "with_item") {
			value := a.FieldOf(item, "value")
			if a.LabelOf(value) == "as_pattern" {
				v := a.Translate(a.First(value))
				stmts = append(stmts, a.AddAt(item, &graph.Assignment{
					Var:      a.TextOf(a.FieldOf(value, "alias")),
					Operator: "=",
					ValueID:  v,
				}, v))
				continue
			}
			stmts = append(stmts, a.Statement(value))
		}
	}
	stmts = append(stmts, a.Translate(a.Field("body")))
	return a.BlockOf(stmts...)
}

func pyReadMatch(a *Args) graph.NId {
	subject := a.Translate(a.Field("subject"))
	var cases []graph.NId
	for _, c := range a.ChildrenOf(a.Field("body"), "case_clause") {
		isDefault := false
		for _, p := range a.ChildrenOf(c, "case_pattern") {
			if a.TextOf(p) == "_" {
				isDefault = true
			}
		}
		cases = append(cases, addCase(a, c, nil, a.Body(a.FieldOf(c, "consequence")), isDefault))
	}
	return addSwitch(a, subject, cases)
}

func pyReadCall(a *Args) graph.NId {
	function := a.Field("function")
	object := graph.NoNode
	if a.LabelOf(function) == "attribute" {
		object = a.FieldOf(function, "object")
	}
	o := a.Translate(object)
	args := a.Translate(a.Field("arguments"))
	if args == graph.NoNode {
		args = a.Arguments(nil, nil)
	}
	return a.Add(&graph.MethodInvocation{
		Expression:  a.TextOf(function),
		ObjectID:    o,
		ArgumentsID: args,
	}, o, args)
}

func pyReadArguments(a *Args) graph.NId {
	return a.Arguments(a.Children(), func(arg graph.NId) (string, graph.NId, bool) {
		if a.LabelOf(arg) != "keyword_argument" {
			return "", graph.NoNode, false
		}
		return a.TextOf(a.FieldOf(arg, "name")), a.FieldOf(arg, "value"), true
	})
}

// pyReadString drops f-strings along with every other interpolated string.
func pyReadString(a *Args) graph.NId {
	if len(a.Children("interpolation")) > 0 {
		return graph.NoNode
	}
	return a.Add(&graph.Literal{Value: a.Text(), ValueType: "string"})
}

func pyReadConcatenated(a *Args) graph.NId {
	for _, s := range a.Children("string") {
		if len(a.ChildrenOf(s, "interpolation")) > 0 {
			return graph.NoNode
		}
	}
	return a.Add(&graph.Literal{Value: a.Text(), ValueType: "string"})
}
