package syntax

import (
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func goReaders() Table {
	return Table{
		"source_file":                 goReadSourceFile,
		"package_clause":              ignore,
		"import_declaration":          goReadImports,
		"import_spec":                 goReadImportSpec,
		"type_declaration":            ignore,
		"function_declaration":        goReadFunction,
		"method_declaration":          goReadFunction,
		"func_literal":                goReadFuncLiteral,
		"block":                       goReadBlock,
		"statement_list":              goReadBlock,
		"expression_statement":        readExpressionStatement,
		"empty_statement":             ignore,
		"labeled_statement":           javaReadLabeled,
		"go_statement":                readExpressionStatement,
		"defer_statement":             readExpressionStatement,
		"send_statement":              ignore,
		"goto_statement":              ignore,
		"short_var_declaration":       goReadShortVar,
		"var_declaration":             goReadSpecs,
		"const_declaration":           goReadSpecs,
		"var_spec":                    goReadSpec,
		"const_spec":                  goReadSpec,
		"assignment_statement":        goReadAssignment,
		"inc_statement":               readUpdate,
		"dec_statement":               readUpdate,
		"if_statement":                goReadIf,
		"for_statement":               goReadFor,
		"expression_switch_statement": goReadSwitch,
		"type_switch_statement":       goReadSwitch,
		"select_statement":            goReadSwitch,
		"fallthrough_statement":       goReadFallthrough,
		"return_statement":            readReturn,
		"break_statement":             readBreak,
		"continue_statement":          readContinue,
		"call_expression":             goReadCall,
		"argument_list":               goReadArguments,
		"selector_expression":         readMemberAccess("operand", "field"),
		"index_expression":            readIndexAccess("operand"),
		"slice_expression":            readFieldValue("operand"),
		"type_assertion_expression":   readFieldValue("operand"),
		"type_conversion_expression":  readFieldValue("operand"),
		"composite_literal":           goReadCompositeLiteral,
		"literal_value":               readCollection("literal"),
		"literal_element":             readInner,
		"keyed_element":               goReadKeyedElement,
		"expression_list":             goReadExpressionList,
		"binary_expression":           readBinary("left", "right"),
		"unary_expression":            readFieldValue("operand"),
		"parenthesized_expression":    readInner,
		"identifier":                  readIdentifier,
		"field_identifier":            readIdentifier,
		"package_identifier":          readIdentifier,
		"type_identifier":             readIdentifier,
		"qualified_type":              readIdentifier,
		"interpreted_string_literal":  readLiteral("string"),
		"raw_string_literal":          readLiteral("string"),
		"rune_literal":                readLiteral("char"),
		"int_literal":                 readLiteral("number"),
		"float_literal":               readLiteral("number"),
		"imaginary_literal":           readLiteral("number"),
		"true":                        readLiteral("boolean"),
		"false":                       readLiteral("boolean"),
		"nil":                         readLiteral("null"),
		"iota":                        readLiteral("number"),
	}
}

func goReadSourceFile(a *Args) graph.NId {
	var children []graph.NId
	for _, c := range a.Children() {
		if s := a.Statement(c); s != graph.NoNode {
			children = append(children, s)
		}
	}
	return a.Add(&graph.File{Path: a.tr.file.Path}, children...)
}

// goReadImports flattens grouped imports into one Import per spec.
func goReadImports(a *Args) graph.NId {
	var specs []graph.NId
	for _, c := range a.Children() {
		if a.LabelOf(c) == "import_spec_list" {
			for _, s := range a.ChildrenOf(c, "import_spec") {
				specs = append(specs, a.Translate(s))
			}
			continue
		}
		specs = append(specs, a.Translate(c))
	}
	switch len(specs) {
	case 0:
		return graph.NoNode
	case 1:
		return specs[0]
	default:
		return a.BlockOf(specs...)
	}
}

func goReadImportSpec(a *Args) graph.NId {
	path := a.TextOf(a.Field("path"))
	return a.Add(&graph.Import{Module: trimQuotes(path), Alias: a.TextOf(a.Field("name"))})
}

// goStatements expands statement_list wrappers found in newer grammars.
func goStatements(a *Args, id graph.NId) []graph.NId {
	var out []graph.NId
	for _, c := range a.ChildrenOf(id) {
		if a.LabelOf(c) == "statement_list" {
			out = append(out, a.ChildrenOf(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func goReadBlock(a *Args) graph.NId {
	return a.Block(goStatements(a, a.ID)...)
}

func goReadParameters(a *Args, list graph.NId) []graph.NId {
	var params []graph.NId
	for _, p := range a.ChildrenOf(list, "parameter_declaration", "variadic_parameter_declaration") {
		typ := a.FieldOf(p, "type")
		names := a.ChildrenOf(p, "identifier")
		if len(names) == 0 {
			// Unnamed parameters still take a position.
			params = append(params, parameter(a, p, graph.NoNode, typ, graph.NoNode))
			continue
		}
		for _, n := range names {
			params = append(params, parameter(a, n, n, typ, graph.NoNode))
		}
	}
	return params
}

func goReadFunction(a *Args) graph.NId {
	params := goReadParameters(a, a.Field("parameters"))
	body := graph.NoNode
	if b := a.Field("body"); b != graph.NoNode {
		body = a.Translate(b)
	}
	return addMethod(a, a.TextOf(a.Field("name")), params, body)
}

func goReadFuncLiteral(a *Args) graph.NId {
	params := goReadParameters(a, a.Field("parameters"))
	return addLambda(a, params, a.Translate(a.Field("body")))
}

// goReadExpressionList yields the expression itself when there is one and a
// tuple otherwise, as in multi-value returns.
func goReadExpressionList(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 1 {
		return a.Translate(children[0])
	}
	return newCollection(a, "tuple", children)
}

// goDeclare pairs names with values. When a single value feeds several names,
// as in `v, err := f()`, the value goes to the first non-blank name.
func goDeclare(a *Args, names, values []graph.NId, typeName string) graph.NId {
	var decls []graph.NId
	fed := false
	for i, n := range names {
		name := a.TextOf(n)
		if name == "_" {
			continue
		}
		v := graph.NoNode
		switch {
		case len(values) == len(names):
			v = a.Translate(values[i])
		case len(values) == 1 && !fed:
			v = a.Translate(values[0])
			fed = true
		}
		decls = append(decls, a.AddAt(n, &graph.Declaration{Var: name, VarType: typeName, ValueID: v}, v))
	}
	switch len(decls) {
	case 0:
		return graph.NoNode
	case 1:
		return decls[0]
	default:
		return a.BlockOf(decls...)
	}
}

func goReadShortVar(a *Args) graph.NId {
	return goDeclare(a, a.ChildrenOf(a.Field("left")), a.ChildrenOf(a.Field("right")), "")
}

func goReadSpecs(a *Args) graph.NId {
	var specs []graph.NId
	for _, c := range a.Children() {
		if a.LabelOf(c) == "var_spec_list" {
			for _, s := range a.ChildrenOf(c) {
				specs = append(specs, a.Translate(s))
			}
			continue
		}
		specs = append(specs, a.Translate(c))
	}
	return a.BlockOf(specs...)
}

func goReadSpec(a *Args) graph.NId {
	var values []graph.NId
	if v := a.Field("value"); v != graph.NoNode {
		values = a.ChildrenOf(v)
	}
	return goDeclare(a, a.Fields("name"), values, a.TextOf(a.Field("type")))
}

func goReadAssignment(a *Args) graph.NId {
	left := a.ChildrenOf(a.Field("left"))
	right := a.ChildrenOf(a.Field("right"))
	op := operatorOf(a, a.ID, "=")
	var out []graph.NId
	fed := false
	for i, l := range left {
		if a.TextOf(l) == "_" {
			continue
		}
		v := graph.NoNode
		switch {
		case len(right) == len(left):
			v = a.Translate(right[i])
		case len(right) == 1 && !fed:
			v = a.Translate(right[0])
			fed = true
		}
		out = append(out, a.AddAt(l, &graph.Assignment{Var: a.TextOf(l), Operator: op, ValueID: v}, v))
	}
	switch len(out) {
	case 0:
		return graph.NoNode
	case 1:
		return out[0]
	default:
		return a.BlockOf(out...)
	}
}

// goReadIf prepends the initializer statement to a block wrapping the if.
func goReadIf(a *Args) graph.NId {
	c := a.Translate(a.Field("condition"))
	t := a.Body(a.Field("consequence"))
	f := graph.NoNode
	if alt := a.Field("alternative"); alt != graph.NoNode {
		f = a.Body(alt)
	}
	stmt := a.Add(&graph.If{ConditionID: c, TrueID: t, FalseID: f}, c, t, f)
	if init := a.Field("initializer"); init != graph.NoNode {
		return a.BlockOf(a.Statement(init), stmt)
	}
	return stmt
}

func goReadFor(a *Args) graph.NId {
	body := a.Field("body")
	if clause := a.Match("range_clause")["range_clause"]; clause != graph.NoNode {
		l := newLoop(graph.LoopForEach)
		if vars := a.ChildrenOf(a.FieldOf(clause, "left")); len(vars) > 0 {
			l.Var = a.TextOf(vars[len(vars)-1])
		}
		l.IterableID = a.Translate(a.FieldOf(clause, "right"))
		l.BodyID = a.Body(body)
		return a.Add(l, l.IterableID, l.BodyID)
	}
	l := newLoop(graph.LoopFor)
	if clause := a.Match("for_clause")["for_clause"]; clause != graph.NoNode {
		if init := a.FieldOf(clause, "initializer"); init != graph.NoNode {
			l.InitID = a.Block(init)
		}
		l.ConditionID = a.Translate(a.FieldOf(clause, "condition"))
		if update := a.FieldOf(clause, "update"); update != graph.NoNode {
			l.UpdateID = a.Block(update)
		}
	} else {
		for _, c := range a.Children() {
			if c != body {
				l.ConditionID = a.Translate(c)
				break
			}
		}
	}
	l.BodyID = a.Body(body)
	return a.Add(l, l.InitID, l.ConditionID, l.UpdateID, l.BodyID)
}

func isGoCase(label string) bool {
	switch label {
	case "expression_case", "type_case", "communication_case", "default_case":
		return true
	}
	return false
}

func goReadSwitch(a *Args) graph.NId {
	subject := a.Translate(a.Field("value"))
	var cases []graph.NId
	for _, c := range a.Children() {
		label := a.LabelOf(c)
		if !isGoCase(label) {
			continue
		}
		var values []graph.NId
		if label == "expression_case" {
			for _, v := range a.ChildrenOf(a.FieldOf(c, "value")) {
				if tv := a.Translate(v); tv != graph.NoNode {
					values = append(values, tv)
				}
			}
		}
		var stmts []graph.NId
		for _, s := range goStatements(a, c) {
			switch a.node(s).Field {
			case "value", "type", "communication":
				continue
			}
			stmts = append(stmts, s)
		}
		cases = append(cases, addCase(a, c, values, a.Block(stmts...), label == "default_case"))
	}
	stmt := addSwitch(a, subject, cases)
	if init := a.Field("initializer"); init != graph.NoNode {
		return a.BlockOf(a.Statement(init), stmt)
	}
	return stmt
}

func goReadFallthrough(a *Args) graph.NId { return a.Add(&graph.Fallthrough{}) }

func goReadCall(a *Args) graph.NId {
	function := a.Field("function")
	object := graph.NoNode
	if a.LabelOf(function) == "selector_expression" {
		object = a.FieldOf(function, "operand")
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

func goReadArguments(a *Args) graph.NId {
	var raw []graph.NId
	for _, c := range a.Children() {
		if a.LabelOf(c) == "variadic_argument" {
			c = a.First(c)
		}
		raw = append(raw, c)
	}
	return a.Arguments(raw, nil)
}

func goReadCompositeLiteral(a *Args) graph.NId {
	return newCollection(a, a.TextOf(a.Field("type")), a.ChildrenOf(a.Field("body")))
}

// goReadKeyedElement keeps the value of `key: value` entries.
func goReadKeyedElement(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	return a.Translate(children[len(children)-1])
}
