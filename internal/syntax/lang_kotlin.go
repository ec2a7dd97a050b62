package syntax

import (
	"slices"
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// The Kotlin grammar names almost no fields, so these readers select
// children by type and position.

func kotlinReaders() Table {
	t := Table{
		"source_file":               ktReadFile,
		"package_header":            ignore,
		"file_annotation":           ignore,
		"shebang_line":              ignore,
		"import_list":               readBlock,
		"import_header":             readImport,
		"type_alias":                ignore,
		"modifiers":                 ignore,
		"annotation":                ignore,
		"label":                     ignore,
		"getter":                    ktReadAccessor,
		"setter":                    ktReadAccessor,
		"type_constraints":          ignore,
		"class_declaration":         ktReadClass,
		"object_declaration":        ktReadClass,
		"companion_object":          ktReadClass,
		"enum_entry":                ignore,
		"function_declaration":      ktReadFunction,
		"secondary_constructor":     ktReadConstructor,
		"anonymous_initializer":     ktReadInitializer,
		"function_body":             ktReadFunctionBody,
		"control_structure_body":    ktReadBody,
		"statements":                readBlock,
		"property_declaration":      ktReadProperty,
		"assignment":                ktReadAssignment,
		"if_expression":             ktReadIf,
		"when_expression":           ktReadWhen,
		"for_statement":             ktReadFor,
		"while_statement":           ktReadWhile,
		"do_while_statement":        ktReadDoWhile,
		"try_expression":            ktReadTry,
		"jump_expression":           ktReadJump,
		"call_expression":           ktReadCall,
		"value_argument":            readLast,
		"annotated_lambda":          readLast,
		"navigation_expression":     ktReadNavigation,
		"indexing_expression":       ktReadIndexing,
		"lambda_literal":            ktReadLambda,
		"anonymous_function":        ktReadAnonymousFunction,
		"parenthesized_expression":  readInner,
		"prefix_expression":         readLast,
		"postfix_expression":        ktReadPostfix,
		"as_expression":             readInner,
		"check_expression":          readLiteral("boolean"),
		"collection_literal":        readCollection("array"),
		"object_literal":            ktReadObjectLiteral,
		"simple_identifier":         readIdentifier,
		"type_identifier":           readIdentifier,
		"user_type":                 readIdentifier,
		"this_expression":           readIdentifier,
		"super_expression":          readIdentifier,
		"callable_reference":        readIdentifier,
		"string_literal":            ktReadString,
		"line_string_literal":       ktReadString,
		"multi_line_string_literal": ktReadString,
		"character_literal":         readLiteral("char"),
		"boolean_literal":           readLiteral("boolean"),
		"null_literal":              readLiteral("null"),
	}
	for _, binary := range []string{
		"additive_expression", "multiplicative_expression", "comparison_expression",
		"equality_expression", "conjunction_expression", "disjunction_expression",
		"elvis_expression", "range_expression", "infix_expression",
	} {
		t[binary] = readBinaryPositional
	}
	for _, number := range []string{
		"integer_literal", "long_literal", "hex_literal", "bin_literal", "unsigned_literal", "real_literal",
	} {
		t[number] = readLiteral("number")
	}
	return t
}

// ktStatements lists the raw statements held by id, expanding the statements
// wrapper and skipping the given types.
func ktStatements(a *Args, id graph.NId, skip ...string) []graph.NId {
	var out []graph.NId
	for _, c := range a.ChildrenOf(id) {
		label := a.LabelOf(c)
		switch {
		case label == "statements":
			out = append(out, a.ChildrenOf(c)...)
		case slices.Contains(skip, label):
		default:
			out = append(out, c)
		}
	}
	return out
}

func ktReadFile(a *Args) graph.NId {
	var children []graph.NId
	for _, c := range ktStatements(a, a.ID) {
		if s := a.Statement(c); s != graph.NoNode {
			children = append(children, s)
		}
	}
	return a.Add(&graph.File{Path: a.tr.file.Path}, children...)
}

func ktReadBody(a *Args) graph.NId {
	return a.Block(ktStatements(a, a.ID)...)
}

func ktReadClass(a *Args) graph.NId {
	name := a.Match("type_identifier")["type_identifier"]
	var members []graph.NId
	for _, c := range a.Children("class_body", "enum_class_body") {
		for _, m := range a.ChildrenOf(c) {
			if s := a.Statement(m); s != graph.NoNode {
				members = append(members, s)
			}
		}
	}
	return a.Add(&graph.Class{Name: a.TextOf(name)}, members...)
}

// ktReadParameters reads function_value_parameters, where a default value
// follows its parameter as a sibling.
func ktReadParameters(a *Args, list graph.NId) []graph.NId {
	var params []graph.NId
	children := a.ChildrenOf(list)
	for i, p := range children {
		if a.LabelOf(p) != "parameter" {
			continue
		}
		def := graph.NoNode
		if i+1 < len(children) {
			switch a.LabelOf(children[i+1]) {
			case "parameter", "parameter_modifiers":
			default:
				def = children[i+1]
			}
		}
		name := a.MatchOf(p, "simple_identifier")["simple_identifier"]
		typ := graph.NoNode
		if parts := a.ChildrenOf(p); len(parts) > 1 {
			typ = parts[len(parts)-1]
		}
		params = append(params, parameter(a, p, name, typ, def))
	}
	return params
}

func ktReadFunction(a *Args) graph.NId {
	name := a.Match("simple_identifier")["simple_identifier"]
	params := ktReadParameters(a, a.Match("function_value_parameters")["function_value_parameters"])
	return addMethod(a, a.TextOf(name), params, a.Translate(a.Match("function_body")["function_body"]))
}

func ktReadConstructor(a *Args) graph.NId {
	params := ktReadParameters(a, a.Match("function_value_parameters")["function_value_parameters"])
	body := a.Block(ktStatements(a, a.ID, "modifiers", "function_value_parameters", "constructor_delegation_call")...)
	return addMethod(a, "constructor", params, body)
}

func ktReadInitializer(a *Args) graph.NId {
	return addMethod(a, "<init>", nil, a.Block(ktStatements(a, a.ID)...))
}

// ktReadFunctionBody reads `= expr` bodies as a single return.
func ktReadFunctionBody(a *Args) graph.NId {
	if a.Attr(cst.AttrToken) == "=" {
		v := a.Translate(a.First(a.ID))
		return a.BlockOf(a.Add(&graph.Return{ValueID: v}, v))
	}
	return a.Block(ktStatements(a, a.ID)...)
}

func ktReadProperty(a *Args) graph.NId {
	decl := a.Match("variable_declaration")["variable_declaration"]
	if decl == graph.NoNode {
		decl = a.Match("multi_variable_declaration")["multi_variable_declaration"]
	}
	m := a.MatchOf(decl, "simple_identifier", "user_type")
	value := graph.NoNode
	var accessors []graph.NId
	for _, c := range a.Children() {
		switch a.LabelOf(c) {
		case "modifiers", "variable_declaration", "multi_variable_declaration",
			"type_constraints", "type_parameters":
		case "getter", "setter":
			accessors = append(accessors, c)
		case "property_delegate":
			value = a.First(c)
		default:
			value = c
		}
	}
	name := m["simple_identifier"]
	if name == graph.NoNode {
		name = decl
	}
	v := a.Translate(value)
	out := a.Add(&graph.Declaration{Var: a.TextOf(name), VarType: a.TextOf(m["user_type"]), ValueID: v}, v)
	if len(accessors) == 0 {
		return out
	}
	// Accessors with a body are methods of their own next to the field.
	stmts := []graph.NId{a.Linear(out)}
	for _, c := range accessors {
		stmts = append(stmts, a.Translate(c))
	}
	return a.BlockOf(stmts...)
}

// ktReadAccessor reads `get() = ...` and `set(v) { ... }`. Accessors without
// a body produce nothing.
func ktReadAccessor(a *Args) graph.NId {
	body := a.Match("function_body")["function_body"]
	if body == graph.NoNode {
		return graph.NoNode
	}
	name := "get"
	var params []graph.NId
	if a.Label() == "setter" {
		name = "set"
		for _, p := range a.Children("parameter_with_optional_type", "simple_identifier") {
			pname, typ := p, graph.NoNode
			if a.LabelOf(p) == "parameter_with_optional_type" {
				m := a.MatchOf(p, "simple_identifier", "user_type")
				pname, typ = m["simple_identifier"], m["user_type"]
			}
			params = append(params, parameter(a, p, pname, typ, graph.NoNode))
		}
	}
	return addMethod(a, name, params, a.Translate(body))
}

// ktReadObjectLiteral reads `object : Base { ... }` expressions as a class
// named after the first supertype.
func ktReadObjectLiteral(a *Args) graph.NId {
	name := "object"
	if specs := a.Children("delegation_specifier"); len(specs) > 0 {
		name, _, _ = strings.Cut(a.TextOf(specs[0]), "(")
	}
	var members []graph.NId
	for _, c := range a.Children("class_body") {
		for _, m := range a.ChildrenOf(c) {
			if s := a.Statement(m); s != graph.NoNode {
				members = append(members, s)
			}
		}
	}
	return a.Add(&graph.Class{Name: name}, members...)
}

func ktReadAssignment(a *Args) graph.NId {
	children := a.Children()
	if len(children) < 2 {
		return graph.NoNode
	}
	v := a.Translate(children[len(children)-1])
	return a.Add(&graph.Assignment{
		Var:      a.TextOf(children[0]),
		Operator: operatorOf(a, a.ID, "="),
		ValueID:  v,
	}, v)
}

func ktReadIf(a *Args) graph.NId {
	cond := graph.NoNode
	var branches []graph.NId
	for _, c := range a.Children() {
		if a.LabelOf(c) == "control_structure_body" {
			branches = append(branches, c)
		} else if cond == graph.NoNode {
			cond = c
		}
	}
	c := a.Translate(cond)
	t := graph.NoNode
	f := graph.NoNode
	switch len(branches) {
	case 0:
		t = a.BlockOf()
	case 1:
		t = a.Body(branches[0])
	default:
		t = a.Body(branches[0])
		f = a.Body(branches[1])
	}
	return a.Add(&graph.If{ConditionID: c, TrueID: t, FalseID: f}, c, t, f)
}

func ktReadWhen(a *Args) graph.NId {
	subject := graph.NoNode
	if s := a.Match("when_subject")["when_subject"]; s != graph.NoNode {
		children := a.ChildrenOf(s)
		if len(children) > 0 {
			subject = a.Translate(children[len(children)-1])
		}
	}
	var cases []graph.NId
	for _, entry := range a.Children("when_entry") {
		var values []graph.NId
		body := graph.NoNode
		for _, c := range a.ChildrenOf(entry) {
			switch a.LabelOf(c) {
			case "when_condition":
				if v := a.Translate(a.First(c)); v != graph.NoNode {
					values = append(values, v)
				}
			case "control_structure_body":
				body = c
			}
		}
		isDefault := len(a.ChildrenOf(entry, "when_condition")) == 0
		cases = append(cases, addCase(a, entry, values, a.Body(body), isDefault))
	}
	return addSwitch(a, subject, cases)
}

func ktReadFor(a *Args) graph.NId {
	l := newLoop(graph.LoopForEach)
	body := graph.NoNode
	for _, c := range a.Children() {
		switch a.LabelOf(c) {
		case "variable_declaration":
			l.Var = a.TextOf(a.MatchOf(c, "simple_identifier")["simple_identifier"])
		case "multi_variable_declaration":
			l.Var = a.TextOf(c)
		case "control_structure_body":
			body = c
		case "annotation":
		default:
			if l.IterableID == graph.NoNode {
				l.IterableID = a.Translate(c)
			}
		}
	}
	l.BodyID = a.Body(body)
	return a.Add(l, l.IterableID, l.BodyID)
}

func ktReadWhile(a *Args) graph.NId {
	l := newLoop(graph.LoopWhile)
	body := graph.NoNode
	for _, c := range a.Children() {
		if a.LabelOf(c) == "control_structure_body" {
			body = c
		} else if l.ConditionID == graph.NoNode {
			l.ConditionID = a.Translate(c)
		}
	}
	l.BodyID = a.Body(body)
	return a.Add(l, l.ConditionID, l.BodyID)
}

func ktReadDoWhile(a *Args) graph.NId {
	l := newLoop(graph.LoopDo)
	cond := graph.NoNode
	for _, c := range a.Children() {
		if a.LabelOf(c) == "control_structure_body" {
			l.BodyID = a.Body(c)
		} else {
			cond = c
		}
	}
	if l.BodyID == graph.NoNode {
		l.BodyID = a.BlockOf()
	}
	l.ConditionID = a.Translate(cond)
	return a.Add(l, l.BodyID, l.ConditionID)
}

func ktReadTry(a *Args) graph.NId {
	t := newTry()
	t.BodyID = a.Block(ktStatements(a, a.ID, "catch_block", "finally_block")...)
	for _, c := range a.Children("catch_block") {
		m := a.MatchOf(c, "simple_identifier", "user_type")
		cb := a.Block(ktStatements(a, c, "simple_identifier", "user_type", "annotation")...)
		t.CatchIDs = append(t.CatchIDs, a.AddAt(c, &graph.CatchClause{
			Var:      a.TextOf(m["simple_identifier"]),
			TypeName: a.TextOf(m["user_type"]),
			BodyID:   cb,
		}, cb))
	}
	if f := a.Match("finally_block")["finally_block"]; f != graph.NoNode {
		t.FinallyID = a.Block(ktStatements(a, f)...)
	}
	return addTry(a, t)
}

func ktReadJump(a *Args) graph.NId {
	keyword := a.Attr(cst.AttrKeyword)
	if keyword == "" {
		keyword = strings.Fields(a.Text() + " ")[0]
	}
	switch {
	case strings.HasPrefix(keyword, "return"):
		return readReturn(a)
	case strings.HasPrefix(keyword, "throw"):
		return readThrow(a)
	case strings.HasPrefix(keyword, "break"):
		return readBreak(a)
	case strings.HasPrefix(keyword, "continue"):
		return readContinue(a)
	}
	return graph.NoNode
}

func ktReadCall(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	callee := children[0]
	object := graph.NoNode
	if a.LabelOf(callee) == "navigation_expression" {
		object = a.First(callee)
	}
	var raw []graph.NId
	for _, suffix := range a.Children("call_suffix") {
		for _, c := range a.ChildrenOf(suffix) {
			switch a.LabelOf(c) {
			case "value_arguments":
				raw = append(raw, a.ChildrenOf(c, "value_argument")...)
			case "annotated_lambda":
				raw = append(raw, c)
			}
		}
	}
	o := a.Translate(object)
	args := a.Arguments(raw, func(arg graph.NId) (string, graph.NId, bool) {
		if a.LabelOf(arg) != "value_argument" || a.AttrOf(arg, cst.AttrToken) != "=" {
			return "", graph.NoNode, false
		}
		parts := a.ChildrenOf(arg)
		if len(parts) < 2 || a.LabelOf(parts[0]) != "simple_identifier" {
			return "", graph.NoNode, false
		}
		return a.TextOf(parts[0]), parts[len(parts)-1], true
	})
	return a.Add(&graph.MethodInvocation{
		Expression:  a.TextOf(callee),
		ObjectID:    o,
		ArgumentsID: args,
	}, o, args)
}

func ktReadNavigation(a *Args) graph.NId {
	o := a.Translate(a.First(a.ID))
	suffix := a.Match("navigation_suffix")["navigation_suffix"]
	return a.Add(&graph.MemberAccess{
		Expression: strings.ReplaceAll(a.Text(), "?.", "."),
		Member:     a.TextOf(a.First(suffix)),
		ObjectID:   o,
	}, o)
}

func ktReadIndexing(a *Args) graph.NId {
	obj := a.First(a.ID)
	o := a.Translate(obj)
	return a.Add(&graph.MemberAccess{Expression: a.TextOf(obj) + "[]", Member: "[]", ObjectID: o}, o)
}

// ktReadLambda binds `it` when the literal declares no parameters.
func ktReadLambda(a *Args) graph.NId {
	var params []graph.NId
	if list := a.Match("lambda_parameters")["lambda_parameters"]; list != graph.NoNode {
		for _, p := range a.ChildrenOf(list, "variable_declaration") {
			m := a.MatchOf(p, "simple_identifier", "user_type")
			params = append(params, parameter(a, p, m["simple_identifier"], m["user_type"], graph.NoNode))
		}
	} else {
		params = append(params, a.Add(&graph.Parameter{Name: "it", DefaultID: graph.NoNode}))
	}
	body := a.Block(ktStatements(a, a.ID, "lambda_parameters")...)
	return addLambda(a, params, body)
}

func ktReadAnonymousFunction(a *Args) graph.NId {
	params := ktReadParameters(a, a.Match("function_value_parameters")["function_value_parameters"])
	return addLambda(a, params, a.Translate(a.Match("function_body")["function_body"]))
}

func ktReadPostfix(a *Args) graph.NId {
	switch operatorOf(a, a.ID, "") {
	case "++", "--":
		return readUpdate(a)
	}
	return readInner(a)
}

// ktReadString drops string templates along with other interpolated strings.
func ktReadString(a *Args) graph.NId {
	if len(a.Children("interpolated_identifier", "interpolated_expression")) > 0 {
		return graph.NoNode
	}
	return a.Add(&graph.Literal{Value: a.Text(), ValueType: "string"})
}
