package syntax

import (
	"maps"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func javascriptReaders() Table {
	return Table{
		"program":                         readFile,
		"hash_bang_line":                  ignore,
		"import_statement":                jsReadImport,
		"export_statement":                jsReadExport,
		"expression_statement":            readExpressionStatement,
		"empty_statement":                 ignore,
		"debugger_statement":              ignore,
		"labeled_statement":               readFieldValue("body"),
		"lexical_declaration":             jsReadVariables,
		"variable_declaration":            jsReadVariables,
		"function_declaration":            jsReadFunction,
		"generator_function_declaration":  jsReadFunction,
		"method_definition":               jsReadFunction,
		"function":                        jsReadFunctionExpression,
		"function_expression":             jsReadFunctionExpression,
		"generator_function":              jsReadFunctionExpression,
		"arrow_function":                  jsReadArrow,
		"class_declaration":               readClass("name", "body"),
		"class":                           readClass("name", "body"),
		"field_definition":                jsReadField,
		"class_static_block":              readFieldValue("body"),
		"statement_block":                 readBlock,
		"else_clause":                     readElse,
		"if_statement":                    readIf("condition", "consequence", "alternative"),
		"for_statement":                   jsReadFor,
		"for_in_statement":                readForEach("left", "right", "body"),
		"while_statement":                 readWhile("condition", "body"),
		"do_statement":                    readDoWhile("body", "condition"),
		"try_statement":                   jsReadTry,
		"switch_statement":                jsReadSwitch,
		"return_statement":                readReturn,
		"throw_statement":                 readThrow,
		"break_statement":                 readBreak,
		"continue_statement":              readContinue,
		"call_expression":                 jsReadCall,
		"new_expression":                  jsReadNew,
		"arguments":                       jsReadArguments,
		"member_expression":               readMemberAccess("object", "property"),
		"subscript_expression":            readIndexAccess("object"),
		"assignment_expression":           readAssignment("left", "right"),
		"augmented_assignment_expression": readAssignment("left", "right"),
		"binary_expression":               readBinary("left", "right"),
		"unary_expression":                readFieldValue("argument"),
		"update_expression":               readUpdate,
		"parenthesized_expression":        readInner,
		"await_expression":                readInner,
		"yield_expression":                readInner,
		"spread_element":                  readInner,
		"ternary_expression":              readConditional("consequence", "alternative"),
		"sequence_expression":             readLast,
		"object":                          readCollection("object"),
		"array":                           readCollection("array"),
		"pair":                            readFieldValue("value"),
		"identifier":                      readIdentifier,
		"property_identifier":             readIdentifier,
		"shorthand_property_identifier":   readIdentifier,
		"private_property_identifier":     readIdentifier,
		"this":                            readIdentifier,
		"super":                           readIdentifier,
		"string":                          readLiteral("string"),
		"number":                          readLiteral("number"),
		"regex":                           readLiteral("regex"),
		"true":                            readLiteral("boolean"),
		"false":                           readLiteral("boolean"),
		"null":                            readLiteral("null"),
		"undefined":                       readLiteral("undefined"),
		"jsx_element":                     jsReadJSX,
		"jsx_self_closing_element":        jsReadJSX,
		"jsx_fragment":                    jsReadJSX,
		"jsx_expression":                  readInner,
	}
}

func typescriptReaders() Table {
	t := javascriptReaders()
	maps.Copy(t, Table{
		"abstract_class_declaration": readClass("name", "body"),
		"interface_declaration":      ignore,
		"type_alias_declaration":     ignore,
		"enum_declaration":           ignore,
		"ambient_declaration":        ignore,
		"module":                     readClass("name", "body"),
		"internal_module":            readClass("name", "body"),
		"abstract_method_signature":  ignore,
		"method_signature":           ignore,
		"function_signature":         ignore,
		"index_signature":            ignore,
		"public_field_definition":    jsReadField,
		"as_expression":              readInner,
		"satisfies_expression":       readInner,
		"non_null_expression":        readInner,
		"type_assertion":             readLast,
		"type_annotation":            ignore,
		"type_arguments":             ignore,
		"predefined_type":            readIdentifier,
		"type_identifier":            readIdentifier,
		"nested_type_identifier":     readIdentifier,
	})
	return t
}

func jsReadImport(a *Args) graph.NId {
	return a.Add(&graph.Import{Module: trimQuotes(a.TextOf(a.Field("source")))})
}

// jsReadExport keeps the exported declaration; bare re-exports carry no code.
func jsReadExport(a *Args) graph.NId {
	if d := a.Field("declaration"); d != graph.NoNode {
		return a.Statement(d)
	}
	if v := a.Field("value"); v != graph.NoNode {
		return a.Statement(v)
	}
	return graph.NoNode
}

func jsReadVariables(a *Args) graph.NId {
	var decls []graph.NId
	for _, d := range a.Children("variable_declarator") {
		v := a.Translate(a.FieldOf(d, "value"))
		decls = append(decls, a.AddAt(d, &graph.Declaration{
			Var:     a.TextOf(a.FieldOf(d, "name")),
			VarType: a.TextOf(a.First(a.FieldOf(d, "type"))),
			ValueID: v,
		}, v))
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

// jsReadParameters reads formal parameters, unwrapping TypeScript parameter
// wrappers and defaults.
func jsReadParameters(a *Args, list graph.NId) []graph.NId {
	var params []graph.NId
	for _, p := range a.ChildrenOf(list) {
		switch a.LabelOf(p) {
		case "identifier", "object_pattern", "array_pattern":
			params = append(params, parameter(a, p, p, graph.NoNode, graph.NoNode))
		case "assignment_pattern":
			params = append(params, parameter(a, p, a.FieldOf(p, "left"), graph.NoNode, a.FieldOf(p, "right")))
		case "rest_pattern":
			params = append(params, parameter(a, p, a.First(p), graph.NoNode, graph.NoNode))
		case "required_parameter", "optional_parameter":
			typ := a.First(a.FieldOf(p, "type"))
			params = append(params, parameter(a, p, a.FieldOf(p, "pattern"), typ, a.FieldOf(p, "value")))
		}
	}
	return params
}

func jsReadFunction(a *Args) graph.NId {
	params := jsReadParameters(a, a.Field("parameters"))
	return addMethod(a, a.TextOf(a.Field("name")), params, a.Translate(a.Field("body")))
}

func jsReadFunctionExpression(a *Args) graph.NId {
	params := jsReadParameters(a, a.Field("parameters"))
	return addLambda(a, params, a.Translate(a.Field("body")))
}

func jsReadArrow(a *Args) graph.NId {
	var params []graph.NId
	if p := a.Field("parameter"); p != graph.NoNode {
		params = []graph.NId{parameter(a, p, p, graph.NoNode, graph.NoNode)}
	} else {
		params = jsReadParameters(a, a.Field("parameters"))
	}
	return addLambda(a, params, a.Translate(a.Field("body")))
}

// jsReadField reads class fields as declarations of this.<name>.
func jsReadField(a *Args) graph.NId {
	name := a.Field("property")
	if name == graph.NoNode {
		name = a.Field("name")
	}
	v := a.Translate(a.Field("value"))
	return a.Add(&graph.Declaration{Var: "this." + a.TextOf(name), ValueID: v}, v)
}

func jsReadFor(a *Args) graph.NId {
	l := newLoop(graph.LoopFor)
	if init := a.Field("initializer"); init != graph.NoNode {
		l.InitID = a.Block(init)
	}
	cond := a.Field("condition")
	if a.LabelOf(cond) == "expression_statement" {
		cond = a.First(cond)
	}
	l.ConditionID = a.Translate(cond)
	if inc := a.Field("increment"); inc != graph.NoNode {
		l.UpdateID = a.Block(inc)
	}
	l.BodyID = a.Body(a.Field("body"))
	return a.Add(l, l.InitID, l.ConditionID, l.UpdateID, l.BodyID)
}

func jsReadTry(a *Args) graph.NId {
	t := newTry()
	t.BodyID = a.Body(a.Field("body"))
	if h := a.Field("handler"); h != graph.NoNode {
		cb := a.Body(a.FieldOf(h, "body"))
		t.CatchIDs = append(t.CatchIDs, a.AddAt(h, &graph.CatchClause{
			Var:    a.TextOf(a.FieldOf(h, "parameter")),
			BodyID: cb,
		}, cb))
	}
	if f := a.Field("finalizer"); f != graph.NoNode {
		t.FinallyID = a.Body(a.FieldOf(f, "body"))
	}
	return addTry(a, t)
}

func jsReadSwitch(a *Args) graph.NId {
	subject := a.Translate(a.Field("value"))
	var cases []graph.NId
	for _, c := range a.ChildrenOf(a.Field("body"), "switch_case", "switch_default") {
		var values []graph.NId
		if v := a.Translate(a.FieldOf(c, "value")); v != graph.NoNode {
			values = append(values, v)
		}
		var stmts []graph.NId
		for _, s := range a.ChildrenOf(c) {
			if a.node(s).Field == "body" {
				stmts = append(stmts, s)
			}
		}
		cases = append(cases, addCase(a, c, values, a.Block(stmts...), a.LabelOf(c) == "switch_default"))
	}
	return addSwitch(a, subject, cases)
}

func jsReadCall(a *Args) graph.NId {
	function := a.Field("function")
	object := graph.NoNode
	if a.LabelOf(function) == "member_expression" {
		object = a.FieldOf(function, "object")
	}
	o := a.Translate(object)
	args := a.Translate(a.Field("arguments"))
	if args == graph.NoNode {
		// Tagged templates.
		args = a.Arguments(nil, nil)
	}
	return a.Add(&graph.MethodInvocation{
		Expression:  a.TextOf(function),
		ObjectID:    o,
		ArgumentsID: args,
	}, o, args)
}

func jsReadNew(a *Args) graph.NId {
	args := a.Translate(a.Field("arguments"))
	if args == graph.NoNode {
		args = a.Arguments(nil, nil)
	}
	return a.Add(&graph.ObjectCreation{TypeName: a.TextOf(a.Field("constructor")), ArgumentsID: args}, args)
}

func jsReadArguments(a *Args) graph.NId {
	return a.Arguments(a.Children(), nil)
}

// jsReadJSX models an element as a collection of the embedded expressions in
// its attributes and children. Markup text carries no dataflow.
func jsReadJSX(a *Args) graph.NId {
	return newCollection(a, "jsx", jsxExpressions(a, a.ID, nil))
}

func jsxExpressions(a *Args, id graph.NId, out []graph.NId) []graph.NId {
	for _, c := range a.ChildrenOf(id) {
		switch a.LabelOf(c) {
		case "jsx_expression":
			out = append(out, c)
		case "jsx_opening_element", "jsx_attribute":
			out = jsxExpressions(a, c, out)
		case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
			// Nested elements are values of their own.
			out = append(out, c)
		}
	}
	return out
}
