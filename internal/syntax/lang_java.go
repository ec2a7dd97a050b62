package syntax

import (
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func javaReaders() Table {
	t := Table{
		"program":                         readFile,
		"package_declaration":             ignore,
		"module_declaration":              ignore,
		"import_declaration":              readImport,
		"class_declaration":               readClass("name", "body"),
		"interface_declaration":           readClass("name", "body"),
		"enum_declaration":                readClass("name", "body"),
		"record_declaration":              readClass("name", "body"),
		"annotation_type_declaration":     ignore,
		"enum_constant":                   ignore,
		"enum_body_declarations":          readBlock,
		"constant_declaration":            javaReadVariables,
		"field_declaration":               javaReadVariables,
		"local_variable_declaration":      javaReadVariables,
		"method_declaration":              javaReadMethod,
		"constructor_declaration":         javaReadMethod,
		"compact_constructor_declaration": javaReadMethod,
		"static_initializer":              javaReadInitializer,
		"block":                           readBlock,
		"constructor_body":                readBlock,
		"expression_statement":            readExpressionStatement,
		"labeled_statement":               javaReadLabeled,
		"synchronized_statement":          javaReadSynchronized,
		"assert_statement":                ignore,
		"empty_statement":                 ignore,
		"local_class_declaration":         readClass("name", "body"),
		"if_statement":                    readIf("condition", "consequence", "alternative"),
		"while_statement":                 readWhile("condition", "body"),
		"do_statement":                    readDoWhile("body", "condition"),
		"for_statement":                   readCFor("init", "condition", "update", "body"),
		"enhanced_for_statement":          readForEach("name", "value", "body"),
		"try_statement":                   javaReadTry,
		"try_with_resources_statement":    javaReadTry,
		"switch_expression":               javaReadSwitch,
		"switch_statement":                javaReadSwitch,
		"return_statement":                readReturn,
		"yield_statement":                 readReturn,
		"throw_statement":                 readThrow,
		"break_statement":                 readBreak,
		"continue_statement":              readContinue,
		"explicit_constructor_invocation": javaReadConstructorCall,
		"method_invocation":               javaReadInvocation,
		"object_creation_expression":      javaReadObjectCreation,
		"array_creation_expression":       javaReadArrayCreation,
		"array_initializer":               readCollection("array"),
		"argument_list":                   javaReadArguments,
		"field_access":                    readMemberAccess("object", "field"),
		"array_access":                    readIndexAccess("array"),
		"assignment_expression":           readAssignment("left", "right"),
		"binary_expression":               readBinary("left", "right"),
		"unary_expression":                readFieldValue("operand"),
		"update_expression":               readUpdate,
		"cast_expression":                 readFieldValue("value"),
		"parenthesized_expression":        readInner,
		"ternary_expression":              readConditional("consequence", "alternative"),
		"instanceof_expression":           readLiteral("boolean"),
		"lambda_expression":               javaReadLambda,
		"method_reference":                readIdentifier,
		"identifier":                      readIdentifier,
		"scoped_identifier":               readIdentifier,
		"this":                            readIdentifier,
		"super":                           readIdentifier,
		"string_literal":                  readLiteral("string"),
		"text_block":                      readLiteral("string"),
		"character_literal":               readLiteral("char"),
		"true":                            readLiteral("boolean"),
		"false":                           readLiteral("boolean"),
		"null_literal":                    readLiteral("null"),
		"class_literal":                   readLiteral("class"),
		"type_pattern":                    ignore,
		"record_pattern":                  ignore,
		"guard":                           ignore,
	}
	for _, number := range []string{
		"decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
		"binary_integer_literal", "decimal_floating_point_literal", "hex_floating_point_literal",
	} {
		t[number] = readLiteral("number")
	}
	return t
}

// javaReadVariables reads `Type a = x, b;` into one Declaration per declarator.
func javaReadVariables(a *Args) graph.NId {
	typeName := a.TextOf(a.Field("type"))
	var decls []graph.NId
	for _, d := range a.Fields("declarator") {
		v := a.Translate(a.FieldOf(d, "value"))
		decls = append(decls, a.AddAt(d, &graph.Declaration{
			Var:     a.TextOf(a.FieldOf(d, "name")),
			VarType: typeName,
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

func javaReadParameters(a *Args, list graph.NId) []graph.NId {
	var params []graph.NId
	for _, p := range a.ChildrenOf(list) {
		switch a.LabelOf(p) {
		case "formal_parameter":
			params = append(params, parameter(a, p, a.FieldOf(p, "name"), a.FieldOf(p, "type"), graph.NoNode))
		case "spread_parameter":
			m := a.MatchOf(p, "variable_declarator")
			name := a.FieldOf(m["variable_declarator"], "name")
			params = append(params, parameter(a, p, name, a.First(p), graph.NoNode))
		case "identifier":
			params = append(params, parameter(a, p, p, graph.NoNode, graph.NoNode))
		}
	}
	return params
}

func javaReadMethod(a *Args) graph.NId {
	params := javaReadParameters(a, a.Field("parameters"))
	body := graph.NoNode
	if b := a.Field("body"); b != graph.NoNode {
		body = a.Translate(b)
	}
	return addMethod(a, a.TextOf(a.Field("name")), params, body)
}

func javaReadInitializer(a *Args) graph.NId {
	m := a.Match("block")
	return addMethod(a, "<clinit>", nil, a.Translate(m["block"]))
}

func javaReadLambda(a *Args) graph.NId {
	var params []graph.NId
	p := a.Field("parameters")
	switch a.LabelOf(p) {
	case "identifier":
		params = []graph.NId{parameter(a, p, p, graph.NoNode, graph.NoNode)}
	default:
		params = javaReadParameters(a, p)
	}
	return addLambda(a, params, a.Translate(a.Field("body")))
}

func javaReadLabeled(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	return a.Statement(children[len(children)-1])
}

func javaReadSynchronized(a *Args) graph.NId {
	return a.Translate(a.Field("body"))
}

func javaReadTry(a *Args) graph.NId {
	t := newTry()
	var body []graph.NId
	for _, r := range a.ChildrenOf(a.Field("resources"), "resource") {
		if name := a.FieldOf(r, "name"); name != graph.NoNode {
			v := a.Translate(a.FieldOf(r, "value"))
			body = append(body, a.AddAt(r, &graph.Declaration{
				Var:     a.TextOf(name),
				VarType: a.TextOf(a.FieldOf(r, "type")),
				ValueID: v,
			}, v))
		}
	}
	if len(body) > 0 {
		t.BodyID = a.BlockOf(append(body, a.Translate(a.Field("body")))...)
	} else {
		t.BodyID = a.Body(a.Field("body"))
	}
	for _, c := range a.Children("catch_clause") {
		param := a.MatchOf(c, "catch_formal_parameter")["catch_formal_parameter"]
		types := a.MatchOf(param, "catch_type")
		cb := a.Body(a.FieldOf(c, "body"))
		t.CatchIDs = append(t.CatchIDs, a.AddAt(c, &graph.CatchClause{
			Var:      a.TextOf(a.FieldOf(param, "name")),
			TypeName: a.TextOf(types["catch_type"]),
			BodyID:   cb,
		}, cb))
	}
	if f := a.Match("finally_clause")["finally_clause"]; f != graph.NoNode {
		t.FinallyID = a.Body(a.MatchOf(f, "block")["block"])
	}
	return addTry(a, t)
}

func javaReadSwitch(a *Args) graph.NId {
	subject := a.Translate(a.Field("condition"))
	var cases []graph.NId
	for _, group := range a.ChildrenOf(a.Field("body")) {
		var values []graph.NId
		var stmts []graph.NId
		isDefault := false
		for _, c := range a.ChildrenOf(group) {
			if a.LabelOf(c) == "switch_label" {
				if a.AttrOf(c, cst.AttrKeyword) == "default" {
					isDefault = true
				}
				for _, v := range a.ChildrenOf(c) {
					if tv := a.Translate(v); tv != graph.NoNode {
						values = append(values, tv)
					}
				}
				continue
			}
			if s := a.Statement(c); s != graph.NoNode {
				stmts = append(stmts, s)
			}
		}
		if a.LabelOf(group) == "switch_rule" {
			// Arrow cases never fall through.
			stmts = append(stmts, a.AddAt(group, &graph.Break{}))
		}
		cases = append(cases, addCase(a, group, values, a.BlockOf(stmts...), isDefault))
	}
	return addSwitch(a, subject, cases)
}

func javaReadInvocation(a *Args) graph.NId {
	object := a.Field("object")
	o := a.Translate(object)
	args := a.Translate(a.Field("arguments"))
	return a.Add(&graph.MethodInvocation{
		Expression:  dottedCall(a.TextOf(object), a.TextOf(a.Field("name"))),
		ObjectID:    o,
		ArgumentsID: args,
	}, o, args)
}

func javaReadConstructorCall(a *Args) graph.NId {
	args := a.Translate(a.Field("arguments"))
	return a.Add(&graph.MethodInvocation{
		Expression:  a.TextOf(a.Field("constructor")),
		ObjectID:    graph.NoNode,
		ArgumentsID: args,
	}, args)
}

func javaReadObjectCreation(a *Args) graph.NId {
	typeName := a.TextOf(a.Field("type"))
	args := a.Translate(a.Field("arguments"))
	children := []graph.NId{args}
	// Anonymous class bodies hang under the creation.
	if body := a.Match("class_body")["class_body"]; body != graph.NoNode {
		var members []graph.NId
		for _, m := range a.ChildrenOf(body) {
			if s := a.Statement(m); s != graph.NoNode {
				members = append(members, s)
			}
		}
		children = append(children, a.AddAt(body, &graph.Class{Name: typeName}, members...))
	}
	return a.Add(&graph.ObjectCreation{TypeName: typeName, ArgumentsID: args}, children...)
}

func javaReadArrayCreation(a *Args) graph.NId {
	if v := a.Field("value"); v != graph.NoNode {
		return a.Translate(v)
	}
	args := a.Arguments(nil, nil)
	return a.Add(&graph.ObjectCreation{TypeName: a.TextOf(a.Field("type")) + "[]", ArgumentsID: args}, args)
}

func javaReadArguments(a *Args) graph.NId {
	return a.Arguments(a.Children(), nil)
}
