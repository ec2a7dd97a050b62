package syntax

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func csharpReaders() Table {
	t := Table{
		"compilation_unit":                     readFile,
		"using_directive":                      readImport,
		"extern_alias_directive":               ignore,
		"attribute_list":                       ignore,
		"global_attribute":                     ignore,
		"namespace_declaration":                readClass("name", "body"),
		"file_scoped_namespace_declaration":    csharpReadFileScopedNamespace,
		"class_declaration":                    readClass("name", "body"),
		"struct_declaration":                   readClass("name", "body"),
		"interface_declaration":                readClass("name", "body"),
		"record_declaration":                   readClass("name", "body"),
		"record_struct_declaration":            readClass("name", "body"),
		"enum_declaration":                     ignore,
		"delegate_declaration":                 ignore,
		"event_field_declaration":              ignore,
		"event_declaration":                    ignore,
		"property_declaration":                 csharpReadProperty,
		"indexer_declaration":                  csharpReadProperty,
		"accessor_declaration":                 csharpReadAccessor,
		"operator_declaration":                 csharpReadOperator,
		"conversion_operator_declaration":      csharpReadOperator,
		"destructor_declaration":               csharpReadMethod,
		"method_declaration":                   csharpReadMethod,
		"constructor_declaration":              csharpReadMethod,
		"local_function_statement":             csharpReadMethod,
		"global_statement":                     readExpressionStatement,
		"field_declaration":                    csharpReadVariableHolder,
		"local_declaration_statement":          csharpReadVariableHolder,
		"variable_declaration":                 csharpReadVariables,
		"block":                                readBlock,
		"arrow_expression_clause":              csharpReadArrowBody,
		"expression_statement":                 readExpressionStatement,
		"empty_statement":                      ignore,
		"labeled_statement":                    javaReadLabeled,
		"checked_statement":                    csharpReadLastChild,
		"unsafe_statement":                     csharpReadLastChild,
		"lock_statement":                       csharpReadLastChild,
		"fixed_statement":                      csharpReadLastChild,
		"using_statement":                      csharpReadUsing,
		"yield_statement":                      readReturn,
		"if_statement":                         readIf("condition", "consequence", "alternative"),
		"while_statement":                      readWhile("condition", "body"),
		"do_statement":                         readDoWhile("body", "condition"),
		"for_statement":                        readCFor("initializer", "condition", "update", "body"),
		"foreach_statement":                    readForEach("left", "right", "body"),
		"try_statement":                        csharpReadTry,
		"switch_statement":                     csharpReadSwitch,
		"switch_expression":                    readCollection("switch"),
		"switch_expression_arm":                readLast,
		"return_statement":                     readReturn,
		"throw_statement":                      readThrow,
		"throw_expression":                     readThrow,
		"break_statement":                      readBreak,
		"continue_statement":                   readContinue,
		"goto_statement":                       ignore,
		"invocation_expression":                csharpReadInvocation,
		"object_creation_expression":           csharpReadObjectCreation,
		"implicit_object_creation_expression":  csharpReadObjectCreation,
		"anonymous_object_creation_expression": readCollection("object"),
		"array_creation_expression":            csharpReadArrayCreation,
		"implicit_array_creation_expression":   csharpReadArrayCreation,
		"stackalloc_array_creation_expression": csharpReadArrayCreation,
		"initializer_expression":               readCollection("array"),
		"tuple_expression":                     readCollection("tuple"),
		"argument_list":                        csharpReadArguments,
		"bracketed_argument_list":              csharpReadArguments,
		"argument":                             readLast,
		"member_access_expression":             readMemberAccess("expression", "name"),
		"conditional_access_expression":        csharpReadConditionalAccess,
		"member_binding_expression":            ignore,
		"element_access_expression":            readIndexAccess("expression"),
		"element_binding_expression":           ignore,
		"assignment_expression":                csharpReadAssignment,
		"binary_expression":                    readBinary("left", "right"),
		"prefix_unary_expression":              readInner,
		"postfix_unary_expression":             readUpdate,
		"cast_expression":                      readFieldValue("value"),
		"as_expression":                        readFieldValue("left"),
		"is_expression":                        readLiteral("boolean"),
		"is_pattern_expression":                readLiteral("boolean"),
		"typeof_expression":                    readLiteral("type"),
		"sizeof_expression":                    readLiteral("number"),
		"default_expression":                   readLiteral("default"),
		"parenthesized_expression":             readInner,
		"await_expression":                     readInner,
		"checked_expression":                   readInner,
		"ref_expression":                       readInner,
		"conditional_expression":               readConditional("consequence", "alternative"),
		"lambda_expression":                    csharpReadLambda,
		"anonymous_method_expression":          csharpReadLambda,
		"declaration_expression":               csharpReadDeclarationExpression,
		"identifier":                           readIdentifier,
		"generic_name":                         readIdentifier,
		"qualified_name":                       readIdentifier,
		"alias_qualified_name":                 readIdentifier,
		"predefined_type":                      readIdentifier,
		"this_expression":                      readIdentifier,
		"this":                                 readIdentifier,
		"base_expression":                      readIdentifier,
		"string_literal":                       readLiteral("string"),
		"verbatim_string_literal":              readLiteral("string"),
		"raw_string_literal":                   readLiteral("string"),
		"character_literal":                    readLiteral("char"),
		"integer_literal":                      readLiteral("number"),
		"real_literal":                         readLiteral("number"),
		"boolean_literal":                      readLiteral("boolean"),
		"null_literal":                         readLiteral("null"),
	}
	return t
}

func csharpReadFileScopedNamespace(a *Args) graph.NId {
	var members []graph.NId
	for _, c := range a.Children() {
		if a.node(c).Field == "name" {
			continue
		}
		if s := a.Statement(c); s != graph.NoNode {
			members = append(members, s)
		}
	}
	return a.Add(&graph.Class{Name: a.TextOf(a.Field("name"))}, members...)
}

func csharpReadParameters(a *Args, list graph.NId) []graph.NId {
	switch a.LabelOf(list) {
	case "identifier":
		return []graph.NId{parameter(a, list, list, graph.NoNode, graph.NoNode)}
	case "implicit_parameter":
		return []graph.NId{parameter(a, list, list, graph.NoNode, graph.NoNode)}
	}
	var params []graph.NId
	for _, p := range a.ChildrenOf(list, "parameter") {
		def := graph.NoNode
		if eq := a.MatchOf(p, "equals_value_clause")["equals_value_clause"]; eq != graph.NoNode {
			def = a.First(eq)
		}
		params = append(params, parameter(a, p, a.FieldOf(p, "name"), a.FieldOf(p, "type"), def))
	}
	return params
}

func csharpReadMethod(a *Args) graph.NId {
	params := csharpReadParameters(a, a.Field("parameters"))
	body := graph.NoNode
	if b := a.Field("body"); b != graph.NoNode {
		body = a.Translate(b)
	} else if arrow := a.Match("arrow_expression_clause")["arrow_expression_clause"]; arrow != graph.NoNode {
		body = a.Translate(arrow)
	}
	return addMethod(a, a.TextOf(a.Field("name")), params, body)
}

// csharpReadProperty reads properties and indexers. Each accessor with a
// body is a method; an initializer is a declaration of the property.
func csharpReadProperty(a *Args) graph.NId {
	name := a.TextOf(a.Field("name"))
	if a.Label() == "indexer_declaration" {
		name = "this"
	}
	// `=> expr` bodies are a getter taking the indexer parameters.
	getter := func(arrow graph.NId) graph.NId {
		var params []graph.NId
		if list := a.Field("parameters"); list != graph.NoNode {
			params = csharpReadParameters(a, list)
		}
		return addMethod(a, "get_"+name, params, a.Translate(arrow))
	}

	var stmts []graph.NId
	for _, acc := range a.ChildrenOf(a.Field("accessors"), "accessor_declaration") {
		stmts = append(stmts, a.Translate(acc))
	}
	if v := a.Field("value"); v != graph.NoNode {
		if a.LabelOf(v) == "arrow_expression_clause" {
			stmts = append(stmts, getter(v))
		} else {
			val := a.Translate(v)
			decl := a.Add(&graph.Declaration{Var: name, VarType: a.TextOf(a.Field("type")), ValueID: val}, val)
			stmts = append(stmts, a.Linear(decl))
		}
	} else if arrow := a.Match("arrow_expression_clause")["arrow_expression_clause"]; arrow != graph.NoNode {
		stmts = append(stmts, getter(arrow))
	}

	var kept []graph.NId
	for _, s := range stmts {
		if s != graph.NoNode {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return graph.NoNode
	case 1:
		return kept[0]
	}
	return a.BlockOf(kept...)
}

// csharpReadAccessor reads one get, set, init, add or remove accessor.
// Auto-implemented accessors have no body and produce nothing.
func csharpReadAccessor(a *Args) graph.NId {
	body := a.Field("body")
	if body == graph.NoNode {
		m := a.Match("block", "arrow_expression_clause")
		body = m["block"]
		if body == graph.NoNode {
			body = m["arrow_expression_clause"]
		}
	}
	if body == graph.NoNode {
		return graph.NoNode
	}
	name := a.TextOf(a.Field("name"))
	if name == "" {
		name = a.Attr("name")
	}
	if name == "" {
		name = a.Attr(cst.AttrKeyword)
	}
	var params []graph.NId
	if name == "set" || name == "init" {
		// The implicit parameter of setters.
		params = append(params, a.Add(&graph.Parameter{Name: "value", DefaultID: graph.NoNode}))
	}
	return addMethod(a, name, params, a.Translate(body))
}

// csharpReadOperator reads user-defined operators and conversions as methods
// named after the operator or the target type.
func csharpReadOperator(a *Args) graph.NId {
	op := a.Attr("operator")
	if op == "" {
		op = a.Attr(cst.AttrToken)
	}
	name := "operator " + op
	if a.Label() == "conversion_operator_declaration" {
		name = "operator " + a.TextOf(a.Field("type"))
	} else if op := a.Field("operator"); op != graph.NoNode {
		name = "operator " + a.TextOf(op)
	}
	params := csharpReadParameters(a, a.Field("parameters"))
	body := graph.NoNode
	if b := a.Field("body"); b != graph.NoNode {
		body = a.Translate(b)
	} else if arrow := a.Match("arrow_expression_clause")["arrow_expression_clause"]; arrow != graph.NoNode {
		body = a.Translate(arrow)
	}
	return addMethod(a, name, params, body)
}

// csharpReadArrowBody reads `=> expr` method bodies as a single return.
func csharpReadArrowBody(a *Args) graph.NId {
	v := a.Translate(a.First(a.ID))
	return a.BlockOf(a.Add(&graph.Return{ValueID: v}, v))
}

func csharpReadLambda(a *Args) graph.NId {
	params := a.Field("parameters")
	if params == graph.NoNode {
		params = a.Match("parameter_list")["parameter_list"]
	}
	body := a.Field("body")
	if body == graph.NoNode {
		body = a.Match("block")["block"]
	}
	return addLambda(a, csharpReadParameters(a, params), a.Translate(body))
}

// csharpReadVariableHolder unwraps statements holding a variable_declaration.
func csharpReadVariableHolder(a *Args) graph.NId {
	return a.Translate(a.Match("variable_declaration")["variable_declaration"])
}

// csharpDeclaratorValue returns the initializer of a declarator. Older
// grammars wrap it in equals_value_clause; newer ones inline it after '='.
func csharpDeclaratorValue(a *Args, d graph.NId) graph.NId {
	if eq := a.MatchOf(d, "equals_value_clause")["equals_value_clause"]; eq != graph.NoNode {
		return a.First(eq)
	}
	name := a.FieldOf(d, "name")
	children := a.ChildrenOf(d)
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if c == name || a.LabelOf(c) == "bracketed_argument_list" {
			continue
		}
		if i == 0 && name == graph.NoNode {
			break
		}
		return c
	}
	return graph.NoNode
}

func csharpReadVariables(a *Args) graph.NId {
	typeName := a.TextOf(a.Field("type"))
	var decls []graph.NId
	for _, d := range a.Children("variable_declarator") {
		name := a.FieldOf(d, "name")
		if name == graph.NoNode {
			name = a.First(d)
		}
		v := a.Translate(csharpDeclaratorValue(a, d))
		decls = append(decls, a.AddAt(d, &graph.Declaration{Var: a.TextOf(name), VarType: typeName, ValueID: v}, v))
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

func csharpReadDeclarationExpression(a *Args) graph.NId {
	return a.Add(&graph.SymbolLookup{Symbol: a.TextOf(a.Field("name"))})
}

func csharpReadLastChild(a *Args) graph.NId {
	children := a.Children()
	if len(children) == 0 {
		return graph.NoNode
	}
	return a.Statement(children[len(children)-1])
}

func csharpReadUsing(a *Args) graph.NId {
	var stmts []graph.NId
	for _, c := range a.Children() {
		if a.node(c).Field == "body" {
			continue
		}
		if s := a.Statement(c); s != graph.NoNode {
			stmts = append(stmts, s)
		}
	}
	stmts = append(stmts, a.Translate(a.Field("body")))
	return a.BlockOf(stmts...)
}

func csharpReadAssignment(a *Args) graph.NId {
	op := operatorOf(a, a.ID, "")
	if op == "" {
		op = a.TextOf(a.Match("assignment_operator")["assignment_operator"])
	}
	if op == "" {
		op = "="
	}
	v := a.Translate(a.Field("right"))
	return a.Add(&graph.Assignment{Var: a.TextOf(a.Field("left")), Operator: op, ValueID: v}, v)
}

func csharpReadInvocation(a *Args) graph.NId {
	function := a.Field("function")
	object := graph.NoNode
	if a.LabelOf(function) == "member_access_expression" {
		object = a.FieldOf(function, "expression")
	}
	o := a.Translate(object)
	args := a.Translate(a.Field("arguments"))
	return a.Add(&graph.MethodInvocation{
		Expression:  a.TextOf(function),
		ObjectID:    o,
		ArgumentsID: args,
	}, o, args)
}

func csharpReadObjectCreation(a *Args) graph.NId {
	args := a.Translate(a.Field("arguments"))
	if args == graph.NoNode {
		args = a.Translate(a.Match("argument_list")["argument_list"])
	}
	if args == graph.NoNode {
		args = a.Arguments(nil, nil)
	}
	return a.Add(&graph.ObjectCreation{TypeName: a.TextOf(a.Field("type")), ArgumentsID: args}, args)
}

func csharpReadArrayCreation(a *Args) graph.NId {
	if init := a.Match("initializer_expression")["initializer_expression"]; init != graph.NoNode {
		return a.Translate(init)
	}
	return newCollection(a, a.TextOf(a.Field("type"))+"[]", nil)
}

func csharpReadArguments(a *Args) graph.NId {
	return a.Arguments(a.Children("argument"), func(arg graph.NId) (string, graph.NId, bool) {
		name := a.FieldOf(arg, "name")
		if name == graph.NoNode {
			name = a.MatchOf(arg, "name_colon")["name_colon"]
		}
		if name == graph.NoNode {
			return "", graph.NoNode, false
		}
		children := a.ChildrenOf(arg)
		return strings.TrimSuffix(a.TextOf(name), ":"), children[len(children)-1], true
	})
}

func csharpReadConditionalAccess(a *Args) graph.NId {
	obj := a.Field("condition")
	if obj == graph.NoNode {
		obj = a.First(a.ID)
	}
	o := a.Translate(obj)
	return a.Add(&graph.MemberAccess{Expression: strings.ReplaceAll(a.Text(), "?.", "."), ObjectID: o}, o)
}

func csharpReadTry(a *Args) graph.NId {
	t := newTry()
	t.BodyID = a.Body(a.Field("body"))
	for _, c := range a.Children("catch_clause") {
		decl := a.MatchOf(c, "catch_declaration")["catch_declaration"]
		body := a.FieldOf(c, "body")
		if body == graph.NoNode {
			body = a.MatchOf(c, "block")["block"]
		}
		cb := a.Body(body)
		t.CatchIDs = append(t.CatchIDs, a.AddAt(c, &graph.CatchClause{
			Var:      a.TextOf(a.FieldOf(decl, "name")),
			TypeName: a.TextOf(a.FieldOf(decl, "type")),
			BodyID:   cb,
		}, cb))
	}
	if f := a.Match("finally_clause")["finally_clause"]; f != graph.NoNode {
		t.FinallyID = a.Body(a.MatchOf(f, "block")["block"])
	}
	return addTry(a, t)
}

func isCSharpStatement(label string) bool {
	return label == "block" || strings.HasSuffix(label, "_statement")
}

// csharpReadSwitch reads switch sections. Label nodes differ across grammar
// versions, so anything that is not a statement is taken as a case value.
func csharpReadSwitch(a *Args) graph.NId {
	subject := a.Translate(a.Field("value"))
	var cases []graph.NId
	for _, section := range a.ChildrenOf(a.Field("body"), "switch_section") {
		var values, stmts []graph.NId
		isDefault := a.AttrOf(section, cst.AttrKeyword) == "default"
		for _, c := range a.ChildrenOf(section) {
			label := a.LabelOf(c)
			switch {
			case label == "default_switch_label":
				isDefault = true
			case label == "case_switch_label" || label == "case_pattern_switch_label":
				for _, v := range a.ChildrenOf(c) {
					if tv := a.Translate(v); tv != graph.NoNode {
						values = append(values, tv)
					}
				}
			case isCSharpStatement(label):
				if s := a.Statement(c); s != graph.NoNode {
					stmts = append(stmts, s)
				}
			case label == "when_clause" || strings.HasSuffix(label, "pattern"):
			default:
				if tv := a.Translate(c); tv != graph.NoNode {
					values = append(values, tv)
				}
			}
		}
		if len(values) > 0 {
			isDefault = false
		}
		cases = append(cases, addCase(a, section, values, a.BlockOf(stmts...), isDefault))
	}
	return addSwitch(a, subject, cases)
}
