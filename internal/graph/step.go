// File: internal/graph/step.go
package graph

import "strconv"

// Kind names a syntax step variant. It doubles as the node label of translated
// nodes so AdjacentAST and MatchAST filter steps by kind.
type Kind string

const (
	KindFile               Kind = "File"
	KindImport             Kind = "Import"
	KindClass              Kind = "Class"
	KindMethodDeclaration  Kind = "MethodDeclaration"
	KindParameter          Kind = "Parameter"
	KindBlock              Kind = "Block"
	KindLiteral            Kind = "Literal"
	KindSymbolLookup       Kind = "SymbolLookup"
	KindDeclaration        Kind = "Declaration"
	KindAssignment         Kind = "Assignment"
	KindMethodInvocation   Kind = "MethodInvocation"
	KindObjectCreation     Kind = "ObjectCreation"
	KindMemberAccess       Kind = "MemberAccess"
	KindArgumentList       Kind = "ArgumentList"
	KindNamedArgument      Kind = "NamedArgument"
	KindBinaryOperation    Kind = "BinaryOperation"
	KindIf                 Kind = "If"
	KindLoop               Kind = "Loop"
	KindTryCatch           Kind = "TryCatch"
	KindCatchClause        Kind = "CatchClause"
	KindSwitch             Kind = "Switch"
	KindSwitchLabelCase    Kind = "SwitchLabelCase"
	KindSwitchLabelDefault Kind = "SwitchLabelDefault"
	KindLambda             Kind = "LambdaExpression"
	KindReturn             Kind = "Return"
	KindThrow              Kind = "Throw"
	KindBreak              Kind = "Break"
	KindContinue           Kind = "Continue"
	KindFallthrough        Kind = "Fallthrough"
	KindPass               Kind = "Pass"
)

// Expression reports whether steps of this kind produce a value.
func (k Kind) Expression() bool {
	switch k {
	case KindLiteral, KindSymbolLookup, KindAssignment, KindMethodInvocation,
		KindObjectCreation, KindMemberAccess, KindArgumentList, KindNamedArgument,
		KindBinaryOperation, KindLambda:
		return true
	}
	return false
}

// Statement reports whether steps of this kind take part in control flow on
// their own. Expressions become statements when they stand alone, see SetLinear.
func (k Kind) Statement() bool {
	switch k {
	case KindFile, KindMethodDeclaration, KindDeclaration, KindIf, KindLoop,
		KindTryCatch, KindCatchClause, KindSwitch, KindSwitchLabelCase,
		KindSwitchLabelDefault, KindReturn, KindThrow, KindBreak, KindContinue,
		KindFallthrough, KindPass:
		return true
	}
	return false
}

// Control reports whether the kind only steers execution and yields no value.
func (k Kind) Control() bool {
	switch k {
	case KindIf, KindLoop, KindTryCatch, KindSwitch, KindSwitchLabelCase,
		KindSwitchLabelDefault, KindBreak, KindContinue, KindFallthrough, KindPass:
		return true
	}
	return false
}

// Meta is the record shared by every step.
type Meta struct {
	ID NId
	// Dependencies are the value-producing children in evaluation order.
	Dependencies []NId
	// Danger forces the step to evaluate as dangerous.
	Danger bool
	// Linear marks steps that are nodes of the control-flow graph.
	Linear bool
	// Stack is the net number of values the step leaves on an evaluation stack.
	Stack int
}

// Info gives access to the shared record.
func (m *Meta) Info() *Meta { return m }

// Step is the closed set of normalized syntax nodes.
type Step interface {
	Kind() Kind
	Info() *Meta
}

type LoopVariant string

const (
	LoopFor     LoopVariant = "for"
	LoopWhile   LoopVariant = "while"
	LoopForEach LoopVariant = "foreach"
	LoopDo      LoopVariant = "do"
)

type File struct {
	Meta
	Path string
}

type Import struct {
	Meta
	Module string
	Alias  string
}

type Class struct {
	Meta
	Name string
}

type MethodDeclaration struct {
	Meta
	Name         string
	ParameterIDs []NId
	BodyID       NId
}

type Parameter struct {
	Meta
	Name      string
	TypeName  string
	DefaultID NId
}

type Block struct {
	Meta
	StatementIDs []NId
}

type Literal struct {
	Meta
	Value     string
	ValueType string
}

type SymbolLookup struct {
	Meta
	Symbol string
}

type Declaration struct {
	Meta
	Var     string
	VarType string
	ValueID NId
}

type Assignment struct {
	Meta
	Var string
	// Operator is "=" for plain writes; compound operators keep the prior value.
	Operator string
	ValueID  NId
}

type MethodInvocation struct {
	Meta
	// Expression is the dotted call target, e.g. "request.getParameter".
	Expression  string
	ObjectID    NId
	ArgumentsID NId
}

type ObjectCreation struct {
	Meta
	TypeName    string
	ArgumentsID NId
}

type MemberAccess struct {
	Meta
	Expression string
	Member     string
	ObjectID   NId
}

// ArgumentList keeps one key per argument: "__N__" for positional ones and
// the parameter name for named ones.
type ArgumentList struct {
	Meta
	ArgumentIDs []NId
	Keys        []string
}

// PositionalKey is the ArgumentList key of the n-th positional argument,
// counted from 0 in source order.
func PositionalKey(n int) string {
	return "__" + strconv.Itoa(n) + "__"
}

type NamedArgument struct {
	Meta
	Name    string
	ValueID NId
}

type BinaryOperation struct {
	Meta
	Operator string
	LeftID   NId
	RightID  NId
}

type If struct {
	Meta
	ConditionID NId
	TrueID      NId
	FalseID     NId
}

type Loop struct {
	Meta
	Variant     LoopVariant
	InitID      NId
	ConditionID NId
	UpdateID    NId
	BodyID      NId
	// Var and IterableID describe for-each loops.
	Var        string
	IterableID NId
}

type TryCatch struct {
	Meta
	BodyID    NId
	CatchIDs  []NId
	FinallyID NId
}

type CatchClause struct {
	Meta
	Var      string
	TypeName string
	BodyID   NId
}

type Switch struct {
	Meta
	SubjectID NId
	CaseIDs   []NId
}

type SwitchLabelCase struct {
	Meta
	ValueIDs []NId
	BodyID   NId
}

type SwitchLabelDefault struct {
	Meta
	BodyID NId
}

type Lambda struct {
	Meta
	Params       []string
	ParameterIDs []NId
	BodyID       NId
}

type Return struct {
	Meta
	ValueID NId
}

type Throw struct {
	Meta
	ValueID NId
}

type Break struct{ Meta }

type Continue struct{ Meta }

type Fallthrough struct{ Meta }

type Pass struct{ Meta }

func (*File) Kind() Kind               { return KindFile }
func (*Import) Kind() Kind             { return KindImport }
func (*Class) Kind() Kind              { return KindClass }
func (*MethodDeclaration) Kind() Kind  { return KindMethodDeclaration }
func (*Parameter) Kind() Kind          { return KindParameter }
func (*Block) Kind() Kind              { return KindBlock }
func (*Literal) Kind() Kind            { return KindLiteral }
func (*SymbolLookup) Kind() Kind       { return KindSymbolLookup }
func (*Declaration) Kind() Kind        { return KindDeclaration }
func (*Assignment) Kind() Kind         { return KindAssignment }
func (*MethodInvocation) Kind() Kind   { return KindMethodInvocation }
func (*ObjectCreation) Kind() Kind     { return KindObjectCreation }
func (*MemberAccess) Kind() Kind       { return KindMemberAccess }
func (*ArgumentList) Kind() Kind       { return KindArgumentList }
func (*NamedArgument) Kind() Kind      { return KindNamedArgument }
func (*BinaryOperation) Kind() Kind    { return KindBinaryOperation }
func (*If) Kind() Kind                 { return KindIf }
func (*Loop) Kind() Kind               { return KindLoop }
func (*TryCatch) Kind() Kind           { return KindTryCatch }
func (*CatchClause) Kind() Kind        { return KindCatchClause }
func (*Switch) Kind() Kind             { return KindSwitch }
func (*SwitchLabelCase) Kind() Kind    { return KindSwitchLabelCase }
func (*SwitchLabelDefault) Kind() Kind { return KindSwitchLabelDefault }
func (*Lambda) Kind() Kind             { return KindLambda }
func (*Return) Kind() Kind             { return KindReturn }
func (*Throw) Kind() Kind              { return KindThrow }
func (*Break) Kind() Kind              { return KindBreak }
func (*Continue) Kind() Kind           { return KindContinue }
func (*Fallthrough) Kind() Kind        { return KindFallthrough }
func (*Pass) Kind() Kind               { return KindPass }
