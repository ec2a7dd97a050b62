package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStep_MetaAndDependencies(t *testing.T) {
	t.Parallel()
	g := New()

	obj, err := g.AddStep(&SymbolLookup{Symbol: "request"}, Position{Line: 1})
	require.NoError(t, err)
	lit, err := g.AddStep(&Literal{Value: `"q"`, ValueType: "string"}, Position{Line: 1})
	require.NoError(t, err)
	args, err := g.AddStep(&ArgumentList{ArgumentIDs: []NId{lit}, Keys: []string{"__0__"}}, Position{Line: 1}, lit)
	require.NoError(t, err)
	call, err := g.AddStep(&MethodInvocation{Expression: "request.getParameter", ObjectID: obj, ArgumentsID: args}, Position{Line: 1}, obj, args)
	require.NoError(t, err)
	decl, err := g.AddStep(&Declaration{Var: "a", ValueID: call}, Position{Line: 1}, call)
	require.NoError(t, err)

	inv, ok := As[*MethodInvocation](g, call)
	require.True(t, ok)
	assert.Equal(t, call, inv.ID)
	assert.Equal(t, []NId{obj, args}, inv.Dependencies)
	assert.Equal(t, -1, inv.Stack)
	assert.False(t, inv.Linear)

	d := g.Step(decl).Info()
	assert.True(t, d.Linear)
	assert.Equal(t, []NId{call}, d.Dependencies)
	assert.Equal(t, -1, d.Stack)

	assert.Equal(t, 1, g.Step(lit).Info().Stack)
	assert.Equal(t, string(KindDeclaration), g.Label(decl))

	order, err := Linearize(g, decl)
	require.NoError(t, err)
	assert.Equal(t, []NId{obj, lit, args, call, decl}, order)
}

func TestAddStep_SkipsLinearAndMissingChildren(t *testing.T) {
	t.Parallel()
	g := New()

	call, err := g.AddStep(&MethodInvocation{Expression: "run", ObjectID: NoNode, ArgumentsID: NoNode}, Position{})
	require.NoError(t, err)
	require.NoError(t, g.SetLinear(call))
	assert.Equal(t, 0, g.Step(call).Info().Stack)

	block, err := g.AddStep(&Block{StatementIDs: []NId{call}}, Position{}, call, NoNode)
	require.NoError(t, err)
	b := g.Step(block).Info()
	assert.Empty(t, b.Dependencies)
	assert.False(t, b.Linear)

	children, err := g.AdjacentAST(block)
	require.NoError(t, err)
	assert.Equal(t, []NId{call}, children)
}

func TestStepOf(t *testing.T) {
	t.Parallel()
	g := New()
	raw := g.AddNode(Node{Label: "identifier"})

	_, err := g.StepOf(raw)
	assert.Error(t, err)
	_, err = g.StepOf(42)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Nil(t, g.Step(42))
	assert.Equal(t, Kind(""), g.Kind(raw))
}

func TestKindClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind       Kind
		expression bool
		statement  bool
		control    bool
	}{
		{KindLiteral, true, false, false},
		{KindAssignment, true, false, false},
		{KindLambda, true, false, false},
		{KindDeclaration, false, true, false},
		{KindIf, false, true, true},
		{KindSwitchLabelCase, false, true, true},
		{KindReturn, false, true, false},
		{KindBlock, false, false, false},
		{KindClass, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expression, tt.kind.Expression())
			assert.Equal(t, tt.statement, tt.kind.Statement())
			assert.Equal(t, tt.control, tt.kind.Control())
		})
	}
}

func TestSetStep(t *testing.T) {
	t.Parallel()
	g := New()
	lit, err := g.AddStep(&Literal{Value: "1"}, Position{})
	require.NoError(t, err)

	raw := g.AddNode(Node{Label: "return_statement"})
	require.NoError(t, g.AddEdge(raw, lit, AST))
	require.NoError(t, g.SetStep(raw, &Return{ValueID: lit}))

	ret, ok := As[*Return](g, raw)
	require.True(t, ok)
	assert.Equal(t, raw, ret.ID)
	assert.Equal(t, []NId{lit}, ret.Dependencies)
	assert.True(t, ret.Linear)
	assert.Equal(t, string(KindReturn), g.Label(raw))

	// Replacing the step rebuilds its Meta.
	require.NoError(t, g.SetStep(raw, &Throw{ValueID: lit}))
	assert.Equal(t, KindThrow, g.Kind(raw))
	assert.Equal(t, []NId{lit}, g.Step(raw).Info().Dependencies)

	assert.ErrorIs(t, g.SetStep(NId(9), &Pass{}), ErrNodeNotFound)
}

func TestPositionalKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "__0__", PositionalKey(0))
	assert.Equal(t, "__12__", PositionalKey(12))
}
