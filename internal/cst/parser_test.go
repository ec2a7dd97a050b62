package cst

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

func findFirst(t *testing.T, f *File, label string) graph.NId {
	t.Helper()
	var found graph.NId = graph.NoNode
	var walk func(graph.NId)
	walk = func(id graph.NId) {
		if found != graph.NoNode {
			return
		}
		if f.Graph.Label(id) == label {
			found = id
			return
		}
		children, err := f.Graph.AdjacentAST(id)
		require.NoError(t, err)
		for _, c := range children {
			walk(c)
		}
	}
	walk(f.Root)
	require.NotEqual(t, graph.NoNode, found, "no %s node", label)
	return found
}

func TestParse_Java(t *testing.T) {
	t.Parallel()
	p := NewParser(zaptest.NewLogger(t))
	src := []byte(`class A {
  void run(String x) {
    int y = x.length() + 1;
  }
}`)

	f, err := p.Parse(context.Background(), "A.java", Java, src)
	require.NoError(t, err)
	assert.False(t, f.HasErrors)
	assert.Equal(t, "program", f.Graph.Label(f.Root))

	method := findFirst(t, f, "method_declaration")
	name, err := f.Graph.ChildByField(method, "name")
	require.NoError(t, err)
	assert.Equal(t, "run", f.Text(name))

	n, err := f.Graph.Node(method)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Pos.Line)
	assert.Equal(t, 3, n.Pos.Column)

	bin := findFirst(t, f, "binary_expression")
	bn, err := f.Graph.Node(bin)
	require.NoError(t, err)
	assert.Equal(t, "+", bn.Attr("operator"))
	assert.Equal(t, "x.length() + 1", f.Text(bin))
}

func TestParse_RecordsSyntaxErrors(t *testing.T) {
	t.Parallel()
	p := NewParser(zaptest.NewLogger(t))

	f, err := p.Parse(context.Background(), "broken.py", Python, []byte("def f(:\n  return )\n"))
	require.NoError(t, err)
	assert.True(t, f.HasErrors)
}

func TestParse_EveryLanguage(t *testing.T) {
	t.Parallel()
	sources := map[Language]string{
		Java:       "class A {}",
		CSharp:     "class A {}",
		Go:         "package main\nfunc main() {}\n",
		JavaScript: "const a = 1;",
		TypeScript: "const a: number = 1;",
		Python:     "a = 1\n",
		Kotlin:     "fun main() {}\n",
	}
	for lang, src := range sources {
		t.Run(string(lang), func(t *testing.T) {
			t.Parallel()
			f, err := NewParser(nil).Parse(context.Background(), "x", lang, []byte(src))
			require.NoError(t, err)
			assert.Greater(t, f.Graph.Len(), 1)
			assert.False(t, f.HasErrors)
		})
	}
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := NewParser(nil).Parse(context.Background(), "a.rb", Language("ruby"), []byte("puts 1"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()
	tests := map[string]Language{
		"src/Main.java":    Java,
		"app/Program.cs":   CSharp,
		"cmd/main.go":      Go,
		"web/index.JS":     JavaScript,
		"web/app.ts":       TypeScript,
		"tool.py":          Python,
		"build.gradle.kts": Kotlin,
	}
	for path, want := range tests {
		got, ok := DetectLanguage(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := DetectLanguage("README.md")
	assert.False(t, ok)

	l, err := ParseLanguage(" Kotlin ")
	require.NoError(t, err)
	assert.Equal(t, Kotlin, l)
	_, err = ParseLanguage("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}
