package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	return New(rules.NewSet(c, rules.Options{MaxPaths: 16}, logger, nil), logger)
}

func TestAnalyzeFile(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)
	res, err := a.AnalyzeFile(context.Background(), "app.py", []byte(`import subprocess
def run():
    target = input()
    subprocess.call("ping " + target, shell=True)
`))
	require.NoError(t, err)
	assert.Equal(t, cst.Python, res.Language)
	require.Len(t, res.Vulnerabilities, 1)
	assert.Equal(t, "python_remote_command_execution", res.Vulnerabilities[0].Method)
	assert.Equal(t, 4, res.Vulnerabilities[0].Line)
	assert.Empty(t, res.Error)
	assert.Positive(t, res.Duration)
}

func TestAnalyzeFile_Clean(t *testing.T) {
	t.Parallel()
	res, err := newAnalyzer(t).AnalyzeFile(context.Background(), "Main.java", []byte(`class Main {
  public static void main(String[] args) {
    System.out.println("hello");
  }
}`))
	require.NoError(t, err)
	assert.Empty(t, res.Vulnerabilities)
}

func TestAnalyzeFile_Unsupported(t *testing.T) {
	t.Parallel()
	res, err := newAnalyzer(t).AnalyzeFile(context.Background(), "README.md", []byte("# hi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cst.ErrUnsupportedLanguage))
	assert.NotEmpty(t, res.Error)
}

func TestAnalyzeFile_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newAnalyzer(t).AnalyzeFile(ctx, "app.js", []byte("const a = 1;\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotNil(t, res)
}

func TestAnalyzeFile_SyntaxErrorsAreBestEffort(t *testing.T) {
	t.Parallel()
	res, err := newAnalyzer(t).AnalyzeFile(context.Background(), "broken.js", []byte(`function f(req) {
  const x = req.query.x
  eval(x);
  if (
}`))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Diagnostics)
}
