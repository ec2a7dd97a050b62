// File: internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Mock Implementations --

// mockAnalyzer simulates the per-file pipeline.
type mockAnalyzer struct {
	// A function that can be customized per test to simulate different outcomes.
	analyzeFunc func(ctx context.Context, path string, src []byte) (*analysis.FileResult, error)
	calls       atomic.Int32
}

func (m *mockAnalyzer) AnalyzeFile(ctx context.Context, path string, src []byte) (*analysis.FileResult, error) {
	m.calls.Add(1)
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, path, src)
	}
	// Default behavior: do nothing and succeed.
	return &analysis.FileResult{Path: path}, nil
}

func writeFiles(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var out []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		out = append(out, p)
	}
	return out
}

func newEngine(t *testing.T, a Analyzer, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetEngineWorkerConcurrency(2)
	if mutate != nil {
		mutate(cfg)
	}
	e, err := New(cfg, a, zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := New(nil, &mockAnalyzer{}, nil)
	assert.Error(t, err)
	_, err = New(config.NewDefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestRun_SortsAndCollects(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"c.py": "c", "a.py": "a", "b.py": "b"})
	m := &mockAnalyzer{analyzeFunc: func(_ context.Context, path string, src []byte) (*analysis.FileResult, error) {
		return &analysis.FileResult{
			Path:            path,
			Vulnerabilities: []rules.Vulnerability{{Path: path, Line: 1, Snippet: string(src)}},
		}, nil
	}}

	res, err := newEngine(t, m, nil).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, res.Files, 3)
	assert.NotEmpty(t, res.ID)
	for i, want := range []string{"a.py", "b.py", "c.py"} {
		assert.Equal(t, want, filepath.Base(res.Files[i].Path))
	}
	vs := res.Vulnerabilities()
	require.Len(t, vs, 3)
	assert.Equal(t, "a", vs[0].Snippet)
	assert.Equal(t, "c", vs[2].Snippet)
	assert.Zero(t, res.Failed())
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"bad.py": "x", "good.py": "y", "boom.py": "z"})
	m := &mockAnalyzer{analyzeFunc: func(_ context.Context, path string, _ []byte) (*analysis.FileResult, error) {
		switch filepath.Base(path) {
		case "bad.py":
			return nil, errors.New("translation failed")
		case "boom.py":
			panic("unexpected")
		}
		return &analysis.FileResult{Path: path}, nil
	}}

	res, err := newEngine(t, m, nil).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, res.Files, 3)
	assert.Equal(t, 2, res.Failed())

	byName := make(map[string]*analysis.FileResult)
	for _, f := range res.Files {
		byName[filepath.Base(f.Path)] = f
	}
	assert.Contains(t, byName["bad.py"].Error, "translation failed")
	assert.Contains(t, byName["boom.py"].Error, analysis.ErrPanic.Error())
	assert.Empty(t, byName["good.py"].Error)
}

func TestRun_FileTimeout(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"slow.py": "x"})
	m := &mockAnalyzer{analyzeFunc: func(ctx context.Context, path string, _ []byte) (*analysis.FileResult, error) {
		<-ctx.Done()
		return &analysis.FileResult{Path: path}, ctx.Err()
	}}
	e := newEngine(t, m, func(c *config.Config) { c.EngineCfg.FileTimeout = 20 * time.Millisecond })

	res, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Contains(t, res.Files[0].Error, context.DeadlineExceeded.Error())
}

func TestRun_SkipsLargeFiles(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"big.py": strings.Repeat("x", 64)})
	m := &mockAnalyzer{}
	e := newEngine(t, m, func(c *config.Config) { c.EngineCfg.MaxFileSize = 16 })

	res, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.True(t, res.Files[0].Skipped)
	assert.Contains(t, res.Files[0].Error, ErrFileTooLarge.Error())
	assert.Zero(t, m.calls.Load())
	assert.Zero(t, res.Failed())
}

func TestRun_SizeLimitGoesThroughReader(t *testing.T) {
	t.Parallel()
	m := &mockAnalyzer{}
	e := newEngine(t, m, func(c *config.Config) { c.EngineCfg.MaxFileSize = 100 })
	var limits []int64
	e.readFile = func(path string, limit int64) ([]byte, error) {
		limits = append(limits, limit)
		if strings.HasSuffix(path, "huge.py") {
			return nil, fmt.Errorf("%w: 4096 > %d bytes", ErrFileTooLarge, limit)
		}
		return []byte("x = 1\n"), nil
	}
	e.concurrency = 1

	res, err := e.Run(context.Background(), []string{"virtual/huge.py", "virtual/small.py"})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, []int64{100, 100}, limits)

	huge, small := res.Files[0], res.Files[1]
	assert.True(t, huge.Skipped)
	assert.Contains(t, huge.Error, "4096 > 100 bytes")
	assert.False(t, small.Skipped)
	assert.Empty(t, small.Error)
	assert.Equal(t, int32(1), m.calls.Load())
	assert.Zero(t, res.Failed())
}

func TestReadSource(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"a.py": "12345678"})

	src, err := readSource(files[0], 8)
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(src))

	_, err = readSource(files[0], 7)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	src, err = readSource(files[0], 0)
	require.NoError(t, err)
	assert.Len(t, src, 8)

	_, err = readSource(filepath.Join(t.TempDir(), "gone.py"), 8)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()
	res, err := newEngine(t, &mockAnalyzer{}, nil).Run(context.Background(), []string{filepath.Join(t.TempDir(), "gone.py")})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.NotEmpty(t, res.Files[0].Error)
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{"a.py": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newEngine(t, &mockAnalyzer{}, nil).Run(ctx, files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotNil(t, res)
}

func TestRun_RealAnalyzer(t *testing.T) {
	t.Parallel()
	files := writeFiles(t, map[string]string{
		"app.js": `function handler(req, res) {
  eval(req.body.code);
}`,
		"safe.js": `function handler(req, res) {
  eval("1 + 1");
}`,
	})
	c, err := catalog.Default()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	a := analysis.New(rules.NewSet(c, rules.Options{MaxPaths: 16}, logger, nil), logger)

	res, err := newEngine(t, a, nil).Run(context.Background(), files)
	require.NoError(t, err)
	vs := res.Vulnerabilities()
	require.Len(t, vs, 1)
	assert.Equal(t, "app.js", filepath.Base(vs[0].Path))
	assert.Equal(t, "js_remote_command_execution", vs[0].Method)
}
