package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/controlflow"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/syntax"
)

const servlet = `class Handler {
  void doGet(HttpServletRequest request) {
    String cmd = request.getParameter("cmd");
    String fixed = "ls";
    Runtime.getRuntime().exec(cmd);
    Runtime.getRuntime().exec(fixed);
  }
}`

func input(t *testing.T, lang cst.Language, path, src string) *Input {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f, err := cst.NewParser(logger).Parse(context.Background(), path, lang, []byte(src))
	require.NoError(t, err)
	res, err := syntax.New(logger).Translate(f)
	require.NoError(t, err)
	require.NoError(t, controlflow.LinkFile(res.Graph, res.Root, lang))
	return &Input{Path: path, Language: lang, Source: f.Source, Graph: res.Graph}
}

func commandEntry(t *testing.T, required []string, match catalog.MatchPolicy) *catalog.Entry {
	t.Helper()
	c, err := catalog.New(catalog.MethodSpec{
		ID:          "java_rce",
		Finding:     "F004",
		Description: "command injection",
		Languages:   []string{"java"},
		Sources:     map[string]string{"request.getParameter": "userparams"},
		Sinks:       []catalog.SinkSpec{{Name: "*.exec"}},
		Require:     required,
		Match:       match,
	})
	require.NoError(t, err)
	return c.Entries()[0]
}

func TestSinkRule_Check(t *testing.T) {
	t.Parallel()
	in := input(t, cst.Java, "Handler.java", servlet)
	r := NewSinkRule(commandEntry(t, []string{"userparams"}, catalog.MatchAny), Options{MaxPaths: 8}, zaptest.NewLogger(t))

	vs, err := r.Check(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, vs, 1)

	v := vs[0]
	assert.Equal(t, "java_rce", v.Method)
	assert.Equal(t, "F004", v.Finding)
	assert.Equal(t, "Handler.java", v.Path)
	assert.Equal(t, 5, v.Line)
	assert.Equal(t, "Runtime.getRuntime().exec(cmd);", v.Snippet)
	assert.Equal(t, []string{"userparams"}, v.Triggers)
	assert.Equal(t, []int{2, 3, 4, 5}, v.Trace)
	assert.Equal(t, Identify(v), v.ID)
}

func TestSinkRule_TriggerPolicy(t *testing.T) {
	t.Parallel()
	in := input(t, cst.Java, "Handler.java", servlet)
	r := NewSinkRule(commandEntry(t, []string{"userparams", "userconnection"}, catalog.MatchSuperset), Options{MaxPaths: 8}, nil)

	vs, err := r.Check(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestSinkRule_Canceled(t *testing.T) {
	t.Parallel()
	in := input(t, cst.Java, "Handler.java", servlet)
	r := NewSinkRule(commandEntry(t, nil, ""), Options{MaxPaths: 8}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Check(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIdentify_Stable(t *testing.T) {
	t.Parallel()
	v := Vulnerability{Method: "m", Path: "a.go", Line: 3, Column: 2, Sink: "exec.Command"}
	assert.Equal(t, Identify(v), Identify(v))
	w := v
	w.Line = 4
	assert.NotEqual(t, Identify(v), Identify(w))
}

func TestSet_DefaultCatalog(t *testing.T) {
	t.Parallel()
	c, err := catalog.Default()
	require.NoError(t, err)
	set := NewSet(c, Options{MaxPaths: 8}, zaptest.NewLogger(t), nil)

	cases := []struct {
		name string
		lang cst.Language
		path string
		src  string
	}{
		{
			name: "java",
			lang: cst.Java,
			path: "Handler.java",
			src:  servlet,
		},
		{
			name: "python",
			lang: cst.Python,
			path: "app.py",
			src: `import os
def handler():
    name = input()
    os.system("ping " + name)
`,
		},
		{
			name: "javascript",
			lang: cst.JavaScript,
			path: "app.js",
			src: `function handler(req, res) {
  const host = req.query.host;
  child_process.exec("ping " + host);
}`,
		},
		{
			name: "go",
			lang: cst.Go,
			path: "main.go",
			src: `package main

func handler(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	exec.Command("ping", host).Run()
}`,
		},
		{
			name: "java anonymous class",
			lang: cst.Java,
			path: "Handler.java",
			src: `class Handler {
  void doGet(HttpServletRequest request) {
    new Thread(new Runnable() {
      public void run() { Runtime.getRuntime().exec(request.getParameter("c")); }
    }).start();
  }
}`,
		},
		{
			name: "kotlin object literal",
			lang: cst.Kotlin,
			path: "Handler.kt",
			src: `class Handler {
  fun handle(request: HttpServletRequest) {
    val t = Thread(object : Runnable {
      override fun run() { Runtime.getRuntime().exec(request.getParameter("c")) }
    })
  }
}`,
		},
		{
			name: "csharp property getter",
			lang: cst.CSharp,
			path: "Handler.cs",
			src: `class Handler {
  string Output {
    get {
      var q = Console.ReadLine();
      Process.Start(q);
      return q;
    }
  }
}`,
		},
		{
			name: "jsx handler",
			lang: cst.JavaScript,
			path: "app.jsx",
			src: `function App(req) {
  return <button onClick={() => child_process.exec(req.query.host)}>go</button>;
}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			vs, err := set.Check(context.Background(), input(t, tc.lang, tc.path, tc.src))
			require.NoError(t, err)
			require.Len(t, vs, 1)
			assert.Equal(t, "F004", vs[0].Finding)
			assert.Contains(t, vs[0].Triggers, "userparams")
		})
	}
}
