package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/symeval"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	c, err := Default()
	require.NoError(t, err)
	require.NotZero(t, c.Len())

	for _, lang := range cst.Languages() {
		assert.NotEmpty(t, c.For(lang), "no methods for %s", lang)
	}
	for _, e := range c.Entries() {
		assert.NotEmpty(t, e.Method.Sinks, e.Spec.ID)
		assert.Equal(t, e.Spec.ID, e.Method.ID)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	c, err := Load(strings.NewReader(`
methods:
  - id: custom
    finding: F999
    description: test
    languages: [Java, python]
    sources:
      read: userparams
    sinks:
      - name: write
        args: [1]
    require: [userparams]
    match: superset
    aggregation: all
`))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	e := c.Entries()[0]
	assert.Equal(t, []cst.Language{cst.Java, cst.Python}, e.Languages)
	assert.Equal(t, symeval.All, e.Aggregation)
	assert.Equal(t, []symeval.Sink{{Pattern: "write", Args: []int{1}}}, e.Method.Sinks)
	assert.Len(t, c.For(cst.Java), 1)
	assert.Empty(t, c.For(cst.Go))
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"no id":            "methods:\n  - languages: [java]\n    sinks: [{name: a}]\n",
		"no sinks":         "methods:\n  - id: a\n    languages: [java]\n",
		"unknown language": "methods:\n  - id: a\n    languages: [cobol]\n    sinks: [{name: a}]\n",
		"unknown match":    "methods:\n  - id: a\n    languages: [java]\n    sinks: [{name: a}]\n    match: some\n",
		"unknown mode":     "methods:\n  - id: a\n    languages: [java]\n    sinks: [{name: a}]\n    aggregation: most\n",
		"unknown field":    "methods:\n  - id: a\n    languages: [java]\n    sinks: [{name: a}]\n    severity: high\n",
		"duplicate id":     "methods:\n  - id: a\n    languages: [java]\n    sinks: [{name: a}]\n  - id: a\n    languages: [go]\n    sinks: [{name: b}]\n",
		"negative arg":     "methods:\n  - id: a\n    languages: [java]\n    sinks: [{name: a, args: [-1]}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), err.Error())
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("methods:\n  - id: a\n    languages: [go]\n    sinks: [{name: exec.Command}]\n"), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	t.Parallel()
	base, err := New(
		MethodSpec{ID: "a", Languages: []string{"java"}, Sinks: []SinkSpec{{Name: "x"}}},
		MethodSpec{ID: "b", Languages: []string{"go"}, Sinks: []SinkSpec{{Name: "y"}}},
	)
	require.NoError(t, err)
	extra, err := New(
		MethodSpec{ID: "a", Languages: []string{"python"}, Sinks: []SinkSpec{{Name: "z"}}},
		MethodSpec{ID: "c", Languages: []string{"java"}, Sinks: []SinkSpec{{Name: "w"}}},
	)
	require.NoError(t, err)

	merged := base.Merge(extra, nil)
	require.Equal(t, 3, merged.Len())
	ids := make([]string, 0, merged.Len())
	for _, e := range merged.Entries() {
		ids = append(ids, e.Spec.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Len(t, merged.For(cst.Java), 1)
	assert.Len(t, merged.For(cst.Python), 1)
	assert.Equal(t, 2, base.Len())
}

func TestEntry_Accepts(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		match    MatchPolicy
		require  []string
		triggers []string
		want     bool
	}{
		{name: "no requirement", triggers: []string{"envvars"}, want: true},
		{name: "any hit", match: MatchAny, require: []string{"userparams", "cookies"}, triggers: []string{"cookies"}, want: true},
		{name: "any miss", match: MatchAny, require: []string{"userparams"}, triggers: []string{"envvars"}},
		{name: "superset hit", match: MatchSuperset, require: []string{"userparams", "userconnection"}, triggers: []string{"userparams", "userconnection", "envvars"}, want: true},
		{name: "superset miss", match: MatchSuperset, require: []string{"userparams", "userconnection"}, triggers: []string{"userparams"}},
		{name: "exact hit", match: MatchExact, require: []string{"userparams"}, triggers: []string{"userparams"}, want: true},
		{name: "exact extra", match: MatchExact, require: []string{"userparams"}, triggers: []string{"userparams", "envvars"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := &Entry{Spec: MethodSpec{Require: tc.require, Match: tc.match}}
			assert.Equal(t, tc.want, e.Accepts(symeval.NewTriggers(tc.triggers...)))
		})
	}
}
