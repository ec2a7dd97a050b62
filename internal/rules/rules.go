// File: internal/rules/rules.go
package rules

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/symeval"
)

// Vulnerability is one dangerous flow into a sink.
type Vulnerability struct {
	ID          string   `json:"id"`
	Method      string   `json:"method"`
	Finding     string   `json:"finding"`
	Description string   `json:"description"`
	Path        string   `json:"path"`
	Line        int      `json:"line"`
	Column      int      `json:"column"`
	Sink        string   `json:"sink"`
	Snippet     string   `json:"snippet"`
	Triggers    []string `json:"triggers"`
	// Trace lists the source lines of the witness path, entry first.
	Trace []int `json:"trace,omitempty"`
}

// Input is one linked file handed to the rules.
type Input struct {
	Path     string
	Language cst.Language
	Source   []byte
	Graph    *graph.Graph
}

// Rule inspects a linked file.
type Rule interface {
	ID() string
	Check(ctx context.Context, in *Input) ([]Vulnerability, error)
}

// Options tune how sinks are evaluated.
type Options struct {
	// MaxPaths bounds the paths evaluated per sink; below one means no bound.
	MaxPaths int
	// Aggregation applies to methods that do not choose their own.
	Aggregation symeval.Mode
}

// SinkRule reports sinks reached by dangerous values, as described by one
// catalog method.
type SinkRule struct {
	entry    *catalog.Entry
	maxPaths int
	mode     symeval.Mode
	opts     []symeval.Option
	logger   *zap.Logger
}

// NewSinkRule creates a rule for a catalog method.
func NewSinkRule(entry *catalog.Entry, o Options, logger *zap.Logger, opts ...symeval.Option) *SinkRule {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := entry.Aggregation
	if entry.Spec.Aggregation == "" {
		mode = o.Aggregation
	}
	return &SinkRule{
		entry:    entry,
		maxPaths: o.MaxPaths,
		mode:     mode,
		opts:     opts,
		logger:   logger.Named("rules").With(zap.String("method", entry.Spec.ID)),
	}
}

func (r *SinkRule) ID() string { return r.entry.Spec.ID }

// Check evaluates every call or construction that may be a sink.
func (r *SinkRule) Check(ctx context.Context, in *Input) ([]Vulnerability, error) {
	m := r.entry.Method
	var out []Vulnerability
	for i := 0; i < in.Graph.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		id := graph.NId(i)
		name, ok := sinkName(in.Graph, id)
		if !ok || !m.MayBeSink(name) {
			continue
		}
		ev, err := symeval.EvaluatePaths(m, in.Graph, id, r.mode, r.maxPaths, r.opts...)
		if err != nil {
			return out, fmt.Errorf("evaluating %s at node %s: %w", name, id, err)
		}
		if ev == nil || !ev.Sink || !ev.Danger || !r.entry.Accepts(ev.Triggers) {
			continue
		}
		v := r.vulnerability(in, id, name, ev)
		r.logger.Debug("Dangerous sink found.",
			zap.String("file", in.Path),
			zap.String("sink", name),
			zap.Int("line", v.Line),
			zap.Strings("triggers", v.Triggers))
		out = append(out, v)
	}
	return out, nil
}

func (r *SinkRule) vulnerability(in *Input, id graph.NId, name string, ev *symeval.Evaluation) Vulnerability {
	var pos graph.Position
	if n, err := in.Graph.Node(id); err == nil {
		pos = n.Pos
	}
	v := Vulnerability{
		Method:      r.entry.Spec.ID,
		Finding:     r.entry.Spec.Finding,
		Description: r.entry.Spec.Description,
		Path:        in.Path,
		Line:        pos.Line,
		Column:      pos.Column,
		Sink:        name,
		Snippet:     lineOf(in.Source, pos.Line),
		Triggers:    ev.Triggers.Sorted(),
		Trace:       traceLines(in.Graph, ev.Path),
	}
	v.ID = Identify(v)
	return v
}

// Identify derives a stable id from where a vulnerability is and what
// method found it, so repeated scans report the same ids.
func Identify(v Vulnerability) string {
	key := fmt.Sprintf("%s|%s|%d|%d|%s", v.Method, v.Path, v.Line, v.Column, v.Sink)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func sinkName(g *graph.Graph, id graph.NId) (string, bool) {
	switch s := g.Step(id).(type) {
	case *graph.MethodInvocation:
		return s.Expression, s.Expression != ""
	case *graph.ObjectCreation:
		return s.TypeName, s.TypeName != ""
	}
	return "", false
}

func lineOf(src []byte, line int) string {
	if line < 1 {
		return ""
	}
	for i := 1; i < line; i++ {
		nl := bytes.IndexByte(src, '\n')
		if nl < 0 {
			return ""
		}
		src = src[nl+1:]
	}
	if nl := bytes.IndexByte(src, '\n'); nl >= 0 {
		src = src[:nl]
	}
	return strings.TrimSpace(string(src))
}

func traceLines(g *graph.Graph, path []graph.NId) []int {
	var out []int
	for _, id := range path {
		n, err := g.Node(id)
		if err != nil || n.Pos.Line == 0 {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == n.Pos.Line {
			continue
		}
		out = append(out, n.Pos.Line)
	}
	return out
}

// Set is the rules that apply to each language of a catalog.
type Set struct {
	byLang map[cst.Language][]Rule
}

// NewSet builds one sink rule per catalog method for each language. No
// languages means every supported one.
func NewSet(c *catalog.Catalog, o Options, logger *zap.Logger, langs []cst.Language, opts ...symeval.Option) *Set {
	if len(langs) == 0 {
		langs = cst.Languages()
	}
	s := &Set{byLang: make(map[cst.Language][]Rule)}
	for _, lang := range langs {
		for _, e := range c.For(lang) {
			s.byLang[lang] = append(s.byLang[lang], NewSinkRule(e, o, logger, opts...))
		}
	}
	return s
}

// For returns the rules of a language.
func (s *Set) For(lang cst.Language) []Rule {
	return s.byLang[lang]
}

// Check runs every rule of the input's language in order.
func (s *Set) Check(ctx context.Context, in *Input) ([]Vulnerability, error) {
	var out []Vulnerability
	for _, r := range s.For(in.Language) {
		vs, err := r.Check(ctx, in)
		out = append(out, vs...)
		if err != nil {
			return out, fmt.Errorf("rule %s: %w", r.ID(), err)
		}
	}
	return out, nil
}
