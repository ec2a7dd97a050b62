// File: internal/syntax/translator.go
package syntax

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Reader translates one raw grammar node into a syntax step and returns the
// new step id, or graph.NoNode when the node produces nothing.
type Reader func(a *Args) graph.NId

// Table maps grammar types of one language to their readers.
type Table map[string]Reader

// Result is the translated graph of one file.
type Result struct {
	Graph       *graph.Graph
	Root        graph.NId
	Diagnostics []Diagnostic
}

// Translator turns raw concrete syntax graphs into syntax step graphs. It
// holds only read-only tables and can be shared across goroutines.
type Translator struct {
	logger *zap.Logger
	tables map[cst.Language]Table
}

// New creates a translator with the reader tables of every supported language.
func New(logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		logger: logger.Named("syntax"),
		tables: map[cst.Language]Table{
			cst.Java:       javaReaders(),
			cst.CSharp:     csharpReaders(),
			cst.Go:         goReaders(),
			cst.JavaScript: javascriptReaders(),
			cst.TypeScript: typescriptReaders(),
			cst.Python:     pythonReaders(),
			cst.Kotlin:     kotlinReaders(),
		},
	}
}

// Supports reports whether a reader table exists for lang.
func (t *Translator) Supports(lang cst.Language) bool {
	_, ok := t.tables[lang]
	return ok
}

// Translate builds the syntax graph of f. Unknown constructs are skipped and
// reported in Result.Diagnostics; only broken invariants fail the file.
func (t *Translator) Translate(f *cst.File) (res *Result, err error) {
	table, ok := t.tables[f.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %q", cst.ErrUnsupportedLanguage, f.Language)
	}
	tr := &translation{
		file:   f,
		out:    graph.New(),
		table:  table,
		logger: t.logger.With(zap.String("file", f.Path), zap.String("language", string(f.Language))),
		warned: make(map[string]bool),
	}

	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(fatalError)
			if !ok {
				panic(r)
			}
			res, err = nil, fmt.Errorf("failed to translate %s: %w", f.Path, fe.err)
		}
	}()

	root := tr.translate(f.Root)
	if root == graph.NoNode {
		return nil, fmt.Errorf("failed to translate %s: root node %q produced no step", f.Path, f.Graph.Label(f.Root))
	}
	return &Result{Graph: tr.out, Root: root, Diagnostics: tr.diags}, nil
}

type translation struct {
	file   *cst.File
	out    *graph.Graph
	table  Table
	logger *zap.Logger
	diags  []Diagnostic
	warned map[string]bool
}

// translate dispatches one raw node to its reader.
func (tr *translation) translate(id graph.NId) (out graph.NId) {
	if id == graph.NoNode {
		return graph.NoNode
	}
	n, err := tr.file.Graph.Node(id)
	if err != nil {
		panic(fatalError{err})
	}
	if dropped(n) {
		return graph.NoNode
	}
	reader, ok := tr.table[n.Label]
	if !ok {
		tr.missing(n)
		return graph.NoNode
	}

	// Steps added by a failing reader never got a parent; drop them.
	mark := tr.out.Len()
	defer func() {
		if r := recover(); r != nil {
			ne, ok := r.(nodeError)
			if !ok {
				panic(r)
			}
			if err := tr.out.Truncate(mark); err != nil {
				panic(fatalError{err})
			}
			tr.diags = append(tr.diags, Diagnostic{Path: tr.file.Path, Type: n.Label, Pos: n.Pos, Err: ne.err})
			tr.logger.Error("Reader failed, node skipped",
				zap.String("type", n.Label),
				zap.Int("line", n.Pos.Line),
				zap.Error(ne.err),
			)
			out = graph.NoNode
		}
	}()
	return reader(&Args{tr: tr, ID: id, Language: tr.file.Language})
}

func (tr *translation) missing(n *graph.Node) {
	err := &MissingCaseError{Language: tr.file.Language, Type: n.Label}
	tr.diags = append(tr.diags, Diagnostic{Path: tr.file.Path, Type: n.Label, Pos: n.Pos, Err: err})
	if tr.warned[n.Label] {
		return
	}
	tr.warned[n.Label] = true
	tr.logger.Warn("Missing case handling, node skipped",
		zap.String("type", n.Label),
		zap.Int("line", n.Pos.Line),
		zap.Int("column", n.Pos.Column),
	)
}

// fail aborts the current reader for a structural problem scoped to one node.
func (tr *translation) fail(err error) {
	var amb *graph.AmbiguousMatchError
	if errors.As(err, &amb) {
		panic(nodeError{err})
	}
	panic(fatalError{err})
}

var droppedTypes = map[string]bool{
	"ERROR":               true,
	"comment":             true,
	"line_comment":        true,
	"block_comment":       true,
	"multiline_comment":   true,
	"template_string":     true,
	"template_expression": true,

	"interpolated_string_expression":          true,
	"interpolated_verbatim_string_expression": true,
}

func dropped(n *graph.Node) bool {
	return droppedTypes[n.Label] || n.Attr(cst.AttrMissing) != ""
}
