// File: internal/cst/parser.go
package cst

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// ErrUnsupportedLanguage is returned for languages without a grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Attribute keys recorded from anonymous tokens.
const (
	// AttrKeyword holds the first keyword-like anonymous token (e.g. "default", "return").
	AttrKeyword = "keyword"
	// AttrToken holds the first punctuation anonymous token (e.g. "+=").
	AttrToken = "token"
	// AttrMissing is set on nodes the parser inserted to recover from errors.
	AttrMissing = "missing"
)

// File is the raw concrete syntax graph of one source file. Every named
// tree-sitter node becomes a graph node labelled with its grammar type.
type File struct {
	Path      string
	Language  Language
	Source    []byte
	Graph     *graph.Graph
	Root      graph.NId
	HasErrors bool
}

// Text returns the source text covered by id.
func (f *File) Text(id graph.NId) string {
	n, err := f.Graph.Node(id)
	if err != nil {
		return ""
	}
	if int(n.Span.End) > len(f.Source) || n.Span.Start > n.Span.End {
		return ""
	}
	return string(f.Source[n.Span.Start:n.Span.End])
}

// Parser turns source text into raw graphs using tree-sitter.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser. A nil logger disables logging.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("cst")}
}

// Parse builds the raw graph of src. Syntax errors do not fail the parse; the
// affected region shows up as ERROR nodes and HasErrors is set.
func (p *Parser) Parse(ctx context.Context, path string, lang Language, src []byte) (*File, error) {
	load, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(load())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	f := &File{
		Path:      path,
		Language:  lang,
		Source:    src,
		Graph:     graph.New(),
		HasErrors: root.HasError(),
	}
	if f.HasErrors {
		p.logger.Warn("Source contains syntax errors, analysis will be partial",
			zap.String("file", path),
			zap.String("language", string(lang)),
		)
	}

	b := builder{file: f}
	f.Root = b.add(root, "")
	return f, nil
}

type builder struct {
	file *File
}

func (b *builder) add(n *sitter.Node, field string) graph.NId {
	start := n.StartPoint()
	node := graph.Node{
		Label: n.Type(),
		Field: field,
		Pos:   graph.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		Span:  graph.Span{Start: n.StartByte(), End: n.EndByte()},
	}
	if n.IsMissing() {
		setAttr(&node, AttrMissing, "true")
	}

	type child struct {
		node  *sitter.Node
		field string
	}
	var named []child
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		f := n.FieldNameForChild(i)
		if c.IsNamed() {
			named = append(named, child{node: c, field: f})
			continue
		}
		text := c.Content(b.file.Source)
		switch {
		case f != "":
			setAttr(&node, f, text)
		case isWord(text):
			if node.Attr(AttrKeyword) == "" {
				setAttr(&node, AttrKeyword, text)
			}
		case text != "":
			if node.Attr(AttrToken) == "" {
				setAttr(&node, AttrToken, text)
			}
		}
	}

	id := b.file.Graph.AddNode(node)
	for _, c := range named {
		cid := b.add(c.node, c.field)
		// Both ids are fresh, so the tree shape cannot be violated.
		_ = b.file.Graph.AddEdge(id, cid, graph.AST)
	}
	return id
}

func setAttr(n *graph.Node, key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string, 2)
	}
	n.Attrs[key] = value
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '_' {
			return false
		}
	}
	return true
}
