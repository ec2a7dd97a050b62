package syntax

import (
	"errors"
	"fmt"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// ErrMissingCaseHandling is wrapped by MissingCaseError.
var ErrMissingCaseHandling = errors.New("missing case handling")

// MissingCaseError reports a grammar type without a reader. It is recoverable:
// the node is skipped and translation continues.
type MissingCaseError struct {
	Language cst.Language
	Type     string
}

func (e *MissingCaseError) Error() string {
	return fmt.Sprintf("no reader for %s node %q", e.Language, e.Type)
}

func (e *MissingCaseError) Unwrap() error {
	return ErrMissingCaseHandling
}

// Diagnostic records a node that could not be translated.
type Diagnostic struct {
	Path string
	Type string
	Pos  graph.Position
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %v", d.Path, d.Pos.Line, d.Pos.Column, d.Type, d.Err)
}

// nodeError aborts the reader of one node; the node is dropped with a diagnostic.
type nodeError struct {
	err error
}

// fatalError aborts the whole file.
type fatalError struct {
	err error
}
