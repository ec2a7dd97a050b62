package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned by every traversal given a stale or foreign id.
	ErrNodeNotFound = errors.New("node not found")
	// ErrAmbiguousMatch is the sentinel wrapped by AmbiguousMatchError.
	ErrAmbiguousMatch = errors.New("ambiguous AST match")
	// ErrASTViolation is returned when an edge would break the AST tree shape.
	ErrASTViolation = errors.New("AST tree violation")
)

// AmbiguousMatchError reports a singular match that found several children.
type AmbiguousMatchError struct {
	Node  NId
	Label string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous AST match under node %s: %d children labelled %q", e.Node, e.Count, e.Label)
}

func (e *AmbiguousMatchError) Unwrap() error {
	return ErrAmbiguousMatch
}
