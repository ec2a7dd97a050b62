// Package symeval decides whether the value of a node is tainted by replaying
// one backward execution path over the syntax graph.
package symeval

import (
	"strings"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/graph"
)

// Method is the vocabulary of one finding: where dangerous data comes from,
// where it must not go and what makes it safe. A Method is immutable once
// built and is shared by concurrent evaluations.
type Method struct {
	ID string
	// Sources maps call or member patterns, and untyped parameter names, to
	// the trigger they add.
	Sources map[string]string
	// ParameterTypes maps declared parameter types to the trigger a
	// parameter of that type carries.
	ParameterTypes map[string]string
	Sinks          []Sink
	// Sanitizers are call patterns whose result is always safe.
	Sanitizers []string
	// Mutators are call patterns that taint their receiver variable when an
	// argument is dangerous, as StringBuilder.append does.
	Mutators []string
	// Evaluators override the built-in evaluation of a step kind.
	Evaluators map[graph.Kind]Evaluator
}

// Sink is a dangerous consumer.
type Sink struct {
	Pattern string
	// Args are the 0-based argument positions that reach the sink. Empty
	// means every argument.
	Args []int
}

// Patterns match a candidate exactly, or by suffix when they start with '*'.
func matches(pattern, candidate string) bool {
	if rest, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(candidate, rest)
	}
	return pattern == candidate
}

func lookup(table map[string]string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if t, ok := table[c]; ok {
			return t, true
		}
	}
	for pattern, t := range table {
		if !strings.HasPrefix(pattern, "*") {
			continue
		}
		for _, c := range candidates {
			if matches(pattern, c) {
				return t, true
			}
		}
	}
	return "", false
}

func matchesAny(patterns, candidates []string) bool {
	for _, p := range patterns {
		for _, c := range candidates {
			if matches(p, c) {
				return true
			}
		}
	}
	return false
}

// Source returns the trigger of the first source matching a candidate name.
// Exact patterns win over suffix patterns.
func (m *Method) Source(candidates ...string) (string, bool) {
	return lookup(m.Sources, candidates)
}

// ParameterTrigger returns the trigger carried by parameters of typeName.
func (m *Method) ParameterTrigger(typeName string) (string, bool) {
	return lookup(m.ParameterTypes, []string{typeName, baseType(typeName)})
}

// Sanitizes reports whether a candidate is a sanitizer.
func (m *Method) Sanitizes(candidates ...string) bool {
	return matchesAny(m.Sanitizers, candidates)
}

// Mutates reports whether a candidate is a mutator.
func (m *Method) Mutates(candidates ...string) bool {
	return matchesAny(m.Mutators, candidates)
}

// SinkFor returns the sink matching a candidate name.
func (m *Method) SinkFor(candidates ...string) (Sink, bool) {
	for _, s := range m.Sinks {
		for _, c := range candidates {
			if matches(s.Pattern, c) {
				return s, true
			}
		}
	}
	return Sink{}, false
}

// MayBeSink reports whether a call written as expression could be a sink.
// Typed patterns such as Statement.executeQuery only resolve during
// evaluation, so a call with the same member name is a candidate too.
func (m *Method) MayBeSink(expression string) bool {
	if _, ok := m.SinkFor(expression); ok {
		return true
	}
	member := memberOf(expression)
	for _, s := range m.Sinks {
		if strings.HasPrefix(s.Pattern, "*") {
			continue
		}
		if i := strings.LastIndexByte(s.Pattern, '.'); i >= 0 && s.Pattern[i+1:] == member {
			return true
		}
	}
	return false
}

// memberOf returns the last dotted segment of a call expression.
func memberOf(expression string) string {
	if i := strings.LastIndexByte(expression, '.'); i >= 0 {
		return expression[i+1:]
	}
	return expression
}

// baseType strips generic arguments, array brackets and nullability.
func baseType(typeName string) string {
	if i := strings.IndexAny(typeName, "<[?"); i >= 0 {
		typeName = typeName[:i]
	}
	return strings.TrimSpace(strings.TrimPrefix(typeName, "*"))
}
