package cst

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is the key of every per-language table (grammars, readers, walkers).
type Language string

const (
	Java       Language = "java"
	CSharp     Language = "csharp"
	Go         Language = "go"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Kotlin     Language = "kotlin"
)

var extensions = map[string]Language{
	".java": Java,
	".cs":   CSharp,
	".go":   Go,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".py":   Python,
	".kt":   Kotlin,
	".kts":  Kotlin,
}

var grammars = map[Language]func() *sitter.Language{
	Java:       java.GetLanguage,
	CSharp:     csharp.GetLanguage,
	Go:         golang.GetLanguage,
	JavaScript: javascript.GetLanguage,
	TypeScript: typescript.GetLanguage,
	Python:     python.GetLanguage,
	Kotlin:     kotlin.GetLanguage,
}

// Languages lists every supported language in a stable order.
func Languages() []Language {
	out := make([]Language, 0, len(grammars))
	for l := range grammars {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseLanguage validates a language name coming from configuration.
func ParseLanguage(name string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := grammars[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}
	return l, nil
}

// DetectLanguage maps a file path to its language by extension.
func DetectLanguage(path string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return l, ok
}
