// internal/discovery/scope.go
package discovery

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
)

// Scope defines the boundaries of a scan: which languages are analyzed and
// which paths are left out. Exclusions use gitignore syntax, so
// "node_modules/" skips that directory at any depth.
type Scope struct {
	matcher gitignore.Matcher
	langs   map[cst.Language]struct{}
}

// NewScope builds a scope. No languages means every supported one.
func NewScope(exclude []string, langs []cst.Language) *Scope {
	patterns := make([]gitignore.Pattern, 0, len(exclude))
	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	if len(langs) == 0 {
		langs = cst.Languages()
	}
	set := make(map[cst.Language]struct{}, len(langs))
	for _, l := range langs {
		set[l] = struct{}{}
	}
	return &Scope{matcher: gitignore.NewMatcher(patterns), langs: set}
}

// Excluded reports whether a path relative to the scan root matches an
// exclusion. Only the path itself is checked, not its parents.
func (s *Scope) Excluded(rel string, isDir bool) bool {
	parts := split(rel)
	if len(parts) == 0 {
		return false
	}
	return s.matcher.Match(parts, isDir)
}

// ExcludedPath is Excluded for a file whose parent directories were not
// checked on the way down, as happens when listing a git tree.
func (s *Scope) ExcludedPath(rel string) bool {
	parts := split(rel)
	for i := 1; i < len(parts); i++ {
		if s.matcher.Match(parts[:i], true) {
			return true
		}
	}
	return len(parts) > 0 && s.matcher.Match(parts, false)
}

// Language returns the language of a file when the scan covers it.
func (s *Scope) Language(path string) (cst.Language, bool) {
	l, ok := cst.DetectLanguage(path)
	if !ok {
		return "", false
	}
	_, ok = s.langs[l]
	return l, ok
}

func split(rel string) []string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(rel, "/"), "/")
}
