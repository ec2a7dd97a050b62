// File: internal/catalog/catalog.go
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/symeval"
)

// ErrInvalidCatalog is returned for catalogs that fail validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed default.yaml
var defaultCatalog []byte

// MatchPolicy decides which trigger sets of a dangerous value are reported.
type MatchPolicy string

const (
	// MatchAny reports when the triggers share at least one required trigger.
	MatchAny MatchPolicy = "any"
	// MatchSuperset reports when every required trigger is present.
	MatchSuperset MatchPolicy = "superset"
	// MatchExact reports when the triggers are exactly the required ones.
	MatchExact MatchPolicy = "exact"
)

// SinkSpec is the YAML form of a sink.
type SinkSpec struct {
	Name string `yaml:"name"`
	Args []int  `yaml:"args,omitempty"`
}

// MethodSpec is the YAML form of one method.
type MethodSpec struct {
	ID             string            `yaml:"id"`
	Finding        string            `yaml:"finding"`
	Description    string            `yaml:"description"`
	Languages      []string          `yaml:"languages"`
	Sources        map[string]string `yaml:"sources,omitempty"`
	ParameterTypes map[string]string `yaml:"parameter_types,omitempty"`
	Sinks          []SinkSpec        `yaml:"sinks"`
	Sanitizers     []string          `yaml:"sanitizers,omitempty"`
	Mutators       []string          `yaml:"mutators,omitempty"`
	Require        []string          `yaml:"require,omitempty"`
	Match          MatchPolicy       `yaml:"match,omitempty"`
	Aggregation    string            `yaml:"aggregation,omitempty"`
}

type document struct {
	Methods []MethodSpec `yaml:"methods"`
}

// Entry is a validated method ready for evaluation.
type Entry struct {
	Spec        MethodSpec
	Method      *symeval.Method
	Languages   []cst.Language
	Aggregation symeval.Mode
}

// Catalog is the immutable set of methods of a scan. It is safe to share
// between goroutines.
type Catalog struct {
	entries []*Entry
	byLang  map[cst.Language][]*Entry
}

// Default returns the catalog built into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decoding: %w", ErrInvalidCatalog, err)
	}
	return New(doc.Methods...)
}

// New validates specs and builds a catalog from them.
func New(specs ...MethodSpec) (*Catalog, error) {
	c := &Catalog{byLang: make(map[cst.Language][]*Entry)}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate method id %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
		e, err := build(s)
		if err != nil {
			return nil, err
		}
		c.add(e)
	}
	return c, nil
}

// Merge returns a catalog holding the methods of c followed by those of
// others. A later method replaces an earlier one with the same id.
func (c *Catalog) Merge(others ...*Catalog) *Catalog {
	out := &Catalog{byLang: make(map[cst.Language][]*Entry)}
	index := make(map[string]int)
	for _, src := range append([]*Catalog{c}, others...) {
		if src == nil {
			continue
		}
		for _, e := range src.entries {
			if i, ok := index[e.Spec.ID]; ok {
				out.entries[i] = e
				continue
			}
			index[e.Spec.ID] = len(out.entries)
			out.entries = append(out.entries, e)
		}
	}
	for _, e := range out.entries {
		for _, l := range e.Languages {
			out.byLang[l] = append(out.byLang[l], e)
		}
	}
	return out
}

func (c *Catalog) add(e *Entry) {
	c.entries = append(c.entries, e)
	for _, l := range e.Languages {
		c.byLang[l] = append(c.byLang[l], e)
	}
}

// For lists the methods that apply to a language, in catalog order.
func (c *Catalog) For(lang cst.Language) []*Entry {
	return c.byLang[lang]
}

// Entries lists every method in catalog order.
func (c *Catalog) Entries() []*Entry {
	return c.entries
}

// Len returns the number of methods.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Validate checks a spec without building it.
func (s MethodSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: method without id", ErrInvalidCatalog)
	}
	if len(s.Sinks) == 0 {
		return fmt.Errorf("%w: method %s has no sinks", ErrInvalidCatalog, s.ID)
	}
	for _, sk := range s.Sinks {
		if sk.Name == "" {
			return fmt.Errorf("%w: method %s has an unnamed sink", ErrInvalidCatalog, s.ID)
		}
		for _, a := range sk.Args {
			if a < 0 {
				return fmt.Errorf("%w: method %s sink %s has a negative argument position", ErrInvalidCatalog, s.ID, sk.Name)
			}
		}
	}
	if len(s.Languages) == 0 {
		return fmt.Errorf("%w: method %s lists no languages", ErrInvalidCatalog, s.ID)
	}
	for _, l := range s.Languages {
		if _, err := cst.ParseLanguage(l); err != nil {
			return fmt.Errorf("%w: method %s: %w", ErrInvalidCatalog, s.ID, err)
		}
	}
	switch s.Match {
	case "", MatchAny, MatchSuperset, MatchExact:
	default:
		return fmt.Errorf("%w: method %s has unknown match %q", ErrInvalidCatalog, s.ID, s.Match)
	}
	if _, err := symeval.ParseMode(s.Aggregation); err != nil {
		return fmt.Errorf("%w: method %s: %w", ErrInvalidCatalog, s.ID, err)
	}
	return nil
}

func build(s MethodSpec) (*Entry, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Match == "" {
		s.Match = MatchAny
	}
	mode, _ := symeval.ParseMode(s.Aggregation)
	langs := make([]cst.Language, 0, len(s.Languages))
	for _, l := range s.Languages {
		lang, _ := cst.ParseLanguage(l)
		if !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	sinks := make([]symeval.Sink, 0, len(s.Sinks))
	for _, sk := range s.Sinks {
		sinks = append(sinks, symeval.Sink{Pattern: sk.Name, Args: sk.Args})
	}
	return &Entry{
		Spec: s,
		Method: &symeval.Method{
			ID:             s.ID,
			Sources:        s.Sources,
			ParameterTypes: s.ParameterTypes,
			Sinks:          sinks,
			Sanitizers:     s.Sanitizers,
			Mutators:       s.Mutators,
		},
		Languages:   langs,
		Aggregation: mode,
	}, nil
}

// Accepts applies the trigger policy to the triggers of a dangerous value.
// A method without required triggers accepts any dangerous value.
func (e *Entry) Accepts(triggers symeval.Triggers) bool {
	if len(e.Spec.Require) == 0 {
		return true
	}
	switch e.Spec.Match {
	case MatchSuperset:
		for _, r := range e.Spec.Require {
			if !triggers.Has(r) {
				return false
			}
		}
		return true
	case MatchExact:
		if len(triggers) != len(symeval.NewTriggers(e.Spec.Require...)) {
			return false
		}
		for _, r := range e.Spec.Require {
			if !triggers.Has(r) {
				return false
			}
		}
		return true
	default:
		for _, r := range e.Spec.Require {
			if triggers.Has(r) {
				return true
			}
		}
		return false
	}
}
