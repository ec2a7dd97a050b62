// File: internal/analysis/analyzer.go
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/controlflow"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/syntax"
)

// ErrPanic wraps a panic recovered while analyzing a file.
var ErrPanic = errors.New("analysis panicked")

// FileResult is the outcome of analyzing one file.
type FileResult struct {
	Path            string                `json:"path"`
	Language        cst.Language          `json:"language"`
	Vulnerabilities []rules.Vulnerability `json:"vulnerabilities"`
	Diagnostics     []string              `json:"diagnostics,omitempty"`
	Error           string                `json:"error,omitempty"`
	Skipped         bool                  `json:"skipped,omitempty"`
	Duration        time.Duration         `json:"duration"`
}

// Analyzer runs the per-file pipeline: parse, translate, link and check.
// It holds no per-file state, so one Analyzer serves every worker.
type Analyzer struct {
	parser     *cst.Parser
	translator *syntax.Translator
	rules      *rules.Set
	logger     *zap.Logger
}

// New creates an analyzer that checks files with rs.
func New(rs *rules.Set, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		parser:     cst.NewParser(logger),
		translator: syntax.New(logger),
		rules:      rs,
		logger:     logger.Named("analysis"),
	}
}

// AnalyzeFile analyzes one source file. The result is returned even on
// error so that partial vulnerabilities and diagnostics are kept.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, src []byte) (res *FileResult, err error) {
	start := time.Now()
	res = &FileResult{Path: path}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("File analysis panicked",
				zap.String("file", path),
				zap.Any("panicValue", r),
				zap.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %s: %v", ErrPanic, path, r)
		}
		if err != nil {
			res.Error = err.Error()
		}
		res.Duration = time.Since(start)
	}()

	lang, ok := cst.DetectLanguage(path)
	if !ok {
		return res, fmt.Errorf("%w: %s", cst.ErrUnsupportedLanguage, path)
	}
	res.Language = lang
	if err := ctx.Err(); err != nil {
		return res, err
	}

	f, err := a.parser.Parse(ctx, path, lang, src)
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.HasErrors {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: syntax errors, results are best effort", path))
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	tr, err := a.translator.Translate(f)
	if err != nil {
		return res, err
	}
	for _, d := range tr.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := controlflow.LinkFile(tr.Graph, tr.Root, lang); err != nil {
		return res, fmt.Errorf("linking %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	vs, err := a.rules.Check(ctx, &rules.Input{Path: path, Language: lang, Source: src, Graph: tr.Graph})
	res.Vulnerabilities = vs
	if err != nil {
		return res, err
	}
	a.logger.Debug("File analyzed.",
		zap.String("file", path),
		zap.Int("vulnerabilities", len(vs)),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}
