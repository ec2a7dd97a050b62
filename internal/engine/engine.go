// File: internal/engine/engine.go
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// ErrFileTooLarge marks files skipped for exceeding engine.max_file_size.
var ErrFileTooLarge = errors.New("file exceeds the size limit")

// Analyzer defines the per-file pipeline the engine drives. This allows us
// to swap in a mock in tests.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string, src []byte) (*analysis.FileResult, error)
}

// ScanResult is the outcome of one scan. Files are sorted by path.
type ScanResult struct {
	ID         string                 `json:"id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Files      []*analysis.FileResult `json:"files"`
}

// Vulnerabilities lists every vulnerability of the scan ordered by file,
// line, column and method.
func (r *ScanResult) Vulnerabilities() []rules.Vulnerability {
	var out []rules.Vulnerability
	for _, f := range r.Files {
		out = append(out, f.Vulnerabilities...)
	}
	slices.SortStableFunc(out, func(a, b rules.Vulnerability) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Method, b.Method),
		)
	})
	return out
}

// Failed counts the files whose analysis ended with an error.
func (r *ScanResult) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" && !f.Skipped {
			n++
		}
	}
	return n
}

// Engine runs the analyzer over many files with a bounded pool of workers.
// A file that fails is recorded in the result and never stops the scan.
type Engine struct {
	analyzer    Analyzer
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
	maxSize     int64
	// readFile loads a file, failing with ErrFileTooLarge past limit bytes.
	readFile func(path string, limit int64) ([]byte, error)
}

// New creates an engine. By accepting its dependencies as interfaces, the
// engine stays decoupled from the concrete pipeline and easy to test.
func New(cfg config.Interface, analyzer Analyzer, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if analyzer == nil {
		return nil, errors.New("analyzer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ec := cfg.Engine()
	concurrency := ec.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4 // A sensible default.
	}
	timeout := ec.FileTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Engine{
		analyzer:    analyzer,
		logger:      logger.Named("engine"),
		concurrency: concurrency,
		timeout:     timeout,
		maxSize:     ec.MaxFileSize,
		readFile:    readSource,
	}, nil
}

// Run analyzes files and returns the collected results. On cancellation it
// returns what finished so far together with the context error.
func (e *Engine) Run(ctx context.Context, files []string) (*ScanResult, error) {
	res := &ScanResult{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	e.logger.Info("Starting scan",
		zap.String("scan_id", res.ID),
		zap.Int("files", len(files)),
		zap.Int("concurrency", e.concurrency))

	results := make([]*analysis.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = e.process(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			res.Files = append(res.Files, r)
		}
	}
	slices.SortFunc(res.Files, func(a, b *analysis.FileResult) int {
		return cmp.Compare(a.Path, b.Path)
	})
	res.FinishedAt = time.Now().UTC()

	e.logger.Info("Scan finished",
		zap.String("scan_id", res.ID),
		zap.Int("files", len(res.Files)),
		zap.Int("failed", res.Failed()),
		zap.Int("vulnerabilities", len(res.Vulnerabilities())),
		zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)))

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("scan %s interrupted: %w", res.ID, err)
	}
	return res, nil
}

// process handles the execution of a single file.
func (e *Engine) process(ctx context.Context, path string) (res *analysis.FileResult) {
	logger := e.logger.With(zap.String("file", path))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("File task panicked",
				zap.Any("panicValue", r),
				zap.String("stack", string(debug.Stack())),
			)
			res = &analysis.FileResult{Path: path, Error: fmt.Sprintf("%v: %v", analysis.ErrPanic, r)}
		}
	}()

	src, err := e.readFile(path, e.maxSize)
	if errors.Is(err, ErrFileTooLarge) {
		logger.Warn("Skipping large file", zap.Int64("limit", e.maxSize), zap.Error(err))
		return &analysis.FileResult{Path: path, Error: err.Error(), Skipped: true}
	}
	if err != nil {
		logger.Error("Failed to read file", zap.Error(err))
		return &analysis.FileResult{Path: path, Error: err.Error()}
	}

	fileCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err = e.analyzer.AnalyzeFile(fileCtx, path, src)
	if res == nil {
		res = &analysis.FileResult{Path: path}
	}
	if err != nil {
		// Distinguish between expected cancellation/timeout and actual errors.
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("File analysis timed out", zap.Duration("timeout", e.timeout), zap.Error(err))
		case errors.Is(err, context.Canceled):
			logger.Warn("File analysis was cancelled", zap.Error(err))
		default:
			logger.Error("File analysis failed", zap.Error(err))
		}
		if res.Error == "" {
			res.Error = err.Error()
		}
	}
	return res
}

// readSource reads path, checking its size on the open handle first. A limit
// of zero or less disables the check.
func readSource(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if limit > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		if info.Size() > limit {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, info.Size(), limit)
		}
	}
	return io.ReadAll(f)
}
