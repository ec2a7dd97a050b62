package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// JSONDocument is the top level of a JSON report.
type JSONDocument struct {
	Tool  JSONTool   `json:"tool"`
	Scans []JSONScan `json:"scans"`
}

type JSONTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// JSONScan flattens a scan into its vulnerabilities and a per-file status.
type JSONScan struct {
	ID              string                `json:"id"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
	Summary         JSONSummary           `json:"summary"`
	Vulnerabilities []rules.Vulnerability `json:"vulnerabilities"`
	Files           []JSONFile            `json:"files"`
}

type JSONSummary struct {
	Files           int `json:"files"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Vulnerabilities int `json:"vulnerabilities"`
}

type JSONFile struct {
	Path        string   `json:"path"`
	Language    string   `json:"language,omitempty"`
	Error       string   `json:"error,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// JSONReporter buffers scans and writes them as one JSON document on Close.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	mu     sync.Mutex
	doc    JSONDocument
}

func NewJSONReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: logger.Named("json_reporter"),
		doc: JSONDocument{
			Tool:  JSONTool{Name: ToolName, Version: toolVersion},
			Scans: []JSONScan{},
		},
	}
}

func (r *JSONReporter) Write(result *engine.ScanResult) error {
	if result == nil {
		return fmt.Errorf("scan result cannot be nil")
	}
	scan := JSONScan{
		ID:              result.ID,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Vulnerabilities: result.Vulnerabilities(),
		Files:           make([]JSONFile, 0, len(result.Files)),
	}
	if scan.Vulnerabilities == nil {
		scan.Vulnerabilities = []rules.Vulnerability{}
	}
	for _, f := range result.Files {
		scan.Files = append(scan.Files, JSONFile{
			Path:        f.Path,
			Language:    string(f.Language),
			Error:       f.Error,
			Skipped:     f.Skipped,
			Diagnostics: f.Diagnostics,
			DurationMS:  f.Duration.Milliseconds(),
		})
		if f.Skipped {
			scan.Summary.Skipped++
		}
	}
	scan.Summary.Files = len(result.Files)
	scan.Summary.Failed = result.Failed()
	scan.Summary.Vulnerabilities = len(scan.Vulnerabilities)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Scans = append(r.doc.Scans, scan)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err == nil {
		_, err = r.writer.Write(append(data, '\n'))
	}
	closeErr := r.writer.Close()
	if err != nil {
		r.logger.Error("Failed to write JSON report", zap.Error(err))
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Info("Successfully wrote JSON report", zap.Int("scans", len(r.doc.Scans)))
	return nil
}
