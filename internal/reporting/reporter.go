// -- internal/reporting/reporter.go --
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
)

// Reporter defines the interface for writing scan results to an output.
type Reporter interface {
	// Write adds a finished scan to the report.
	Write(result *engine.ScanResult) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// Formats lists the supported report formats.
func Formats() []string { return []string{"sarif", "json"} }

// New creates a new reporter based on the specified format and output path.
// An empty path, "-" or "stdout" writes to standard output.
func New(format, outputPath, toolVersion string, logger *zap.Logger) (Reporter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	switch format {
	case "sarif", "json":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "-" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	// The reporter takes ownership of the writer.
	if format == "json" {
		return NewJSONReporter(writer, toolVersion, logger), nil
	}
	return NewSARIFReporter(writer, toolVersion, logger), nil
}
