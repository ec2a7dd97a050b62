// File: cmd/scan_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/mocks"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

func TestApplyScanFlagOverrides(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		check         func(t *testing.T, cfg *config.Config)
		warningSubstr string
	}{
		{
			name: "No flags uses initial config",
			args: []string{},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.NewDefaultConfig(), cfg)
			},
		},
		{
			name: "Report flags override defaults",
			args: []string{"--format", "json", "--output", "out.json"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "json", cfg.Report().Format)
				assert.Equal(t, "out.json", cfg.Report().Output)
			},
		},
		{
			name: "Analysis flags override defaults",
			args: []string{"-j", "3", "--max-paths", "5", "--catalog", "extra.yaml", "--git", "--persist"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 3, cfg.Engine().WorkerConcurrency)
				assert.Equal(t, 5, cfg.Analysis().MaxPaths)
				assert.Equal(t, "extra.yaml", cfg.Analysis().CatalogPath)
				assert.True(t, cfg.Discovery().UseGit)
				assert.True(t, cfg.Database().Enabled)
			},
		},
		{
			name: "Zero max paths is allowed",
			args: []string{"--max-paths", "0"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 0, cfg.Analysis().MaxPaths)
			},
		},
		{
			name: "Invalid format keeps the configured one and logs a warning",
			args: []string{"--format", "xml"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "sarif", cfg.Report().Format)
			},
			warningSubstr: "Invalid --format value",
		},
		{
			name: "Non positive concurrency is ignored",
			args: []string{"--concurrency", "0"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.NewDefaultConfig().Engine().WorkerConcurrency, cfg.Engine().WorkerConcurrency)
			},
			warningSubstr: "Invalid --concurrency value",
		},
		{
			name: "Negative max paths is ignored",
			args: []string{"--max-paths", "-1"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.NewDefaultConfig().Analysis().MaxPaths, cfg.Analysis().MaxPaths)
			},
			warningSubstr: "Invalid --max-paths value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := config.NewDefaultConfig()

			// Use a logger that captures output to verify warnings.
			observability.ResetForTest()
			t.Cleanup(observability.ResetForTest)
			var buffer bytes.Buffer
			observability.Initialize(
				config.LoggerConfig{Level: "debug", Format: "console"},
				zapcore.AddSync(&buffer),
			)

			scanCmd := newScanCmd(nil, nil)
			require.NoError(t, scanCmd.ParseFlags(tt.args))

			// Act
			applyScanFlagOverrides(scanCmd, cfg)

			// Assert
			tt.check(t, cfg)
			if tt.warningSubstr != "" {
				assert.Contains(t, buffer.String(), tt.warningSubstr, "Expected a warning to be logged")
			} else {
				assert.NotContains(t, buffer.String(), "Invalid --", "Did not expect a warning")
			}
		})
	}
}

// scanMocks bundles the dependencies of runScan.
type scanMocks struct {
	factory    *mocks.MockComponentFactory
	discoverer *mocks.MockDiscoverer
	runner     *mocks.MockRunner
	store      *mocks.MockStore
	reporter   *mocks.MockReporter
	components *service.Components
}

func newScanMocks(withStore bool) *scanMocks {
	m := &scanMocks{
		factory:    new(mocks.MockComponentFactory),
		discoverer: new(mocks.MockDiscoverer),
		runner:     new(mocks.MockRunner),
		store:      new(mocks.MockStore),
		reporter:   new(mocks.MockReporter),
	}
	m.components = &service.Components{Discoverer: m.discoverer, Runner: m.runner}
	if withStore {
		m.components.Store = m.store
	}
	m.factory.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*zap.Logger")).Return(m.components, nil)
	return m
}

func (m *scanMocks) newReporter(format, outputPath, toolVersion string, logger *zap.Logger) (reporting.Reporter, error) {
	return m.reporter, nil
}

func (m *scanMocks) assertExpectations(t *testing.T) {
	t.Helper()
	m.factory.AssertExpectations(t)
	m.discoverer.AssertExpectations(t)
	m.runner.AssertExpectations(t)
	m.store.AssertExpectations(t)
	m.reporter.AssertExpectations(t)
}

func TestRunScanLogic(t *testing.T) {
	logger := zap.NewNop()
	baseCtx := context.Background()
	targets := []string{"src"}
	files := []string{"src/app.js", "src/util.js"}

	t.Run("successful scan writes a SARIF report", func(t *testing.T) {
		// Arrange
		m := newScanMocks(false)
		result := sampleResult()
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, nil)

		cfg := config.NewDefaultConfig()
		outputFile := filepath.Join(t.TempDir(), "report.sarif")
		cfg.SetReportOutput(outputFile)

		// Act
		err := runScan(baseCtx, zaptest.NewLogger(t), cfg, targets, false, m.factory, reporting.New)

		// Assert
		require.NoError(t, err)
		m.assertExpectations(t)
		content, err := os.ReadFile(outputFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"version": "2.1.0"`)
		assert.Contains(t, string(content), "src/app.js")
	})

	t.Run("scan fails when component factory returns an error", func(t *testing.T) {
		factory := new(mocks.MockComponentFactory)
		factoryErr := errors.New("failed to connect to db")
		factory.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, factoryErr)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, factory, reporting.New)

		assert.ErrorIs(t, err, factoryErr)
		assert.ErrorContains(t, err, "failed to initialize scan components")
		factory.AssertExpectations(t)
	})

	t.Run("scan fails when discovery fails", func(t *testing.T) {
		m := newScanMocks(false)
		discoverErr := os.ErrNotExist
		m.discoverer.On("Discover", mock.Anything, targets).Return(nil, discoverErr)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, m.factory, m.newReporter)

		assert.ErrorIs(t, err, discoverErr)
		assert.ErrorContains(t, err, "failed to discover files")
		m.assertExpectations(t)
	})

	t.Run("scan fails when the engine returns no result", func(t *testing.T) {
		m := newScanMocks(false)
		runErr := errors.New("no files given")
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(nil, runErr)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, m.factory, m.newReporter)

		assert.ErrorIs(t, err, runErr)
		m.assertExpectations(t)
	})

	t.Run("canceled scan reports partial results without persisting", func(t *testing.T) {
		m := newScanMocks(true)
		result := sampleResult()
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, context.Canceled)
		m.reporter.On("Write", result).Return(nil)
		m.reporter.On("Close").Return(nil)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, true, m.factory, m.newReporter)

		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrFindingsDetected)
		m.store.AssertNotCalled(t, "PersistScan", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("persists the scan when a store is configured", func(t *testing.T) {
		m := newScanMocks(true)
		result := sampleResult()
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, nil)
		m.reporter.On("Write", result).Return(nil)
		m.reporter.On("Close").Return(nil)
		m.store.On("PersistScan", mock.Anything, result).Return(nil)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, m.factory, m.newReporter)

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("scan fails when persisting fails", func(t *testing.T) {
		m := newScanMocks(true)
		result := sampleResult()
		persistErr := errors.New("connection refused")
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, nil)
		m.reporter.On("Write", result).Return(nil)
		m.reporter.On("Close").Return(nil)
		m.store.On("PersistScan", mock.Anything, result).Return(persistErr)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, m.factory, m.newReporter)

		assert.ErrorIs(t, err, persistErr)
		assert.ErrorContains(t, err, "failed to persist scan")
		m.assertExpectations(t)
	})

	t.Run("fail on findings", func(t *testing.T) {
		m := newScanMocks(false)
		result := sampleResult()
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, nil)
		m.reporter.On("Write", result).Return(nil)
		m.reporter.On("Close").Return(nil)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, true, m.factory, m.newReporter)

		assert.ErrorIs(t, err, ErrFindingsDetected)
		assert.ErrorContains(t, err, ": 1")
		m.assertExpectations(t)
	})

	t.Run("fail on findings passes a clean scan", func(t *testing.T) {
		m := newScanMocks(false)
		clean := &engine.ScanResult{ID: "scan-2"}
		m.discoverer.On("Discover", mock.Anything, targets).Return([]string{}, nil)
		m.runner.On("Run", mock.Anything, []string{}).Return(clean, nil)
		m.reporter.On("Write", clean).Return(nil)
		m.reporter.On("Close").Return(nil)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, true, m.factory, m.newReporter)

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("scan fails when the report cannot be written", func(t *testing.T) {
		m := newScanMocks(false)
		result := sampleResult()
		writeErr := errors.New("disk full")
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(result, nil)
		m.reporter.On("Write", result).Return(writeErr)
		m.reporter.On("Close").Return(nil)

		err := runScan(baseCtx, logger, config.NewDefaultConfig(), targets, false, m.factory, m.newReporter)

		assert.ErrorIs(t, err, writeErr)
		assert.ErrorContains(t, err, "failed to write report")
		m.assertExpectations(t)
	})

	t.Run("scan fails when the reporter cannot be created", func(t *testing.T) {
		m := newScanMocks(false)
		m.discoverer.On("Discover", mock.Anything, targets).Return(files, nil)
		m.runner.On("Run", mock.Anything, files).Return(sampleResult(), nil)

		cfg := config.NewDefaultConfig()
		cfg.SetReportOutput(filepath.Join(t.TempDir(), "missing", "report.sarif"))
		err := runScan(baseCtx, logger, cfg, targets, false, m.factory, reporting.New)

		assert.ErrorContains(t, err, "failed to initialize reporter")
		m.assertExpectations(t)
	})
}

// TestScanCmd_EndToEnd runs the real pipeline through the command line.
func TestScanCmd_EndToEnd(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"),
		[]byte("function handler(req, res) {\n  eval(req.body.code);\n}\n"), 0o644))
	output := filepath.Join(t.TempDir(), "report.json")

	root := newRootCmd(service.NewComponentFactory(), new(mockStoreProvider), reporting.New)
	_, err := executeCommand(root, "scan", "--format", "json", "--output", output, "--fail-on-findings", dir)
	require.ErrorIs(t, err, ErrFindingsDetected)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(content), "js_remote_command_execution")
	assert.Contains(t, string(content), `"vulnerabilities": 1`)
}
