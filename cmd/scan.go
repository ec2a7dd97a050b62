package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

// reporterFactory creates the reporter of a command. reporting.New in
// production.
type reporterFactory func(format, outputPath, toolVersion string, logger *zap.Logger) (reporting.Reporter, error)

// newScanCmd creates and configures the `scan` command.
func newScanCmd(factory service.ComponentFactory, newReporter reporterFactory) *cobra.Command {
	var failOnFindings bool

	scanCmd := &cobra.Command{
		Use:   "scan [targets...]",
		Short: "Analyzes the given files and directories",
		Long: `Discovers the source files under each target, analyzes them and writes a
SARIF or JSON report. Directories are walked, or listed from git HEAD with --git.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applyScanFlagOverrides(cmd, cfg)

			// Delegate to the testable core logic function.
			return runScan(ctx, logger, cfg, args, failOnFindings, factory, newReporter)
		},
	}

	scanCmd.Flags().StringP("format", "f", "", "Report format, 'sarif' or 'json'. (Overrides config/env)")
	scanCmd.Flags().StringP("output", "o", "", "Report file path, '-' for stdout. (Overrides config/env)")
	scanCmd.Flags().IntP("concurrency", "j", 0, "Number of files analyzed in parallel. (Overrides config/env)")
	scanCmd.Flags().String("catalog", "", "Extra YAML catalog merged over the built-in one.")
	scanCmd.Flags().Bool("git", false, "List directory targets from git HEAD instead of walking them.")
	scanCmd.Flags().Int("max-paths", 0, "Maximum paths evaluated per sink. (Overrides config/env)")
	scanCmd.Flags().Bool("persist", false, "Store the scan in the configured database.")
	scanCmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "Exit with status 2 when vulnerabilities are found.")

	return scanCmd
}

// applyScanFlagOverrides copies explicitly set flags into the configuration.
// Invalid values are logged and ignored.
func applyScanFlagOverrides(cmd *cobra.Command, cfg config.Interface) {
	logger := observability.GetLogger()
	flags := cmd.Flags()

	if flags.Changed("format") {
		format, _ := flags.GetString("format")
		if slices.Contains(reporting.Formats(), format) {
			cfg.SetReportFormat(format)
		} else {
			logger.Warn("Invalid --format value, keeping the configured format.",
				zap.String("format", format),
				zap.String("configured", cfg.Report().Format))
		}
	}
	if flags.Changed("output") {
		output, _ := flags.GetString("output")
		if expanded, err := config.ExpandPath(output); err != nil {
			logger.Warn("Invalid --output value, keeping the configured output.", zap.Error(err))
		} else {
			cfg.SetReportOutput(expanded)
		}
	}
	if flags.Changed("concurrency") {
		concurrency, _ := flags.GetInt("concurrency")
		if concurrency > 0 {
			cfg.SetEngineWorkerConcurrency(concurrency)
		} else {
			logger.Warn("Invalid --concurrency value, it must be positive.", zap.Int("concurrency", concurrency))
		}
	}
	if flags.Changed("catalog") {
		path, _ := flags.GetString("catalog")
		if expanded, err := config.ExpandPath(path); err != nil {
			logger.Warn("Invalid --catalog value, keeping the configured catalog.", zap.Error(err))
		} else {
			cfg.SetAnalysisCatalogPath(expanded)
		}
	}
	if flags.Changed("git") {
		useGit, _ := flags.GetBool("git")
		cfg.SetDiscoveryUseGit(useGit)
	}
	if flags.Changed("max-paths") {
		maxPaths, _ := flags.GetInt("max-paths")
		if maxPaths >= 0 {
			cfg.SetAnalysisMaxPaths(maxPaths)
		} else {
			logger.Warn("Invalid --max-paths value, it must not be negative.", zap.Int("max_paths", maxPaths))
		}
	}
	if flags.Changed("persist") {
		persist, _ := flags.GetBool("persist")
		cfg.SetDatabaseEnabled(persist)
	}
}

// runScan contains the core, testable logic of a scan. A canceled scan still
// reports the files that finished before returning the cancellation.
func runScan(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	targets []string,
	failOnFindings bool,
	factory service.ComponentFactory,
	newReporter reporterFactory,
) error {
	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scan components: %w", err)
	}
	defer components.Shutdown()

	files, err := components.Discoverer.Discover(ctx, targets)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("No analyzable files found.", zap.Strings("targets", targets))
	}

	result, runErr := components.Runner.Run(ctx, files)
	if result == nil {
		if runErr == nil {
			runErr = errors.New("engine returned no result")
		}
		return fmt.Errorf("scan failed: %w", runErr)
	}
	if runErr != nil {
		logger.Warn("Scan aborted, reporting partial results.",
			zap.String("scan_id", result.ID),
			zap.Int("files", len(result.Files)),
			zap.Error(runErr))
	}

	if err := writeReport(result, cfg.Report(), logger, newReporter); err != nil {
		return err
	}

	if components.Store != nil && runErr == nil {
		if err := components.Store.PersistScan(ctx, result); err != nil {
			return fmt.Errorf("failed to persist scan: %w", err)
		}
	}

	vulns := result.Vulnerabilities()
	logger.Info("Scan complete.",
		zap.String("scan_id", result.ID),
		zap.Int("files", len(result.Files)),
		zap.Int("failed", result.Failed()),
		zap.Int("vulnerabilities", len(vulns)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)))

	if runErr != nil {
		return fmt.Errorf("scan aborted: %w", runErr)
	}
	if failOnFindings && len(vulns) > 0 {
		return fmt.Errorf("%w: %d", ErrFindingsDetected, len(vulns))
	}
	return nil
}

// writeReport encodes one scan with a reporter built from rc.
func writeReport(result *engine.ScanResult, rc config.ReportConfig, logger *zap.Logger, newReporter reporterFactory) error {
	reporter, err := newReporter(rc.Format, rc.Output, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(result); err != nil {
		_ = reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
