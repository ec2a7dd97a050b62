// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

// storeProvider defines an interface for components that can open the scan
// store. Tests inject a mock store instead of a live database connection.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing its
	// connection.
	Create(ctx context.Context, cfg config.Interface) (service.ScanStore, func(), error)
}

// defaultStoreProvider connects to the configured PostgreSQL database.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (service.ScanStore, func(), error) {
	logger := observability.GetLogger()
	st, pool, err := service.OpenStore(ctx, cfg.Database(), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed (via report cleanup).")
	}
	return st, cleanup, nil
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider, newReporter reporterFactory) *cobra.Command {
	var scanID string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the report of a persisted scan",
		Long: `Loads a scan stored with 'scan --persist' from the database and writes its
report again, in any supported format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applyScanFlagOverrides(cmd, cfg)

			return runReport(ctx, logger, cfg, scanID, provider, newReporter)
		},
	}

	reportCmd.Flags().StringVar(&scanID, "scan-id", "", "The ID of the scan to report (required)")
	_ = reportCmd.MarkFlagRequired("scan-id")
	reportCmd.Flags().StringP("output", "o", "", "Report file path, '-' for stdout. (Overrides config/env)")
	reportCmd.Flags().StringP("format", "f", "", "Report format, 'sarif' or 'json'. (Overrides config/env)")

	return reportCmd
}

// runReport contains the core, testable logic for regenerating a report.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	scanID string,
	provider storeProvider,
	newReporter reporterFactory,
) error {
	logger.Info("Starting report generation", zap.String("scan_id", scanID))

	st, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	// Mocks may not provide a cleanup.
	if cleanup != nil {
		defer cleanup()
	}

	scan, err := st.GetScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("failed to load scan: %w", err)
	}
	if err := writeReport(scan, cfg.Report(), logger, newReporter); err != nil {
		return err
	}

	logger.Info("Report generated",
		zap.String("scan_id", scanID),
		zap.Int("vulnerabilities", len(scan.Vulnerabilities())))
	return nil
}
