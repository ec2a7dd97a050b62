// File: internal/service/components.go
package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// FileDiscoverer expands scan targets into files.
type FileDiscoverer interface {
	Discover(ctx context.Context, targets []string) ([]string, error)
}

// ScanRunner analyzes a list of files.
type ScanRunner interface {
	Run(ctx context.Context, files []string) (*engine.ScanResult, error)
}

// ScanStore persists scans and reads them back.
type ScanStore interface {
	PersistScan(ctx context.Context, scan *engine.ScanResult) error
	GetScan(ctx context.Context, scanID string) (*engine.ScanResult, error)
	GetVulnerabilities(ctx context.Context, scanID string) ([]rules.Vulnerability, error)
}

// Components holds all the initialized services required for a scan.
// This struct centralizes the lifecycle management of scan-related dependencies.
type Components struct {
	Catalog    *catalog.Catalog
	Discoverer FileDiscoverer
	Runner     ScanRunner
	// Store is nil unless persistence is enabled.
	Store  ScanStore
	DBPool *pgxpool.Pool
}

// Shutdown releases the resources held by the components. It is safe to
// call on a partially built set.
func (c *Components) Shutdown() {
	if c == nil {
		return
	}
	logger := observability.GetLogger()
	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}
	logger.Debug("Scan components shut down.")
}
