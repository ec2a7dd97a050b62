// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/catalog"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/discovery"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/store"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/symeval"
)

// ComponentFactory defines the interface for creating the set of components needed for a scan.
// This abstraction is the key to making the scan command's logic testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create wires the catalog, the analysis pipeline, the engine and file
// discovery. The store is only connected when database.enabled is set.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ac := cfg.Analysis()

	cat, err := LoadCatalog(ac.CatalogPath)
	if err != nil {
		return nil, err
	}
	mode, err := symeval.ParseMode(ac.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("analysis.aggregation: %w", err)
	}

	langs := ac.EnabledLanguages()
	rs := rules.NewSet(cat, rules.Options{MaxPaths: ac.MaxPaths, Aggregation: mode}, logger, langs)
	eng, err := engine.New(cfg, analysis.New(rs, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	components := &Components{
		Catalog:    cat,
		Discoverer: discovery.New(cfg.Discovery(), langs, logger),
		Runner:     eng,
	}

	if cfg.Database().Enabled {
		st, pool, err := OpenStore(ctx, cfg.Database(), logger)
		if err != nil {
			return nil, err
		}
		components.Store = st
		components.DBPool = pool
	}

	logger.Debug("Scan components initialized.",
		zap.Int("methods", cat.Len()),
		zap.Int("languages", len(langs)),
		zap.Bool("persistence", components.Store != nil))
	return components, nil
}

// LoadCatalog returns the built-in catalog, merged with the one at path
// when path is set.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	if path == "" {
		return cat, nil
	}
	extra, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat.Merge(extra), nil
}

// OpenStore connects to the database, verifies the connection and creates
// the schema. The caller owns the returned pool.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, *pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (SKIMS_DATABASE_URL)")
	}
	pool, err := store.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool, nil
}
