package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// ErrScanNotFound is returned when no scan has the requested id.
var ErrScanNotFound = errors.New("scan not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Schema creates the tables the store writes to. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    files INTEGER NOT NULL,
    failed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS file_results (
    scan_id TEXT NOT NULL REFERENCES scans (id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    language TEXT NOT NULL,
    error TEXT NOT NULL,
    skipped BOOLEAN NOT NULL,
    duration_ms BIGINT NOT NULL,
    PRIMARY KEY (scan_id, path)
);
CREATE TABLE IF NOT EXISTS vulnerabilities (
    id TEXT NOT NULL,
    scan_id TEXT NOT NULL REFERENCES scans (id) ON DELETE CASCADE,
    method TEXT NOT NULL,
    finding TEXT NOT NULL,
    description TEXT NOT NULL,
    path TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    sink TEXT NOT NULL,
    snippet TEXT NOT NULL,
    triggers TEXT[] NOT NULL,
    trace INTEGER[] NOT NULL,
    PRIMARY KEY (scan_id, id)
);
`

const (
	sqlInsertScan = `
        INSERT INTO scans (id, started_at, finished_at, files, failed)
        VALUES ($1, $2, $3, $4, $5);
    `
	sqlInsertFileResult = `
        INSERT INTO file_results (scan_id, path, language, error, skipped, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (scan_id, path) DO UPDATE SET
            language = EXCLUDED.language,
            error = EXCLUDED.error,
            skipped = EXCLUDED.skipped,
            duration_ms = EXCLUDED.duration_ms;
    `
	sqlGetScan = `
        SELECT id, started_at, finished_at
        FROM scans
        WHERE id = $1;
    `
	sqlGetFileResults = `
        SELECT path, language, error, skipped, duration_ms
        FROM file_results
        WHERE scan_id = $1
        ORDER BY path ASC;
    `
	sqlGetVulnerabilities = `
        SELECT id, method, finding, description, path, line, col, sink, snippet, triggers, trace
        FROM vulnerabilities
        WHERE scan_id = $1
        ORDER BY path ASC, line ASC, col ASC, method ASC;
    `
)

var vulnerabilityColumns = []string{"id", "scan_id", "method", "finding", "description", "path", "line", "col", "sink", "snippet", "triggers", "trace"}

// Connect opens a pgx pool for the given database URL.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// Store persists scans in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// PersistScan writes a scan, its per-file status and its vulnerabilities in
// one transaction.
func (s *Store) PersistScan(ctx context.Context, scan *engine.ScanResult) error {
	if scan == nil {
		return errors.New("scan result cannot be nil")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertScan,
		scan.ID, scan.StartedAt.UTC(), scan.FinishedAt.UTC(), len(scan.Files), scan.Failed(),
	); err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", scan.ID, err)
	}

	if err := s.persistFiles(ctx, tx, scan); err != nil {
		return err
	}

	if vulns := scan.Vulnerabilities(); len(vulns) > 0 {
		if err := s.persistVulnerabilities(ctx, tx, scan.ID, vulns); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Persisted scan",
		zap.String("scan_id", scan.ID),
		zap.Int("files", len(scan.Files)))
	return nil
}

func (s *Store) persistFiles(ctx context.Context, tx pgx.Tx, scan *engine.ScanResult) error {
	if len(scan.Files) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range scan.Files {
		batch.Queue(sqlInsertFileResult, scan.ID, f.Path, string(f.Language), f.Error, f.Skipped, f.Duration.Milliseconds())
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		_ = br.Close()
	}()

	// Executing each result ensures the command ran and checks its status.
	for i := range scan.Files {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert file result %s (index %d): %w", scan.Files[i].Path, i, err)
		}
	}
	return nil
}

func (s *Store) persistVulnerabilities(ctx context.Context, tx pgx.Tx, scanID string, vulns []rules.Vulnerability) error {
	rows := make([][]interface{}, len(vulns))
	for i, v := range vulns {
		triggers := v.Triggers
		if triggers == nil {
			triggers = []string{}
		}
		trace := v.Trace
		if trace == nil {
			trace = []int{}
		}
		rows[i] = []interface{}{
			v.ID, scanID, v.Method, v.Finding, v.Description,
			v.Path, v.Line, v.Column, v.Sink, v.Snippet,
			triggers, trace,
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"vulnerabilities"}, vulnerabilityColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy vulnerabilities: %w", err)
	}
	if int(copyCount) != len(vulns) {
		return fmt.Errorf("mismatch in copied vulnerabilities count: expected %d, got %d", len(vulns), copyCount)
	}
	return nil
}

// GetVulnerabilities returns the vulnerabilities of a scan ordered by
// location.
func (s *Store) GetVulnerabilities(ctx context.Context, scanID string) ([]rules.Vulnerability, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, sqlGetVulnerabilities, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vulnerabilities: %w", err)
	}
	defer rows.Close()

	var out []rules.Vulnerability
	for rows.Next() {
		var v rules.Vulnerability
		err := rows.Scan(
			&v.ID, &v.Method, &v.Finding, &v.Description,
			&v.Path, &v.Line, &v.Column, &v.Sink, &v.Snippet,
			&v.Triggers, &v.Trace,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vulnerability row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	s.log.Debug("Loaded vulnerabilities",
		zap.String("scan_id", scanID),
		zap.Int("count", len(out)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// GetScan loads a persisted scan with its file results and their
// vulnerabilities.
func (s *Store) GetScan(ctx context.Context, scanID string) (*engine.ScanResult, error) {
	scan := &engine.ScanResult{}
	err := s.pool.QueryRow(ctx, sqlGetScan, scanID).Scan(&scan.ID, &scan.StartedAt, &scan.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, scanID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan %s: %w", scanID, err)
	}

	rows, err := s.pool.Query(ctx, sqlGetFileResults, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query file results: %w", err)
	}
	byPath := make(map[string]*analysis.FileResult)
	for rows.Next() {
		var (
			f          analysis.FileResult
			language   string
			durationMS int64
		)
		if err := rows.Scan(&f.Path, &language, &f.Error, &f.Skipped, &durationMS); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file result row: %w", err)
		}
		f.Language = cst.Language(language)
		f.Duration = time.Duration(durationMS) * time.Millisecond
		scan.Files = append(scan.Files, &f)
		byPath[f.Path] = &f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	vulns, err := s.GetVulnerabilities(ctx, scanID)
	if err != nil {
		return nil, err
	}
	for _, v := range vulns {
		f, ok := byPath[v.Path]
		if !ok {
			// Orphaned rows are still reported.
			f = &analysis.FileResult{Path: v.Path}
			scan.Files = append(scan.Files, f)
			byPath[v.Path] = f
		}
		f.Vulnerabilities = append(f.Vulnerabilities, v)
	}
	return scan, nil
}
