package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/port"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS reconcile_runs (
	id               CHAR(36)    NOT NULL PRIMARY KEY,
	status           VARCHAR(16) NOT NULL,
	dry_run          BOOLEAN     NOT NULL DEFAULT FALSE,
	pages            INT         NOT NULL DEFAULT 0,
	products_scanned INT         NOT NULL DEFAULT 0,
	products_updated INT         NOT NULL DEFAULT 0,
	products_skipped INT         NOT NULL DEFAULT 0,
	error            TEXT        NULL,
	started_at       DATETIME(6) NOT NULL,
	finished_at      DATETIME(6) NULL,
	INDEX idx_reconcile_runs_started_at (started_at)
)`

const selectRun = `
	SELECT id, status, dry_run, pages, products_scanned, products_updated,
		products_skipped, error, started_at, finished_at
	FROM reconcile_runs`

// MySQLAdapter stores run history. The connection must use parseTime=true.
type MySQLAdapter struct {
	db *sql.DB
}

var _ port.RunRepository = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create reconcile_runs: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateRun(ctx context.Context, run domain.Run) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, status, dry_run, started_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.DryRun, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// UpdateRun upserts so that a run whose start failed to record still lands.
func (m *MySQLAdapter) UpdateRun(ctx context.Context, run domain.Run) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, status, dry_run, pages, products_scanned,
			products_updated, products_skipped, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			pages = VALUES(pages),
			products_scanned = VALUES(products_scanned),
			products_updated = VALUES(products_updated),
			products_skipped = VALUES(products_skipped),
			error = VALUES(error),
			finished_at = VALUES(finished_at)`,
		run.ID, run.Status, run.DryRun, run.Pages, run.ProductsScanned,
		run.ProductsUpdated, run.ProductsSkipped, nullString(run.Error),
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return m.scanRun(m.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
}

func (m *MySQLAdapter) LatestRun(ctx context.Context) (*domain.Run, error) {
	return m.scanRun(m.db.QueryRowContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT 1`))
}

func (m *MySQLAdapter) scanRun(row *sql.Row) (*domain.Run, error) {
	var (
		run        domain.Run
		runErr     sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.Status, &run.DryRun, &run.Pages, &run.ProductsScanned,
		&run.ProductsUpdated, &run.ProductsSkipped, &runErr, &run.StartedAt, &finishedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	run.Error = runErr.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
