package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhango/pricesync/pkg/database"
	"github.com/jhango/pricesync/pkg/logger"
)

// ErrRunNotFound is returned when a requested run id has no stored report.
var ErrRunNotFound = errors.New("run not found")

// Repository persists run reports so past runs stay auditable after the
// process exits. The process runs fine without a database; callers skip
// persistence when no repository is configured.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a run-history repository over the given database.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log.WithField("component", "run-history")}
}

// Migrate creates the run-history tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_runs (
			id          UUID PRIMARY KEY,
			mode        TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			snapshot    JSONB NOT NULL,
			updated     INT NOT NULL,
			skipped     INT NOT NULL,
			failed      INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS price_run_outcomes (
			run_id     UUID NOT NULL REFERENCES price_runs(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			handle     TEXT NOT NULL,
			variant_id TEXT NOT NULL,
			title      TEXT NOT NULL,
			old_price  TEXT NOT NULL,
			new_price  DOUBLE PRECISION,
			compare_at DOUBLE PRECISION,
			status     TEXT NOT NULL,
			reason     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON price_run_outcomes(run_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate run history: %w", err)
	}
	return nil
}

// Save stores a finished run and its outcomes in one transaction.
func (r *Repository) Save(ctx context.Context, report *RunReport) error {
	snapshot, err := json.Marshal(report.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run save: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO price_runs (id, mode, started_at, finished_at, snapshot, updated, skipped, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.ID, string(report.Mode), report.StartedAt, report.FinishedAt,
		snapshot, report.Updated, report.Skipped, report.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, o := range report.Outcomes {
		_, err = tx.Exec(ctx, `
			INSERT INTO price_run_outcomes (run_id, product_id, handle, variant_id, title, old_price, new_price, compare_at, status, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			report.ID, o.ProductID, o.Handle, o.VariantID, o.Title,
			o.OldPrice, o.NewPrice, o.CompareAt, string(o.Status), o.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run save: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id":   report.ID,
		"outcomes": len(report.Outcomes),
	}).Debug("Run saved")
	return nil
}

// List returns the most recent runs, newest first, without their outcome
// rows.
func (r *Repository) List(ctx context.Context, limit int) ([]RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, mode, started_at, finished_at, snapshot, updated, skipped, failed
		FROM price_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, report)
	}
	return runs, rows.Err()
}

// Get returns one run with its full outcome list.
func (r *Repository) Get(ctx context.Context, id string) (*RunReport, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, mode, started_at, finished_at, snapshot, updated, skipped, failed
		FROM price_runs
		WHERE id = $1`, id)

	report, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT product_id, handle, variant_id, title, old_price, new_price, compare_at, status, reason
		FROM price_run_outcomes
		WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Outcome
		var status, reason string
		if err := rows.Scan(&o.ProductID, &o.Handle, &o.VariantID, &o.Title,
			&o.OldPrice, &o.NewPrice, &o.CompareAt, &status, &reason); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = Status(status)
		o.Reason = reason
		report.Outcomes = append(report.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Latest returns the most recent run with its outcomes.
func (r *Repository) Latest(ctx context.Context) (*RunReport, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id FROM price_runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest run: %w", err)
	}
	return r.Get(ctx, id)
}

func scanRun(row pgx.Row) (RunReport, error) {
	var report RunReport
	var mode string
	var snapshot []byte

	err := row.Scan(&report.ID, &mode, &report.StartedAt, &report.FinishedAt,
		&snapshot, &report.Updated, &report.Skipped, &report.Failed)
	if err != nil {
		return RunReport{}, err
	}

	report.Mode = Mode(mode)
	if err := json.Unmarshal(snapshot, &report.Snapshot); err != nil {
		return RunReport{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return report, nil
}
