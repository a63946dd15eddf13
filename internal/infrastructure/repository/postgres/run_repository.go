package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// RunRepository keeps one row per streaming prediction run.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent runners.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2016051701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS prediction_runs (
	id TEXT PRIMARY KEY,
	model_artifact TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	pattern_count INTEGER NOT NULL,
	timeout_ms BIGINT NOT NULL,
	status TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_prediction_runs_started_at ON prediction_runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) StartRun(ctx context.Context, run domain.PredictionRun) error {
	const query = `
INSERT INTO prediction_runs (id, model_artifact, endpoint, pattern_count, timeout_ms, status, started_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.ModelArtifact,
		run.Endpoint,
		run.PatternCount,
		run.Timeout.Milliseconds(),
		string(domain.RunStatusRunning),
		run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) RecordProgress(ctx context.Context, runID string, processed int, elapsed time.Duration) error {
	const query = `
UPDATE prediction_runs
SET processed = $2, elapsed_ms = $3, updated_at = $4
WHERE id = $1
`
	return r.updateRun(ctx, runID, "record progress", query, processed, elapsed.Milliseconds(), time.Now().UTC())
}

func (r *RunRepository) FinishRun(ctx context.Context, runID string, processed int, elapsed time.Duration, runErr error) error {
	status := domain.RunStatusSucceeded
	var errMessage sql.NullString
	if runErr != nil {
		status = domain.RunStatusFailed
		errMessage = sql.NullString{String: runErr.Error(), Valid: true}
	}

	const query = `
UPDATE prediction_runs
SET status = $2, processed = $3, elapsed_ms = $4, error_message = $5, updated_at = $6, finished_at = $6
WHERE id = $1
`
	return r.updateRun(ctx, runID, "finish run", query, string(status), processed, elapsed.Milliseconds(), errMessage, time.Now().UTC())
}

func (r *RunRepository) updateRun(ctx context.Context, runID, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{runID}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: run %s not found", op, runID)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.PredictionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
SELECT id, model_artifact, endpoint, pattern_count, timeout_ms, status, processed, elapsed_ms, error_message, started_at, finished_at
FROM prediction_runs
ORDER BY started_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.PredictionRun
	for rows.Next() {
		var (
			run        domain.PredictionRun
			status     string
			timeoutMS  int64
			elapsedMS  int64
			errMessage sql.NullString
			finishedAt sql.NullTime
		)
		if err := rows.Scan(
			&run.ID,
			&run.ModelArtifact,
			&run.Endpoint,
			&run.PatternCount,
			&timeoutMS,
			&status,
			&run.Processed,
			&elapsedMS,
			&errMessage,
			&run.StartedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		run.Timeout = time.Duration(timeoutMS) * time.Millisecond
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		run.ErrorMessage = errMessage.String
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
