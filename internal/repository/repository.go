package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/db"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository handles PostgreSQL operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// SaveRun stores the run and all its anomalies in one transaction
func (r *Repository) SaveRun(ctx context.Context, run db.DetectionRun, anomalies []anomaly.Anomaly) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.InsertRunTx(ctx, tx, run); err != nil {
		return err
	}
	if err := r.SaveAnomaliesTx(ctx, tx, run.ID, anomalies); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertRunTx inserts a detection run within a transaction
func (r *Repository) InsertRunTx(ctx context.Context, tx pgx.Tx, run db.DetectionRun) error {
	query := `
		INSERT INTO detection_runs (id, request_id, source, record_count, warning_count, anomaly_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := tx.Exec(ctx, query,
		run.ID,
		run.RequestID,
		run.Source,
		run.RecordCount,
		run.WarningCount,
		run.AnomalyCount,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection run: %w", err)
	}
	return nil
}

// SaveAnomaliesTx inserts one row per anomaly within a transaction
func (r *Repository) SaveAnomaliesTx(ctx context.Context, tx pgx.Tx, runID uuid.UUID, anomalies []anomaly.Anomaly) error {
	rows, err := NewAnomalyRows(runID, anomalies)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO anomalies (id, run_id, position, type, kind, event, anchor_time, details, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query,
			row.ID,
			row.RunID,
			row.Position,
			row.Type,
			row.Kind,
			row.Event,
			row.AnchorTime,
			row.Details,
			row.Payload,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert anomalies: %w", err)
	}
	return nil
}

// ListAnomalies returns the stored anomalies of a run in timeline order
func (r *Repository) ListAnomalies(ctx context.Context, runID uuid.UUID) ([]db.AnomalyRow, error) {
	query := `
		SELECT id, run_id, position, type, kind, event, anchor_time, details, payload, created_at
		FROM anomalies
		WHERE run_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var result []db.AnomalyRow
	for rows.Next() {
		var row db.AnomalyRow
		if err := rows.Scan(
			&row.ID,
			&row.RunID,
			&row.Position,
			&row.Type,
			&row.Kind,
			&row.Event,
			&row.AnchorTime,
			&row.Details,
			&row.Payload,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
