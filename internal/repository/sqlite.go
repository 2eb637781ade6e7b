package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
	"github.com/septivank/activity-anomaly-worker/internal/db"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS detection_runs (
	id            TEXT PRIMARY KEY,
	request_id    TEXT NOT NULL,
	source        TEXT NOT NULL,
	record_count  INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	anomaly_count INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS anomalies (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES detection_runs (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	type        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	event       TEXT,
	anchor_time TEXT NOT NULL,
	details     TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_anomalies_run_id ON anomalies (run_id, position);
`

// SQLiteStore keeps anomalies in a local SQLite file, used for single-file
// analysis runs where no PostgreSQL server is available
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// pragmas in the DSN apply to every pooled connection, not just the first
	sqlDB, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &SQLiteStore{db: sqlDB}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// SaveRun stores the run and all its anomalies in one transaction
func (s *SQLiteStore) SaveRun(ctx context.Context, run db.DetectionRun, anomalies []anomaly.Anomaly) error {
	rows, err := NewAnomalyRows(run.ID, anomalies)
	if err != nil {
		return err
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	stamp := createdAt.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO detection_runs (id, request_id, source, record_count, warning_count, anomaly_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.RequestID, run.Source, run.RecordCount, run.WarningCount, run.AnomalyCount, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (id, run_id, position, type, kind, event, anchor_time, details, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare anomaly insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.ID.String(),
			row.RunID.String(),
			row.Position,
			row.Type,
			row.Kind,
			row.Event,
			row.AnchorTime,
			row.Details,
			string(row.Payload),
			stamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListAnomalies returns the stored anomalies of a run in timeline order
func (s *SQLiteStore) ListAnomalies(ctx context.Context, runID uuid.UUID) ([]db.AnomalyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, position, type, kind, event, anchor_time, details, payload, created_at
		FROM anomalies
		WHERE run_id = ?
		ORDER BY position`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var result []db.AnomalyRow
	for rows.Next() {
		var (
			row              db.AnomalyRow
			id, run, created string
			event            sql.NullString
			payload          string
		)
		if err := rows.Scan(&id, &run, &row.Position, &row.Type, &row.Kind, &event,
			&row.AnchorTime, &row.Details, &payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}

		if row.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid anomaly id %q: %w", id, err)
		}
		if row.RunID, err = uuid.Parse(run); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", run, err)
		}
		if event.Valid {
			row.Event = &event.String
		}
		row.Payload = []byte(payload)
		if row.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
