package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"appforge/internal/plan"
)

// PostgresStore keeps run records in a single table, one row per run,
// upserted on save. Task statuses travel as a JSONB column since their
// shape follows the task graph, not a fixed schema.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens a pgx-backed connection for the DSN and pings
// it so misconfiguration surfaces at startup, not on first save.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS run_records (
  run_id TEXT PRIMARY KEY,
  goal TEXT NOT NULL DEFAULT '',
  is_atomic BOOLEAN NOT NULL DEFAULT FALSE,
  success BOOLEAN NOT NULL DEFAULT FALSE,
  task_statuses JSONB NOT NULL DEFAULT '{}',
  reason TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMP WITH TIME ZONE NOT NULL,
  completed_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_records_started_at ON run_records (started_at);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return fmt.Errorf("runstore: run id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	statuses, err := json.Marshal(rec.TaskStatuses)
	if err != nil {
		return fmt.Errorf("runstore: encode task statuses: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO run_records (
  run_id, goal, is_atomic, success, task_statuses, reason, started_at, completed_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (run_id)
DO UPDATE SET goal=EXCLUDED.goal,
  is_atomic=EXCLUDED.is_atomic,
  success=EXCLUDED.success,
  task_statuses=EXCLUDED.task_statuses,
  reason=EXCLUDED.reason,
  started_at=EXCLUDED.started_at,
  completed_at=EXCLUDED.completed_at`,
		rec.RunID, rec.Goal, rec.IsAtomic, rec.Success, statuses, rec.Reason, rec.StartedAt, rec.CompletedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, runID string) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT run_id, goal, is_atomic, success, task_statuses, reason, started_at, completed_at
FROM run_records WHERE run_id = $1`, strings.TrimSpace(runID))
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, goal, is_atomic, success, task_statuses, reason, started_at, completed_at
FROM run_records ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var statuses []byte
	err := row.Scan(
		&rec.RunID,
		&rec.Goal,
		&rec.IsAtomic,
		&rec.Success,
		&statuses,
		&rec.Reason,
		&rec.StartedAt,
		&rec.CompletedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if len(statuses) > 0 {
		var m map[string]plan.Status
		if err := json.Unmarshal(statuses, &m); err == nil && len(m) > 0 {
			rec.TaskStatuses = m
		}
	}
	return rec, nil
}
