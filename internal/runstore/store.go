// Package runstore persists run records: one row per orchestrated
// run, keyed by run id. Backends share a single interface so the
// orchestrator does not care whether records land in a JSON file or
// Postgres.
package runstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"appforge/internal/plan"
)

// ErrNotFound is returned when no record exists for a run id.
var ErrNotFound = errors.New("runstore: record not found")

// Record is the durable summary of one run.
type Record struct {
	RunID        string                 `json:"runId"`
	Goal         string                 `json:"goal"`
	IsAtomic     bool                   `json:"isAtomic"`
	Success      bool                   `json:"success"`
	TaskStatuses map[string]plan.Status `json:"taskStatuses,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	StartedAt    time.Time              `json:"startedAt"`
	CompletedAt  time.Time              `json:"completedAt"`
}

// Store is the run record backend.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, runID string) (Record, error)
	List(ctx context.Context) ([]Record, error)
}

// NewFromEnv selects a backend from the environment: APPFORGE_PG_DSN
// wins, then APPFORGE_RUNS_FILE, otherwise no store (nil, nil).
func NewFromEnv() (Store, error) {
	if dsn := strings.TrimSpace(os.Getenv("APPFORGE_PG_DSN")); dsn != "" {
		return NewPostgresStore(dsn)
	}
	if path := strings.TrimSpace(os.Getenv("APPFORGE_RUNS_FILE")); path != "" {
		return NewFileStore(path), nil
	}
	return nil, nil
}
