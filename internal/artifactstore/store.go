// Package artifactstore persists run artifacts keyed by (runID,
// name), with memory, disk and S3 backends plus a caching wrapper.
package artifactstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store defines operations for persisting run artifacts.
type Store interface {
	Put(ctx context.Context, runID, name string, content []byte) error
	Get(ctx context.Context, runID, name string) ([]byte, error)
	GetURL(ctx context.Context, runID, name string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}
