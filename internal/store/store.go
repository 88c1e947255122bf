// Package store persists run records, per-output statistics and zonal tables
// behind a driver-agnostic interface with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunRecord is the persisted view of one pipeline run.
type RunRecord struct {
	ID         string     `json:"id"`
	Outputs    []string   `json:"outputs"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// ErrNotFound is returned when a run, table or statistics row does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for run results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, id string, outputs []string) (*RunRecord, error)
	FinishRun(ctx context.Context, runID string, status RunStatus, runErr string) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	// Per-output whole-grid statistics
	PutStatistics(ctx context.Context, runID, output string, stats raster.Statistics) error
	GetStatistics(ctx context.Context, runID, output string) (*raster.Statistics, error)

	// Zonal tables (flow, supply, use, demand)
	PutTable(ctx context.Context, runID, name string, rows []zonal.SummaryRow) error
	GetTable(ctx context.Context, runID, name string) ([]zonal.SummaryRow, error)
	ListTables(ctx context.Context, runID string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
