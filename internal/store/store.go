// Package store persists harvest run history.
package store

import (
	"context"
	"time"

	"github.com/paddock-labs/equinet/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Source string `json:"source,omitempty"` // only runs that touched this source
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RunSummary is the list-view projection of a stored run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Sources   int           `json:"sources"`
	Records   int           `json:"records"`
	Failures  int           `json:"failures"`
}

// Store defines the persistence interface for harvest history.
type Store interface {
	RecordRun(ctx context.Context, report *model.Report) error
	GetRun(ctx context.Context, runID string) (*model.Report, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error)

	Migrate(ctx context.Context) error
	Close() error
}
