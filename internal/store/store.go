// Package store persists compliance runs and their reports. Two backends
// implement the same interface: SQLite for single-user CLI use and Postgres
// for the served API.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	ListingURL string          `json:"listing_url,omitempty"`
	Verdict    model.Verdict   `json:"verdict,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the compliance pipeline.
type Store interface {
	CreateRun(ctx context.Context, listing model.ListingInput) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	// FailRun records the fatal error and moves the run to failed.
	FailRun(ctx context.Context, runID string, errMsg string) error
	// SaveReport attaches the frozen report and moves the run to complete.
	SaveReport(ctx context.Context, runID string, report *model.ComplianceReport) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New opens the configured backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Driver)
	}
}
