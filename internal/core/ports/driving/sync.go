package driving

import (
	"context"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// Tracker coordinates reconciliation of tracked files against the store.
type Tracker interface {
	// Sync runs one reconciliation pass. The returned report is non-nil
	// whenever the run started, including when an error aborted it.
	Sync(ctx context.Context, opts domain.SyncOptions) (*domain.RunReport, error)

	// Status returns the last known state of a source.
	Status(ctx context.Context, sourceID string) (*SyncStatus, error)
}

// SyncStatus represents the current state of a source.
type SyncStatus struct {
	// SourceID identifies the source.
	SourceID string

	// Running indicates if a run is currently in progress.
	Running bool

	// Files is the number of tracked files with a stored record.
	Files int

	// Items is the number of stored items across those files.
	Items int

	// Record is the aggregated source record, nil before the first run.
	Record *domain.SourceRecord
}
