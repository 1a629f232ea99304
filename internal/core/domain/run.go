package domain

import (
	"fmt"
	"time"
)

// FileState is the position of a tracked file in the reconciliation
// state machine.
type FileState int

const (
	StateNeedsInit FileState = iota
	StateFetching
	StateUpToDate
	StateParsing
	StateReconciling
	StatePersisted
	StateSkipped
	StateFailed
)

func (s FileState) String() string {
	switch s {
	case StateNeedsInit:
		return "needs-init"
	case StateFetching:
		return "fetching"
	case StateUpToDate:
		return "up-to-date"
	case StateParsing:
		return "parsing"
	case StateReconciling:
		return "reconciling"
	case StatePersisted:
		return "persisted"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SyncOptions tunes one reconciliation run.
type SyncOptions struct {
	// SourceIDs restricts the run to these sources. Empty means all.
	SourceIDs []string

	// Force ignores the refresh window and the content hash.
	Force bool

	// Rebuild re-seeds selected sources from version control history.
	// It only applies when SourceIDs is set.
	Rebuild bool

	// FetchRepoUpdates pulls an existing clone before seeding.
	FetchRepoUpdates bool

	// Limit caps how many files are processed. Zero means no cap.
	Limit int

	// Concurrency overrides the configured file fan-out when positive.
	Concurrency int

	// Trigger names what started the run in run history ("manual" when empty).
	Trigger string
}

// TrackerConfig holds the driver settings resolved from configuration.
type TrackerConfig struct {
	// DataDir holds the database and the manual review file.
	DataDir string

	// ReposDir holds working tree clones used to seed files.
	ReposDir string

	// RefreshWindow is the minimum time between fetches of one file.
	RefreshWindow time.Duration

	// FetchTimeout bounds a single content fetch.
	FetchTimeout time.Duration

	// Concurrency is the number of files processed in parallel.
	Concurrency int

	// AnomalyThreshold flags files with fewer items for manual review.
	AnomalyThreshold int
}

// DefaultTrackerConfig returns the driver defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		DataDir:          "db",
		ReposDir:         "cache/repos",
		RefreshWindow:    12 * time.Hour,
		FetchTimeout:     30 * time.Second,
		Concurrency:      1,
		AnomalyThreshold: 10,
	}
}

// TriggerManual is the run history trigger of CLI runs.
const TriggerManual = "manual"

// FileOutcome is the result of processing one tracked file.
type FileOutcome struct {
	SourceID   string
	File       string
	State      FileState
	Initial    bool
	NewCount   int
	TotalCount int
	Err        error
}

// RunReport summarises a reconciliation run.
type RunReport struct {
	// ID is the run identifier.
	ID string

	StartedAt time.Time
	EndedAt   time.Time

	// Files holds one outcome per processed file, in processing order.
	Files []FileOutcome

	// Review lists files flagged for manual review.
	Review []ReviewEntry
}

// NewItems sums new items across files.
func (r *RunReport) NewItems() int {
	n := 0
	for _, f := range r.Files {
		n += f.NewCount
	}
	return n
}

// TotalItems sums stored items across reconciled files.
func (r *RunReport) TotalItems() int {
	n := 0
	for _, f := range r.Files {
		n += f.TotalCount
	}
	return n
}

// Changed counts files that were seeded or persisted.
func (r *RunReport) Changed() int {
	n := 0
	for _, f := range r.Files {
		if f.State == StatePersisted {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in error.
func (r *RunReport) Failed() []FileOutcome {
	var out []FileOutcome
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}
