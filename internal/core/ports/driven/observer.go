package driven

import (
	"context"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// RunObserver receives reconciliation progress for metrics.
// Implementations must be safe for concurrent use.
type RunObserver interface {
	// FileDone is called once per processed file.
	FileDone(outcome domain.FileOutcome)

	// RunDone is called after the flush of every run.
	RunDone(report *domain.RunReport, err error)
}

// ReviewSink stores the list of files flagged for manual review.
type ReviewSink interface {
	// WriteReview replaces the stored review list.
	WriteReview(ctx context.Context, entries []domain.ReviewEntry) error
}
