package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// ItemQuery reads tracked items through the timestamp index.
// Results are ordered newest first.
type ItemQuery interface {
	// GetByFile returns every item of one file.
	GetByFile(ctx context.Context, sourceID, file string) ([]domain.Item, error)

	// GetByDayBucket returns the items first observed on a day.
	GetByDayBucket(ctx context.Context, day int) ([]domain.Item, error)

	// GetByWeekBucket returns the items first observed in a week.
	GetByWeekBucket(ctx context.Context, week int) ([]domain.Item, error)

	// GetFilesChangedSince groups items newer than since by file.
	GetFilesChangedSince(ctx context.Context, since time.Time, sourceIDs ...string) ([]FileChanges, error)

	// GetDaysChangedSince groups items newer than since by day bucket.
	GetDaysChangedSince(ctx context.Context, since time.Time) ([]BucketChanges, error)

	// GetWeeksChangedSince groups items newer than since by week bucket.
	GetWeeksChangedSince(ctx context.Context, since time.Time) ([]BucketChanges, error)

	// RebuildIndex regenerates the index from item bodies.
	RebuildIndex(ctx context.Context) (int, error)
}

// FileChanges groups the new items of one file.
type FileChanges struct {
	SourceID string
	File     string

	// Latest is the newest FirstObservedAt in Items.
	Latest time.Time
	Items  []domain.Item
}

// BucketChanges groups new items of one day or week bucket.
type BucketChanges struct {
	// Bucket is the day or week number.
	Bucket int

	// Latest is the newest FirstObservedAt in Items.
	Latest time.Time
	Items  []domain.Item
}
