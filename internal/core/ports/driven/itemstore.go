package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

// ItemStore persists items, their derived index and file records.
//
// A file's records are only ever written by one reconciliation at a time,
// and index keys are namespaced by source and file, so implementations
// need no cross-file coordination.
type ItemStore interface {
	// FileItems returns the stored items of a file keyed by fingerprint.
	FileItems(ctx context.Context, sourceID, file string) (map[string]domain.Item, error)

	// ReplaceFile atomically replaces a file's items and index entries and
	// saves its record. Either everything is written or nothing is.
	ReplaceFile(ctx context.Context, record domain.FileRecord, items []domain.Item) error

	// GetFile returns a file record.
	// Returns domain.ErrNotFound if the file has never been stored.
	GetFile(ctx context.Context, sourceID, file string) (*domain.FileRecord, error)

	// ListFiles returns file records, all sources when sourceID is empty.
	ListFiles(ctx context.Context, sourceID string) ([]domain.FileRecord, error)

	// TouchFile updates a file record's CheckedAt.
	TouchFile(ctx context.Context, sourceID, file string, checkedAt time.Time) error

	// IndexEntries returns index entries matching filter ordered by
	// timestamp descending.
	IndexEntries(ctx context.Context, filter domain.IndexFilter) ([]domain.IndexEntry, error)

	// Items returns the items for keys in the same order. A key without
	// a stored item yields domain.ErrCorruptStore.
	Items(ctx context.Context, keys []domain.ItemKey) ([]domain.Item, error)

	// RebuildIndex regenerates every index entry from the stored items.
	RebuildIndex(ctx context.Context) (int, error)
}

// SourceStore persists repository records.
type SourceStore interface {
	// Save creates or updates a source record.
	Save(ctx context.Context, record domain.SourceRecord) error

	// Get returns a source record.
	// Returns domain.ErrNotFound if the source has never been stored.
	Get(ctx context.Context, id string) (*domain.SourceRecord, error)

	// List returns all source records.
	List(ctx context.Context) ([]domain.SourceRecord, error)
}

// StarCache caches star counts between runs.
type StarCache interface {
	// GetStars returns a cached count that has not expired at now.
	GetStars(ctx context.Context, repo string, now time.Time) (int, bool, error)

	// PutStars caches a count.
	PutStars(ctx context.Context, count domain.StarCount) error
}
