package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/calendar"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// Ensure ChangeTracker implements the interface.
var _ driving.ItemQuery = (*ChangeTracker)(nil)

// ChangeTracker merges parsed items into the store and answers
// time-bucketed reads through the index.
type ChangeTracker struct {
	store driven.ItemStore
}

// NewChangeTracker creates a change tracker over store.
func NewChangeTracker(store driven.ItemStore) *ChangeTracker {
	return &ChangeTracker{store: store}
}

// Seed replaces a file's items using version control history: each item is
// first observed when the commit that last touched its line was made.
// record carries the source, path, content hash and check time; its created
// and updated times are derived here.
func (c *ChangeTracker) Seed(
	ctx context.Context,
	record domain.FileRecord,
	parsed []domain.ParsedItem,
	blame domain.Blame,
) (domain.ReconcileResult, error) {
	items := make([]domain.Item, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, p := range parsed {
		if seen[p.Fingerprint] {
			continue
		}
		seen[p.Fingerprint] = true

		line, ok := blame[p.Line]
		if !ok {
			return domain.ReconcileResult{}, fmt.Errorf("%w: %s:%s line %d",
				domain.ErrMissingBlame, record.SourceID, record.Path, p.Line)
		}
		items = append(items, newItem(record, p, line.CommittedAt))
	}

	record.CreatedAt = record.CheckedAt
	for _, line := range blame {
		if line.CommittedAt.Before(record.CreatedAt) || record.CreatedAt.IsZero() {
			record.CreatedAt = line.CommittedAt
		}
	}
	record.UpdatedAt = latest(items)

	if err := c.store.ReplaceFile(ctx, record, items); err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("storing %s:%s: %w", record.SourceID, record.Path, err)
	}
	return domain.ReconcileResult{
		NewCount:        len(items),
		TotalCount:      len(items),
		LatestTimestamp: record.UpdatedAt,
	}, nil
}

// Reconcile merges a fresh parse of a file with its stored items. Matching
// fingerprints keep their first observed time, unseen ones are observed at
// now, and stored items missing from the parse are dropped.
func (c *ChangeTracker) Reconcile(
	ctx context.Context,
	record domain.FileRecord,
	parsed []domain.ParsedItem,
	now time.Time,
) (domain.ReconcileResult, error) {
	stored, err := c.store.FileItems(ctx, record.SourceID, record.Path)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("loading %s:%s: %w", record.SourceID, record.Path, err)
	}

	var result domain.ReconcileResult
	items := make([]domain.Item, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, p := range parsed {
		if seen[p.Fingerprint] {
			continue
		}
		seen[p.Fingerprint] = true

		observed := now
		if prev, ok := stored[p.Fingerprint]; ok {
			observed = prev.FirstObservedAt
		} else {
			result.NewCount++
		}
		item := newItem(record, p, observed)
		item.LastCheckedAt = now
		items = append(items, item)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
		prev, err := c.store.GetFile(ctx, record.SourceID, record.Path)
		switch {
		case err == nil:
			record.CreatedAt = prev.CreatedAt
		case !errors.Is(err, domain.ErrNotFound):
			return domain.ReconcileResult{}, err
		}
	}
	record.UpdatedAt = latest(items)

	if err := c.store.ReplaceFile(ctx, record, items); err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("storing %s:%s: %w", record.SourceID, record.Path, err)
	}
	result.TotalCount = len(items)
	result.LatestTimestamp = record.UpdatedAt
	return result, nil
}

// GetByFile returns every item of one file.
func (c *ChangeTracker) GetByFile(ctx context.Context, sourceID, file string) ([]domain.Item, error) {
	if sourceID == "" || file == "" {
		return nil, domain.ErrInvalidInput
	}
	return c.load(ctx, domain.IndexFilter{SourceIDs: []string{sourceID}, File: file})
}

// GetByDayBucket returns the items first observed on a day.
func (c *ChangeTracker) GetByDayBucket(ctx context.Context, day int) ([]domain.Item, error) {
	if _, err := calendar.ParseDayInfo(day); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return c.load(ctx, domain.IndexFilter{Day: day})
}

// GetByWeekBucket returns the items first observed in a week.
func (c *ChangeTracker) GetByWeekBucket(ctx context.Context, week int) ([]domain.Item, error) {
	if _, err := calendar.ParseWeekInfo(week); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return c.load(ctx, domain.IndexFilter{Week: week})
}

// GetFilesChangedSince groups items newer than since by file, the most
// recently changed file first.
func (c *ChangeTracker) GetFilesChangedSince(
	ctx context.Context,
	since time.Time,
	sourceIDs ...string,
) ([]driving.FileChanges, error) {
	items, err := c.load(ctx, domain.IndexFilter{SourceIDs: sourceIDs, Since: since})
	if err != nil {
		return nil, err
	}

	var groups []driving.FileChanges
	pos := make(map[[2]string]int)
	for _, item := range items {
		k := [2]string{item.SourceID, item.File}
		i, ok := pos[k]
		if !ok {
			i = len(groups)
			pos[k] = i
			groups = append(groups, driving.FileChanges{
				SourceID: item.SourceID,
				File:     item.File,
				Latest:   item.FirstObservedAt,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups, nil
}

// GetDaysChangedSince groups items newer than since by day bucket.
func (c *ChangeTracker) GetDaysChangedSince(ctx context.Context, since time.Time) ([]driving.BucketChanges, error) {
	return c.buckets(ctx, since, func(i domain.Item) int { return i.DayBucket })
}

// GetWeeksChangedSince groups items newer than since by week bucket.
func (c *ChangeTracker) GetWeeksChangedSince(ctx context.Context, since time.Time) ([]driving.BucketChanges, error) {
	return c.buckets(ctx, since, func(i domain.Item) int { return i.WeekBucket })
}

// RebuildIndex regenerates the index from item bodies.
func (c *ChangeTracker) RebuildIndex(ctx context.Context) (int, error) {
	return c.store.RebuildIndex(ctx)
}

func (c *ChangeTracker) buckets(
	ctx context.Context,
	since time.Time,
	bucket func(domain.Item) int,
) ([]driving.BucketChanges, error) {
	items, err := c.load(ctx, domain.IndexFilter{Since: since})
	if err != nil {
		return nil, err
	}

	var groups []driving.BucketChanges
	pos := make(map[int]int)
	for _, item := range items {
		b := bucket(item)
		i, ok := pos[b]
		if !ok {
			i = len(groups)
			pos[b] = i
			groups = append(groups, driving.BucketChanges{Bucket: b, Latest: item.FirstObservedAt})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups, nil
}

// load reads the index and then the matching item bodies.
func (c *ChangeTracker) load(ctx context.Context, filter domain.IndexFilter) ([]domain.Item, error) {
	entries, err := c.store.IndexEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	keys := make([]domain.ItemKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return c.store.Items(ctx, keys)
}

func newItem(record domain.FileRecord, p domain.ParsedItem, observed time.Time) domain.Item {
	observed = observed.UTC()
	return domain.Item{
		SourceID:        record.SourceID,
		File:            record.Path,
		Fingerprint:     p.Fingerprint,
		Category:        p.Category,
		CategoryHTML:    p.CategoryHTML,
		Markdown:        p.Markdown,
		HTML:            p.HTML,
		FirstObservedAt: observed,
		LastCheckedAt:   record.CheckedAt,
		DayBucket:       calendar.DayNumber(observed),
		WeekBucket:      calendar.WeekNumber(observed),
	}
}

func latest(items []domain.Item) time.Time {
	var t time.Time
	for _, item := range items {
		if item.FirstObservedAt.After(t) {
			t = item.FirstObservedAt
		}
	}
	return t
}
