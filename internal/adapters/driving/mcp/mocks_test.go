package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// mockItemQuery is a mock implementation of driving.ItemQuery.
type mockItemQuery struct {
	items   []domain.Item
	files   []driving.FileChanges
	buckets []driving.BucketChanges
	err     error

	gotSince   time.Time
	gotSources []string
	gotBucket  int
}

func (m *mockItemQuery) GetByFile(_ context.Context, _, _ string) ([]domain.Item, error) {
	return m.items, m.err
}

func (m *mockItemQuery) GetByDayBucket(_ context.Context, day int) ([]domain.Item, error) {
	m.gotBucket = day
	return m.items, m.err
}

func (m *mockItemQuery) GetByWeekBucket(_ context.Context, week int) ([]domain.Item, error) {
	m.gotBucket = week
	return m.items, m.err
}

func (m *mockItemQuery) GetFilesChangedSince(
	_ context.Context,
	since time.Time,
	sourceIDs ...string,
) ([]driving.FileChanges, error) {
	m.gotSince = since
	m.gotSources = sourceIDs
	return m.files, m.err
}

func (m *mockItemQuery) GetDaysChangedSince(_ context.Context, since time.Time) ([]driving.BucketChanges, error) {
	m.gotSince = since
	return m.buckets, m.err
}

func (m *mockItemQuery) GetWeeksChangedSince(_ context.Context, since time.Time) ([]driving.BucketChanges, error) {
	m.gotSince = since
	return m.buckets, m.err
}

func (m *mockItemQuery) RebuildIndex(_ context.Context) (int, error) {
	return len(m.items), m.err
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	records []domain.SourceRecord
	err     error
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	for i := range m.sources {
		if m.sources[i].Identifier == id {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) Records(_ context.Context) ([]domain.SourceRecord, error) {
	return m.records, m.err
}

// mockTracker is a mock implementation of driving.Tracker.
type mockTracker struct {
	status *driving.SyncStatus
	err    error
}

func (m *mockTracker) Sync(_ context.Context, _ domain.SyncOptions) (*domain.RunReport, error) {
	return &domain.RunReport{}, m.err
}

func (m *mockTracker) Status(_ context.Context, _ string) (*driving.SyncStatus, error) {
	return m.status, m.err
}

var testTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testItem(source, file, category, markdown string) domain.Item {
	return domain.Item{
		SourceID:        source,
		File:            file,
		Fingerprint:     "fp-" + markdown,
		Category:        category,
		Markdown:        markdown,
		FirstObservedAt: testTime,
		DayBucket:       20240310,
		WeekBucket:      202410,
	}
}
