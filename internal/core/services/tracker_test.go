package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	mdnorm "github.com/custodia-labs/awesometrack/internal/normalisers/markdown"
)

const listDoc = `# Awesome

## Tools

- [Foo](https://foo.dev) - Foo.
- [Bar](https://bar.dev) - Bar.
`

// mockContent implements driven.ContentSource.
type mockContent struct {
	mu         sync.Mutex
	files      map[string]string
	fetchErr   map[string]error
	fetches    int
	metaCalls  int
	metaBranch string
}

func (m *mockContent) FetchFileContent(_ context.Context, sourceID, path, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	key := sourceID + "/" + path
	if err := m.fetchErr[key]; err != nil {
		return nil, err
	}
	content, ok := m.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return []byte(content), nil
}

func (m *mockContent) FetchRepositoryMetadata(_ context.Context, sourceID string, overrides domain.RepoMetaOverride) (*domain.RepoMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaCalls++
	branch := m.metaBranch
	if overrides.DefaultBranch != "" {
		branch = overrides.DefaultBranch
	}
	return &domain.RepoMeta{FullName: sourceID, DefaultBranch: branch, Stars: 42}, nil
}

func (m *mockContent) set(key, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = content
}

// mockVCS implements driven.VersionControl over the same file map.
type mockVCS struct {
	mu        sync.Mutex
	content   *mockContent
	committed time.Time
	clones    []string
	pulls     int
	shortBy   int
}

func (m *mockVCS) CloneOrPull(_ context.Context, remoteURL, _, _ string, pull bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clones = append(m.clones, remoteURL)
	if pull {
		m.pulls++
	}
	return nil
}

func (m *mockVCS) Blame(_ context.Context, workTree, filePath string) (domain.Blame, error) {
	data, err := m.ReadFile(workTree, filePath)
	if err != nil {
		return nil, err
	}
	blame := make(domain.Blame)
	lines := strings.Count(string(data), "\n") - m.shortBy
	for i := 1; i <= lines; i++ {
		blame[i] = domain.BlameLine{CommitHash: "abc", CommittedAt: m.committed}
	}
	return blame, nil
}

func (m *mockVCS) ReadFile(workTree, filePath string) ([]byte, error) {
	// workTree is <reposDir>/<owner>/<repo>
	parts := strings.Split(workTree, "/")
	source := strings.Join(parts[len(parts)-2:], "/")
	m.content.mu.Lock()
	defer m.content.mu.Unlock()
	content, ok := m.content.files[source+"/"+filePath]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return []byte(content), nil
}

// mockReview implements driven.ReviewSink.
type mockReview struct {
	mu      sync.Mutex
	entries []domain.ReviewEntry
	writes  int
}

func (m *mockReview) WriteReview(_ context.Context, entries []domain.ReviewEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.writes++
	return nil
}

// mockObserver implements driven.RunObserver.
type mockObserver struct {
	mu    sync.Mutex
	files []domain.FileOutcome
	runs  int
}

func (m *mockObserver) FileDone(outcome domain.FileOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, outcome)
}

func (m *mockObserver) RunDone(_ *domain.RunReport, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

type trackerFixture struct {
	tracker  *Tracker
	content  *mockContent
	vcs      *mockVCS
	items    *memory.ItemStore
	records  *memory.SourceStore
	runs     *memory.SchedulerStore
	review   *mockReview
	observer *mockObserver
	now      time.Time
}

func (f *trackerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func listSource(id string, files ...string) domain.Source {
	s := domain.Source{Identifier: id}
	for _, p := range files {
		s.Files = append(s.Files, domain.TrackedFile{
			Path:    p,
			Options: domain.ParseOptions{Format: domain.FormatList, ParseCategory: true},
		})
	}
	return s
}

func newTrackerFixture(t *testing.T, sources ...domain.Source) *trackerFixture {
	t.Helper()
	content := &mockContent{files: map[string]string{}, fetchErr: map[string]error{}, metaBranch: "main"}
	for _, s := range sources {
		for _, f := range s.Files {
			content.files[s.Identifier+"/"+f.Path] = listDoc
		}
	}

	f := &trackerFixture{
		content:  content,
		vcs:      &mockVCS{content: content, committed: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		items:    memory.NewItemStore(),
		records:  memory.NewSourceStore(),
		runs:     memory.NewSchedulerStore(),
		review:   &mockReview{},
		observer: &mockObserver{},
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.tracker = NewTracker(domain.TrackerConfig{ReposDir: "/tmp/repos", Concurrency: 2}, TrackerDeps{
		Sources:    NewSourceService(sources, f.records),
		Content:    content,
		VCS:        f.vcs,
		Normaliser: mdnorm.New(mdnorm.WithMock(true)),
		Items:      f.items,
		Records:    f.records,
		Runs:       f.runs,
		Review:     f.review,
		Observer:   f.observer,
	})
	f.tracker.now = func() time.Time { return f.now }
	return f
}

func outcomeFor(t *testing.T, report *domain.RunReport, file string) domain.FileOutcome {
	t.Helper()
	for _, o := range report.Files {
		if o.File == file {
			return o
		}
	}
	t.Fatalf("no outcome for %s", file)
	return domain.FileOutcome{}
}

func TestTracker_Lifecycle(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md", "docs/more.md"))
	ctx := context.Background()

	// first run seeds from blame
	report, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Len(t, report.Files, 2)
	for _, o := range report.Files {
		assert.Equal(t, domain.StatePersisted, o.State)
		assert.True(t, o.Initial)
		assert.Equal(t, 2, o.NewCount)
	}
	assert.Len(t, f.vcs.clones, 1, "one clone per source")
	assert.Equal(t, "https://github.com/acme/list.git", f.vcs.clones[0])
	assert.Equal(t, 1, f.content.metaCalls)
	assert.Zero(t, f.content.fetches)

	items, err := f.tracker.Changes().GetByFile(ctx, "acme/list", "README.md")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, f.vcs.committed, items[0].FirstObservedAt)

	// files with few items are flagged for review
	assert.Len(t, report.Review, 2)
	assert.Equal(t, 1, f.review.writes)
	assert.Equal(t, 2, f.review.entries[0].Count)

	record, err := f.records.Get(ctx, "acme/list")
	require.NoError(t, err)
	assert.Equal(t, 42, record.Meta.Stars)
	assert.Equal(t, f.vcs.committed, record.CreatedAt)

	history, err := f.runs.GetTaskHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.ID, history[0].RunID)
	assert.Equal(t, domain.TriggerManual, history[0].TaskID)
	assert.Equal(t, 4, history[0].NewItems)
	assert.True(t, history[0].Success)

	// inside the refresh window nothing is fetched
	f.advance(time.Hour)
	report, err = f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSkipped, outcomeFor(t, report, "README.md").State)
	assert.Zero(t, f.content.fetches)

	// unchanged content only touches the record
	f.advance(12 * time.Hour)
	report, err = f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateUpToDate, outcomeFor(t, report, "README.md").State)
	file, err := f.items.GetFile(ctx, "acme/list", "README.md")
	require.NoError(t, err)
	assert.Equal(t, f.now, file.CheckedAt)
	assert.Empty(t, report.Review)

	// changed content is reconciled
	f.advance(13 * time.Hour)
	f.content.set("acme/list/README.md", listDoc+"- [Baz](https://baz.dev) - Baz.\n")
	report, err = f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	readme := outcomeFor(t, report, "README.md")
	assert.Equal(t, domain.StatePersisted, readme.State)
	assert.False(t, readme.Initial)
	assert.Equal(t, 1, readme.NewCount)
	assert.Equal(t, 3, readme.TotalCount)
	assert.Equal(t, domain.StateUpToDate, outcomeFor(t, report, "docs/more.md").State)

	changed, err := f.tracker.Changes().GetFilesChangedSince(ctx, f.now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "README.md", changed[0].File)
	assert.Len(t, changed[0].Items, 1)

	assert.Equal(t, 4, f.observer.runs)
	assert.Len(t, f.observer.files, 8)
}

func TestTracker_ForceIgnoresWindowAndHash(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md"))
	ctx := context.Background()

	_, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)

	f.advance(time.Minute)
	report, err := f.tracker.Sync(ctx, domain.SyncOptions{Force: true})
	require.NoError(t, err)
	o := outcomeFor(t, report, "README.md")
	assert.Equal(t, domain.StatePersisted, o.State)
	assert.Zero(t, o.NewCount)
	assert.Equal(t, 1, f.content.fetches)
}

func TestTracker_FileErrorsAreIsolated(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md", "docs/more.md"), listSource("acme/other", "README.md"))
	ctx := context.Background()

	_, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	f.content.fetchErr["acme/list/README.md"] = errors.New("boom")
	f.content.set("acme/other/README.md", listDoc+"- [Baz](https://baz.dev) - Baz.\n")

	report, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "acme/list", report.Failed()[0].SourceID)
	assert.Equal(t, "README.md", report.Failed()[0].File)
	assert.Equal(t, domain.StateFailed, report.Failed()[0].State)
	assert.Equal(t, 1, report.NewItems())

	history, err := f.runs.GetTaskHistory(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, "1 files failed", history[0].Error)
}

func TestTracker_InitErrorAbortsAfterFlush(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md"))
	f.vcs.shortBy = 2 // blame stops before the last items

	report, err := f.tracker.Sync(context.Background(), domain.SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingBlame)
	require.NotNil(t, report)
	assert.Equal(t, domain.StateFailed, outcomeFor(t, report, "README.md").State)

	// the deferred flush still ran
	assert.Equal(t, 1, f.review.writes)
	history, err := f.runs.GetTaskHistory(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

// mismatchNormaliser fails every document as if its format were wrong.
type mismatchNormaliser struct{}

func (mismatchNormaliser) Normalise(context.Context, []byte, driven.NormaliseRequest) ([]domain.ParsedItem, error) {
	return nil, domain.ErrFormatMismatch
}

func TestTracker_FormatMismatchAfterInitFailsOnlyTheFile(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md", "docs/more.md"))
	ctx := context.Background()

	_, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)

	f.tracker.normaliser = mismatchNormaliser{}
	f.advance(time.Minute)
	report, err := f.tracker.Sync(ctx, domain.SyncOptions{Force: true})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 2)
	for _, o := range report.Failed() {
		assert.False(t, o.Initial)
		assert.ErrorIs(t, o.Err, domain.ErrFormatMismatch)
	}

	// stored items survive the failed reconciliation
	items, err := f.tracker.Changes().GetByFile(ctx, "acme/list", "README.md")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestTracker_RebuildNeedsSourceSelection(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md"))
	ctx := context.Background()

	_, err := f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)
	f.advance(time.Minute)

	report, err := f.tracker.Sync(ctx, domain.SyncOptions{Rebuild: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSkipped, outcomeFor(t, report, "README.md").State)

	report, err = f.tracker.Sync(ctx, domain.SyncOptions{Rebuild: true, SourceIDs: []string{"acme/list"}, FetchRepoUpdates: true})
	require.NoError(t, err)
	o := outcomeFor(t, report, "README.md")
	assert.True(t, o.Initial)
	assert.Equal(t, domain.StatePersisted, o.State)
	assert.Equal(t, 1, f.vcs.pulls)
}

func TestTracker_Options(t *testing.T) {
	t.Run("limit caps processed files", func(t *testing.T) {
		f := newTrackerFixture(t, listSource("acme/list", "a.md", "b.md", "c.md"))
		report, err := f.tracker.Sync(context.Background(), domain.SyncOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, report.Files, 2)
	})

	t.Run("unknown source", func(t *testing.T) {
		f := newTrackerFixture(t, listSource("acme/list", "README.md"))
		_, err := f.tracker.Sync(context.Background(), domain.SyncOptions{SourceIDs: []string{"acme/nope"}})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid source", func(t *testing.T) {
		f := newTrackerFixture(t, listSource("acme", "README.md"))
		_, err := f.tracker.Sync(context.Background(), domain.SyncOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("concurrent runs are rejected", func(t *testing.T) {
		f := newTrackerFixture(t, listSource("acme/list", "README.md"))
		f.tracker.running.Store(true)
		report, err := f.tracker.Sync(context.Background(), domain.SyncOptions{})
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
		assert.Nil(t, report)
	})
}

func TestTracker_Status(t *testing.T) {
	f := newTrackerFixture(t, listSource("acme/list", "README.md"))
	ctx := context.Background()

	status, err := f.tracker.Status(ctx, "acme/list")
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Zero(t, status.Files)
	assert.Nil(t, status.Record)

	_, err = f.tracker.Sync(ctx, domain.SyncOptions{})
	require.NoError(t, err)

	status, err = f.tracker.Status(ctx, "acme/list")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Files)
	assert.Equal(t, 2, status.Items)
	require.NotNil(t, status.Record)
	assert.Equal(t, "main", status.Record.Meta.DefaultBranch)

	_, err = f.tracker.Status(ctx, "acme/nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

var _ driven.VersionControl = (*mockVCS)(nil)
