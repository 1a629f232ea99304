package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

var testTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// mockTracker implements driving.Tracker.
type mockTracker struct {
	mu       sync.Mutex
	calls    []domain.SyncOptions
	report   *domain.RunReport
	err      error
	status   map[string]*driving.SyncStatus
	stateErr error
}

func (m *mockTracker) Sync(_ context.Context, opts domain.SyncOptions) (*domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, opts)
	report := m.report
	if report == nil {
		report = &domain.RunReport{StartedAt: testTime, EndedAt: testTime.Add(1500 * time.Millisecond)}
	}
	return report, m.err
}

func (m *mockTracker) Status(_ context.Context, id string) (*driving.SyncStatus, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	if st, ok := m.status[id]; ok {
		return st, nil
	}
	return &driving.SyncStatus{SourceID: id}, nil
}

// mockItems implements driving.ItemQuery and records its arguments.
type mockItems struct {
	items   []domain.Item
	files   []driving.FileChanges
	buckets []driving.BucketChanges
	err     error

	gotSource  string
	gotFile    string
	gotBucket  int
	gotSince   time.Time
	gotSources []string
	called     string
	rebuilt    int
}

func (m *mockItems) GetByFile(_ context.Context, sourceID, file string) ([]domain.Item, error) {
	m.called, m.gotSource, m.gotFile = "file", sourceID, file
	return m.items, m.err
}

func (m *mockItems) GetByDayBucket(_ context.Context, day int) ([]domain.Item, error) {
	m.called, m.gotBucket = "day", day
	return m.items, m.err
}

func (m *mockItems) GetByWeekBucket(_ context.Context, week int) ([]domain.Item, error) {
	m.called, m.gotBucket = "week", week
	return m.items, m.err
}

func (m *mockItems) GetFilesChangedSince(_ context.Context, since time.Time, ids ...string) ([]driving.FileChanges, error) {
	m.called, m.gotSince, m.gotSources = "files-since", since, ids
	return m.files, m.err
}

func (m *mockItems) GetDaysChangedSince(_ context.Context, since time.Time) ([]driving.BucketChanges, error) {
	m.called, m.gotSince = "days-since", since
	return m.buckets, m.err
}

func (m *mockItems) GetWeeksChangedSince(_ context.Context, since time.Time) ([]driving.BucketChanges, error) {
	m.called, m.gotSince = "weeks-since", since
	return m.buckets, m.err
}

func (m *mockItems) RebuildIndex(_ context.Context) (int, error) {
	m.called = "rebuild"
	return m.rebuilt, m.err
}

// mockSources implements driving.SourceService.
type mockSources struct {
	sources []domain.Source
	err     error
}

func (m *mockSources) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSources) Get(_ context.Context, id string) (*domain.Source, error) {
	for i := range m.sources {
		if m.sources[i].Identifier == id {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSources) Records(_ context.Context) ([]domain.SourceRecord, error) {
	return nil, m.err
}

// mockRuns implements RunHistory.
type mockRuns struct {
	results  []domain.TaskResult
	err      error
	gotTask  string
	gotLimit int
}

func (m *mockRuns) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.gotTask, m.gotLimit = taskID, limit
	return m.results, m.err
}

// mockScheduler blocks in Start until its context ends or Stop is called.
type mockScheduler struct {
	started chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{started: make(chan struct{}, 1), stopped: make(chan struct{})}
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return nil
	}
}

func (m *mockScheduler) Stop() error {
	m.once.Do(func() { close(m.stopped) })
	return nil
}

// resetFlags restores flag variables between executions of the shared
// root command.
func resetFlags() {
	verbose, logJSON, mockBadges = false, false, false
	syncForce, syncRebuild, syncFetchRepoUpdates = false, false, false
	syncLimit, syncConcurrency = 0, 0
	itemsJSON, itemsSince, itemsGroupBy = false, "7d", "file"
	sourcesJSON = false
	runsLimit, runsTask, runsJSON = 10, "", false
	watchRunOnStart, watchReload = false, false
	tuiWatch = false
	_ = mcpServeCmd.Flags().Set("port", "0")

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		if f := c.Flags().Lookup("help"); f != nil {
			_ = f.Value.Set("false")
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// execute runs the root command against injected services and returns
// everything written to stdout and stderr.
func execute(t *testing.T, svc *Services, args ...string) (string, error) {
	t.Helper()
	SetServices(svc)
	t.Cleanup(func() {
		SetServices(nil)
		resetFlags()
		rootCmd.SetArgs(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
