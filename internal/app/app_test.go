package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	dir := t.TempDir()
	tracker := domain.DefaultTrackerConfig()
	tracker.DataDir = filepath.Join(dir, "db")
	tracker.ReposDir = filepath.Join(dir, "repos")
	return &domain.Config{
		Tracker:     tracker,
		Scheduler:   domain.DefaultSchedulerConfig(),
		MockBadges:  true,
		MetricsFile: filepath.Join(dir, "metrics.prom"),
	}
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)

	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Same(t, cfg, a.Config)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Tracker)
	assert.NotNil(t, a.Sources)
	assert.NotNil(t, a.Items)
	assert.NotNil(t, a.Runs)
	assert.NotNil(t, a.Review)
	assert.NotNil(t, a.Metrics)
	assert.FileExists(t, a.Store.Path())
}

func TestApp_SyncWithoutSources(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)

	report, err := a.Tracker.Sync(context.Background(), domain.SyncOptions{Trigger: domain.TriggerManual})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Files)

	history, err := a.Runs.GetTaskHistory(context.Background(), domain.TriggerManual, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, a.Close())

	data, err := os.ReadFile(a.Config.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "awesometrack_runs_total")
}

func TestApp_Scheduler(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	s := a.Scheduler(domain.SyncOptions{SourceIDs: []string{"a/b"}}, true)

	require.NotNil(t, s)
	require.NoError(t, s.Stop(), "stopping an idle scheduler is a no-op")
}

func TestNew_LoadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`tracker:
  data_dir: data
sources:
  avelino/awesome-go:
`), 0o600))

	a, err := New(context.Background(), Options{ConfigPath: path, MockBadges: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.True(t, a.Config.MockBadges)
	assert.Equal(t, filepath.Join(dir, "data"), a.Config.Tracker.DataDir)

	sources, err := a.Sources.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "avelino/awesome-go", sources[0].Identifier)
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "nope.yml")})

	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestClose_Nil(t *testing.T) {
	var a *App
	assert.NoError(t, a.Close())
}
