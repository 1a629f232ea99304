package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

const sampleYAML = `
file_min_updated_hours: 6
site:
  title: Track Awesome List
  url: https://example.com
tracker:
  data_dir: data
  concurrency: 4
  schedule: "0 */6 * * *"
sources:
  sindresorhus/awesome:
  avelino/awesome-go:
    category: Go
    default_branch: main
    files: README.md
  acme/awesome-things:
    files:
      README.md:
        index: true
      docs/TOOLS.md:
        options:
          type: table
          is_parse_category: false
        id_strategy: firstLink
        category_exclusions: [Meta]
      docs/BOOKS.md:
        name: Books
        options:
          type: heading
          heading_level: 3
`

func TestParse_YAML(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 3)
	ids := []string{cfg.Sources[0].Identifier, cfg.Sources[1].Identifier, cfg.Sources[2].Identifier}
	assert.Equal(t, []string{"sindresorhus/awesome", "avelino/awesome-go", "acme/awesome-things"}, ids)

	assert.Equal(t, 6*time.Hour, cfg.Tracker.RefreshWindow)
	assert.Equal(t, "data", cfg.Tracker.DataDir)
	assert.Equal(t, 4, cfg.Tracker.Concurrency)
	assert.Equal(t, "0 */6 * * *", cfg.Scheduler.Spec)
	assert.Equal(t, "Track Awesome List", cfg.Site.Title)
}

func TestParse_NullSourceDefaultsToReadme(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	require.NoError(t, err)

	src := cfg.Sources[0]
	require.Len(t, src.Files, 1)
	f := src.Files[0]
	assert.Equal(t, IndexFile, f.Path)
	assert.True(t, f.Index)
	assert.Equal(t, "Awesome", f.Name)
	assert.Equal(t, domain.FormatList, f.Options.Format)
	assert.True(t, f.Options.ParseCategory)
	assert.Equal(t, domain.IDDefault, f.IDStrategy)
}

func TestParse_StringFiles(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	require.NoError(t, err)

	src := cfg.Sources[1]
	assert.Equal(t, "Go", src.Category)
	assert.Equal(t, "main", src.DefaultBranch)
	require.Len(t, src.Files, 1)
	assert.Equal(t, "Awesome Go", src.Files[0].Name)
	assert.True(t, src.Files[0].Index)
}

func TestParse_FileOptions(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	require.NoError(t, err)

	src := cfg.Sources[2]
	require.Len(t, src.Files, 3)

	readme := src.Files[0]
	assert.True(t, readme.Index)
	assert.Equal(t, "Awesome Things", readme.Name)

	tools := src.Files[1]
	assert.False(t, tools.Index)
	assert.Equal(t, "Awesome Things (docs/TOOLS.md)", tools.Name)
	assert.Equal(t, domain.FormatTable, tools.Options.Format)
	assert.False(t, tools.Options.ParseCategory)
	assert.Equal(t, domain.IDFirstLink, tools.IDStrategy)
	assert.Equal(t, []string{"Meta"}, tools.Options.CategoryExclusions)

	books := src.Files[2]
	assert.Equal(t, "Books", books.Name)
	assert.Equal(t, domain.FormatHeading, books.Options.Format)
	assert.Equal(t, 3, books.Options.HeadingLevel)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("sources:\n  a/b:\n"), false)
	require.NoError(t, err)

	def := domain.DefaultTrackerConfig()
	assert.Equal(t, def.RefreshWindow, cfg.Tracker.RefreshWindow)
	assert.Equal(t, def.DataDir, cfg.Tracker.DataDir)
	assert.Equal(t, def.AnomalyThreshold, cfg.Tracker.AnomalyThreshold)
	assert.Equal(t, domain.DefaultSchedulerConfig().Spec, cfg.Scheduler.Spec)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no index file", "sources:\n  a/b:\n    files:\n      A.md: {}\n      B.md: {}\n"},
		{"bad identifier", "sources:\n  nope:\n"},
		{"unknown format", "sources:\n  a/b:\n    files:\n      README.md:\n        options:\n          type: grid\n"},
		{"unknown id strategy", "sources:\n  a/b:\n    files:\n      README.md:\n        id_strategy: random\n"},
		{"heading without level", "sources:\n  a/b:\n    files:\n      README.md:\n        options:\n          type: heading\n"},
		{"unknown key", "sources:\n  a/b:\n    colour: red\n"},
		{"sources not a map", "sources: [a/b]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), false)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestParse_TOML(t *testing.T) {
	doc := `
file_min_updated_hours = 24

[tracker]
concurrency = 2

[sources."b/second"]
category = "Later"

[sources."a/first".files."README.md"]
index = true

[sources."a/first".files."LIST.md".options]
type = "table"
`
	cfg, err := Parse([]byte(doc), true)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Tracker.RefreshWindow)
	assert.Equal(t, 2, cfg.Tracker.Concurrency)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "a/first", cfg.Sources[0].Identifier)
	assert.Equal(t, "b/second", cfg.Sources[1].Identifier)

	f, ok := cfg.Sources[0].File("LIST.md")
	require.True(t, ok)
	assert.Equal(t, domain.FormatTable, f.Options.Format)
	assert.Equal(t, "First (LIST.md)", f.Name)
}

func TestLoad_ResolvesRelativeDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	doc := "tracker:\n  data_dir: db\n  repos_dir: /abs/repos\n  metrics_file: metrics.prom\nsources:\n  a/b:\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(dir, "db"), cfg.Tracker.DataDir)
	assert.Equal(t, "/abs/repos", cfg.Tracker.ReposDir)
	assert.Equal(t, filepath.Join(dir, "metrics.prom"), cfg.MetricsFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("PERSONAL_GITHUB_TOKEN", "secret")

	cfg, err := Parse([]byte("sources:\n  a/b:\n"), false)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.GitHubToken)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  a/b:\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *domain.Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *domain.Config) { reloaded <- cfg })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  a/b:\n  c/d:\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Len(t, cfg.Sources, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
