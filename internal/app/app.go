// Package app assembles the tracker from configuration: storage, the
// GitHub connector, git, the markdown normaliser and metrics.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/awesometrack/internal/adapters/driven/config/file"
	"github.com/custodia-labs/awesometrack/internal/adapters/driven/storage/reviewfile"
	"github.com/custodia-labs/awesometrack/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/awesometrack/internal/adapters/driven/vcs/git"
	"github.com/custodia-labs/awesometrack/internal/connectors/github"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/core/services"
	"github.com/custodia-labs/awesometrack/internal/logger"
	"github.com/custodia-labs/awesometrack/internal/metrics"
	mdnorm "github.com/custodia-labs/awesometrack/internal/normalisers/markdown"
)

// Options controls how the application is assembled.
type Options struct {
	// ConfigPath is the configuration file. Empty means file.DefaultPath.
	ConfigPath string

	// MockBadges disables star lookups regardless of configuration.
	MockBadges bool
}

// App holds the assembled services and the resources they share.
type App struct {
	Config  *domain.Config
	Store   *sqlite.Store
	Tracker *services.Tracker
	Sources *services.SourceService
	Items   *services.ChangeTracker
	Runs    driven.SchedulerStore
	Review  *reviewfile.Sink
	Metrics *metrics.Metrics
}

// New loads configuration and assembles the application.
func New(ctx context.Context, opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		path = file.DefaultPath
	}
	cfg, err := file.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.MockBadges {
		cfg.MockBadges = true
	}
	return Build(ctx, cfg)
}

// Build assembles the application from a resolved configuration.
func Build(ctx context.Context, cfg *domain.Config) (*App, error) {
	store, err := sqlite.NewStore(cfg.Tracker.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store: %s", store.Path())

	m := metrics.New()
	client := github.NewClient(ctx, cfg.GitHubToken)
	if cfg.GitHubToken == "" {
		logger.Warn("no GitHub token set, using the anonymous rate limit")
	}

	stars := github.NewCachedStars(m.CountStars(github.NewStars(client)), store.StarCache(), github.DefaultStarTTL)
	normaliser := mdnorm.New(
		mdnorm.WithStarCounter(stars),
		mdnorm.WithBadgeConcurrency(cfg.BadgeConcurrency),
		mdnorm.WithMock(cfg.MockBadges),
	)

	// A nil *git.Git must not end up inside the interface.
	var vcs driven.VersionControl
	if g, err := git.New(); err == nil {
		vcs = g
	} else {
		logger.Warn("%v: new files cannot be initialised", err)
	}

	sources := services.NewSourceService(cfg.Sources, store.SourceStore())
	review := reviewfile.New(cfg.Tracker.DataDir)
	tracker := services.NewTracker(cfg.Tracker, services.TrackerDeps{
		Sources:    sources,
		Content:    github.NewContents(client),
		VCS:        vcs,
		Normaliser: normaliser,
		Items:      store.ItemStore(),
		Records:    store.SourceStore(),
		Runs:       store.SchedulerStore(),
		Review:     review,
		Observer:   m,
	})

	return &App{
		Config:  cfg,
		Store:   store,
		Tracker: tracker,
		Sources: sources,
		Items:   tracker.Changes(),
		Runs:    store.SchedulerStore(),
		Review:  review,
		Metrics: m,
	}, nil
}

// Scheduler returns a scheduler running opts on the configured schedule.
func (a *App) Scheduler(opts domain.SyncOptions, runOnStart bool) *services.Scheduler {
	cfg := a.Config.Scheduler
	cfg.RunOnStart = cfg.RunOnStart || runOnStart
	return services.NewScheduler(cfg, a.Runs, a.Tracker, opts)
}

// WriteMetrics writes the metrics textfile when one is configured.
func (a *App) WriteMetrics() error {
	return a.Metrics.WriteTextfile(a.Config.MetricsFile)
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return errors.Join(a.WriteMetrics(), a.Store.Close())
}
