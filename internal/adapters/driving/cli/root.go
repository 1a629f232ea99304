// Package cli implements the awesometrack command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/awesometrack/internal/adapters/driven/config/file"
	"github.com/custodia-labs/awesometrack/internal/app"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	configPath string
	verbose    bool
	logJSON    bool
	mockBadges bool
)

// RunHistory reads persisted run results.
type RunHistory interface {
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}

// Services holds everything the commands use.
type Services struct {
	Tracker driving.Tracker
	Items   driving.ItemQuery
	Sources driving.SourceService
	Runs    RunHistory

	// ReadReview returns the latest manual review list. Optional.
	ReadReview func() ([]domain.ReviewEntry, error)

	// NewScheduler builds a scheduler for the watch command. Optional.
	NewScheduler func(opts domain.SyncOptions, runOnStart bool) driving.Scheduler

	// WatchConfig blocks calling onChange whenever the configuration
	// file changes. Optional.
	WatchConfig func(ctx context.Context, onChange func()) error

	// Flush persists run side outputs such as the metrics textfile. Optional.
	Flush func() error

	// Close releases resources. Optional.
	Close func() error
}

// services is built lazily from configuration unless injected.
var (
	services *Services
	injected bool
)

// SetServices injects services, bypassing configuration loading.
func SetServices(s *Services) {
	services = s
	injected = s != nil
}

var rootCmd = &cobra.Command{
	Use:   "awesometrack",
	Short: "Track additions to awesome lists",
	Long: `awesometrack follows curated markdown lists hosted on GitHub and records
when each entry first appeared, so new additions can be listed by file,
day or week.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", file.DefaultPath, "configuration file (YAML or TOML)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	flags.BoolVar(&mockBadges, "mock-badges", false, "skip star lookups for popularity badges")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

// noServices marks commands that run without configuration.
const noServices = "no-services"

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetJSON(logJSON)
	logger.SetColor(!logJSON && term.IsTerminal(int(os.Stderr.Fd())))

	if injected || cmd.Annotations[noServices] == "true" {
		return nil
	}
	return load(cmd.Context())
}

// load builds services from the configuration file.
func load(ctx context.Context) error {
	a, err := app.New(ctx, app.Options{ConfigPath: configPath, MockBadges: mockBadges})
	if err != nil {
		return err
	}
	services = fromApp(a)
	return nil
}

func teardown() error {
	if injected || services == nil {
		return nil
	}
	var err error
	if services.Close != nil {
		err = services.Close()
	}
	services = nil
	return err
}

func fromApp(a *app.App) *Services {
	return &Services{
		Tracker:    a.Tracker,
		Items:      a.Items,
		Sources:    a.Sources,
		Runs:       a.Runs,
		ReadReview: a.Review.ReadReview,
		NewScheduler: func(opts domain.SyncOptions, runOnStart bool) driving.Scheduler {
			return a.Scheduler(opts, runOnStart)
		},
		WatchConfig: func(ctx context.Context, onChange func()) error {
			return file.Watch(ctx, a.Config.Path, func(*domain.Config) { onChange() })
		},
		Flush: a.WriteMetrics,
		Close: a.Close,
	}
}

// errNotConfigured is returned when a command needs a service that is absent.
var errNotConfigured = errors.New("service not configured")

// needService reports a missing service by name, e.g. "sync service not configured".
func needService(name string, ok bool) error {
	if !ok {
		return fmt.Errorf("%s %w", name, errNotConfigured)
	}
	return nil
}
