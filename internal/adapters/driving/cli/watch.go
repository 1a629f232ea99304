package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

var (
	watchRunOnStart bool
	watchReload     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [source-id...]",
	Short: "Reconcile sources on the configured schedule",
	Long: `Runs reconciliation on the cron schedule from the configuration
(tracker.schedule, hourly by default) until interrupted. A tick that fires
while a run is still active is skipped.

With --reload the configuration file is watched and the scheduler restarts
with the new configuration after every change.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchRunOnStart, "run-on-start", false, "run once before the first tick")
	watchCmd.Flags().BoolVar(&watchReload, "reload", false, "restart when the configuration file changes")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := needService("scheduler", services != nil && services.NewScheduler != nil); err != nil {
		return err
	}
	ctx := cmd.Context()
	opts := domain.SyncOptions{SourceIDs: args}
	runOnStart := watchRunOnStart

	for {
		restart, err := watchOnce(ctx, opts, runOnStart)
		if !restart {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		// Rebuild against the new configuration.
		if !injected {
			if err := teardown(); err != nil {
				logger.Warn("closing services: %v", err)
			}
			if err := load(ctx); err != nil {
				return fmt.Errorf("reloading configuration: %w", err)
			}
		}
		runOnStart = false
	}
}

// watchOnce runs one scheduler until it stops or the configuration
// changes. restart reports a configuration change.
func watchOnce(ctx context.Context, opts domain.SyncOptions, runOnStart bool) (restart bool, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scheduler := services.NewScheduler(opts, runOnStart)
	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()

	changed := make(chan struct{}, 1)
	if watchReload && services.WatchConfig != nil {
		go func() {
			err := services.WatchConfig(ctx, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watch stopped: %v", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return false, err
	case <-changed:
		logger.Info("configuration changed, restarting scheduler")
		if err := scheduler.Stop(); err != nil {
			logger.Warn("stopping scheduler: %v", err)
		}
		cancel()
		<-errCh
		return true, nil
	}
}
