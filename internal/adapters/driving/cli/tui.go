package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/awesometrack/internal/adapters/driving/tui"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

var tuiWatch bool

// runTUIApp runs the program. Tests replace it to avoid taking the terminal.
var runTUIApp = func(app *tui.App) error {
	return app.Run()
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for awesometrack.

The TUI lists configured sources and their tracked files, and shows the
items added today, this week or over the last seven days.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Open
  s        - Sync the selected source
  r        - Reload
  Esc      - Back
  ?        - Help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVarP(&tuiWatch, "watch", "w", false, "run the reconciliation schedule in the background")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if err := needService("item", services != nil && services.Items != nil); err != nil {
		return err
	}

	// The TUI is long-running; the schedule keeps running behind it.
	if tuiWatch {
		if err := needService("scheduler", services.NewScheduler != nil); err != nil {
			return err
		}
		sched := services.NewScheduler(domain.SyncOptions{}, false)
		schedCtx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			if err := sched.Start(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("scheduler stop error: %v", err)
			}
		}()
	}

	ports := &tui.Ports{
		Items:   services.Items,
		Sources: services.Sources,
		Tracker: services.Tracker,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runTUIApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if services.Flush != nil {
		return services.Flush()
	}
	return nil
}
