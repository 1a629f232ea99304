package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

var (
	syncForce            bool
	syncRebuild          bool
	syncLimit            int
	syncConcurrency      int
	syncFetchRepoUpdates bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [source-id...]",
	Short: "Reconcile tracked files with their sources",
	Long: `Fetches every tracked file and records items that were not seen before.
If source IDs are provided, only those sources are synchronised.

Files without stored state are initialised from a local clone, dating each
item by git blame. Files checked within the refresh window are skipped
unless --force is given. --rebuild re-initialises the selected sources and
requires at least one source ID.`,
	RunE: runSync,
}

func init() {
	flags := syncCmd.Flags()
	flags.BoolVarP(&syncForce, "force", "f", false, "ignore the refresh window and unchanged content")
	flags.BoolVar(&syncRebuild, "rebuild", false, "re-initialise the selected sources from git history")
	flags.IntVarP(&syncLimit, "limit", "n", 0, "process at most this many sources (0 = all)")
	flags.IntVar(&syncConcurrency, "concurrency", 0, "files processed in parallel (0 = configured)")
	flags.BoolVar(&syncFetchRepoUpdates, "fetch-repo-updates", false, "pull existing clones before initialising")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := needService("sync", services != nil && services.Tracker != nil); err != nil {
		return err
	}
	if syncRebuild && len(args) == 0 {
		return fmt.Errorf("%w: --rebuild requires source IDs", domain.ErrInvalidInput)
	}

	opts := domain.SyncOptions{
		SourceIDs:        args,
		Force:            syncForce,
		Rebuild:          syncRebuild,
		FetchRepoUpdates: syncFetchRepoUpdates,
		Limit:            syncLimit,
		Concurrency:      syncConcurrency,
		Trigger:          domain.TriggerManual,
	}

	if len(args) > 0 {
		cmd.Printf("Synchronising %d source(s)...\n", len(args))
	} else {
		cmd.Println("Synchronising all sources...")
	}

	report, err := services.Tracker.Sync(cmd.Context(), opts)
	if services.Flush != nil {
		if flushErr := services.Flush(); flushErr != nil {
			cmd.PrintErrf("writing metrics: %v\n", flushErr)
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return fmt.Errorf("sync failed: another run is in progress")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(cmd.OutOrStdout(), report)
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("sync failed: %d of %d files", len(failed), len(report.Files))
	}
	return nil
}

// printReport writes a run summary, failed files and the review list.
func printReport(w io.Writer, report *domain.RunReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "%d files, %d changed, %d new items (%s)\n",
		len(report.Files), report.Changed(), report.NewItems(),
		report.EndedAt.Sub(report.StartedAt).Round(time.Millisecond))

	for _, f := range report.Failed() {
		fmt.Fprintf(w, "  failed  %s/%s: %v\n", f.SourceID, f.File, f.Err)
	}
	for _, r := range report.Review {
		fmt.Fprintf(w, "  review  %s/%s: only %d items\n", r.SourceID, r.File, r.Count)
	}
}
