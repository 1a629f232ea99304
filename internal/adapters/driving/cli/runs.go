package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsTask  string
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent reconciliation runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs")
	runsCmd.Flags().StringVar(&runsTask, "task", "", "only runs of this trigger (manual or reconcile)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if err := needService("run history", services != nil && services.Runs != nil); err != nil {
		return err
	}
	results, err := services.Runs.GetTaskHistory(cmd.Context(), runsTask, runsLimit)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}

	if runsJSON {
		return outputJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTRIGGER\tDURATION\tCHANGED\tNEW\tSTATUS")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "error: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.TaskID,
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.FilesChanged, r.NewItems, status)
	}
	return w.Flush()
}
