package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their tracking status",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show files flagged for manual review",
	Long: `Shows the files the last run flagged because they produced fewer items
than expected, which usually means the list changed its layout.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(sourcesCmd, reviewCmd)
}

// sourceRow is one line of the sources listing.
type sourceRow struct {
	ID        string    `json:"id"`
	Category  string    `json:"category,omitempty"`
	Files     int       `json:"files"`
	Tracked   int       `json:"tracked_files"`
	Items     int       `json:"items"`
	Stars     int       `json:"stars"`
	UpdatedAt time.Time `json:"updated_at"`
}

func runSources(cmd *cobra.Command, _ []string) error {
	if err := needService("source", services != nil && services.Sources != nil); err != nil {
		return err
	}
	ctx := cmd.Context()

	sources, err := services.Sources.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	rows := make([]sourceRow, len(sources))
	for i, src := range sources {
		rows[i] = sourceRow{ID: src.Identifier, Category: src.Category, Files: len(src.Files)}
		if services.Tracker == nil {
			continue
		}
		status, err := services.Tracker.Status(ctx, src.Identifier)
		if err != nil {
			return fmt.Errorf("status of %s: %w", src.Identifier, err)
		}
		rows[i].Tracked = status.Files
		rows[i].Items = status.Items
		if status.Record != nil {
			rows[i].Stars = status.Record.Meta.Stars
			rows[i].UpdatedAt = status.Record.UpdatedAt
		}
	}

	if sourcesJSON {
		return outputJSON(cmd, rows)
	}
	if len(rows) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tFILES\tITEMS\tSTARS\tUPDATED")
	for _, r := range rows {
		updated := "-"
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.UTC().Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%d\t%d\t%s\n", r.ID, r.Tracked, r.Files, r.Items, r.Stars, updated)
	}
	return w.Flush()
}

func runReview(cmd *cobra.Command, _ []string) error {
	if err := needService("review", services != nil && services.ReadReview != nil); err != nil {
		return err
	}
	entries, err := services.ReadReview()
	if err != nil {
		return fmt.Errorf("reading review list: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("Nothing to review.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("%s/%s: %d items (checked %s)\n", e.SourceID, e.File, e.Count,
			e.CheckedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
