package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/awesometrack/internal/core/calendar"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

var (
	itemsJSON    bool
	itemsSince   string
	itemsGroupBy string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Query tracked items",
	Long:  `Lists tracked items by file, by day or week of first observation, or by recency.`,
}

var itemsFileCmd = &cobra.Command{
	Use:   "file [source-id] [path]",
	Short: "List the items of one tracked file",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemsFile,
}

var itemsDayCmd = &cobra.Command{
	Use:   "day [YYYYMMDD]",
	Short: "List items first observed on a day",
	Long:  `Lists items first observed on a UTC day. Defaults to today.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runItemsDay,
}

var itemsWeekCmd = &cobra.Command{
	Use:   "week [YYYYWW]",
	Short: "List items first observed in an ISO week",
	Long: `Lists items first observed in an ISO week, written as the week-year
followed by the week number (20241 for 2024-W01, 202410 for 2024-W10).
Defaults to the current week.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runItemsWeek,
}

var itemsChangedCmd = &cobra.Command{
	Use:   "changed [source-id...]",
	Short: "List items added since a point in time",
	Long: `Lists items added after --since, grouped by file (default), day or week.
--since accepts a date (2024-03-01), an RFC 3339 time, a day count (7d)
or a duration (36h). Source IDs restrict file grouping.`,
	RunE: runItemsChanged,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the time index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the time index from stored items",
	Long: `Rebuilds the timestamp index from the item store. Use after restoring
a backup or when queries by day or week disagree with file queries.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

func init() {
	itemsCmd.PersistentFlags().BoolVar(&itemsJSON, "json", false, "output results as JSON")
	itemsChangedCmd.Flags().StringVarP(&itemsSince, "since", "s", "7d", "lower bound for first observation")
	itemsChangedCmd.Flags().StringVarP(&itemsGroupBy, "group-by", "g", "file", "grouping: file, day or week")

	itemsCmd.AddCommand(itemsFileCmd, itemsDayCmd, itemsWeekCmd, itemsChangedCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(itemsCmd, indexCmd)
}

func itemQuery() (driving.ItemQuery, error) {
	if err := needService("item", services != nil && services.Items != nil); err != nil {
		return nil, err
	}
	return services.Items, nil
}

func runItemsFile(cmd *cobra.Command, args []string) error {
	q, err := itemQuery()
	if err != nil {
		return err
	}
	items, err := q.GetByFile(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	return outputItems(cmd, args[0]+"/"+args[1], items)
}

func runItemsDay(cmd *cobra.Command, args []string) error {
	q, err := itemQuery()
	if err != nil {
		return err
	}
	day := calendar.DayNumber(time.Now())
	if len(args) > 0 {
		if day, err = parseBucket(args[0]); err != nil {
			return err
		}
	}
	items, err := q.GetByDayBucket(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	return outputItems(cmd, dayName(day), items)
}

func runItemsWeek(cmd *cobra.Command, args []string) error {
	q, err := itemQuery()
	if err != nil {
		return err
	}
	week := calendar.WeekNumber(time.Now())
	if len(args) > 0 {
		if week, err = parseBucket(args[0]); err != nil {
			return err
		}
	}
	items, err := q.GetByWeekBucket(cmd.Context(), week)
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	return outputItems(cmd, weekName(week), items)
}

func runItemsChanged(cmd *cobra.Command, args []string) error {
	q, err := itemQuery()
	if err != nil {
		return err
	}
	since, err := calendar.ParseSince(itemsSince, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	ctx := cmd.Context()
	var groups []itemGroup
	switch itemsGroupBy {
	case "file":
		files, err := q.GetFilesChangedSince(ctx, since, args...)
		if err != nil {
			return fmt.Errorf("listing changes: %w", err)
		}
		for _, f := range files {
			groups = append(groups, itemGroup{Title: f.SourceID + "/" + f.File, Latest: f.Latest, Items: f.Items})
		}
	case "day", "week":
		get, label := q.GetDaysChangedSince, dayName
		if itemsGroupBy == "week" {
			get, label = q.GetWeeksChangedSince, weekName
		}
		buckets, err := get(ctx, since)
		if err != nil {
			return fmt.Errorf("listing changes: %w", err)
		}
		for _, b := range buckets {
			groups = append(groups, itemGroup{Title: label(b.Bucket), Latest: b.Latest, Items: b.Items})
		}
	default:
		return fmt.Errorf("%w: unknown grouping %q", domain.ErrInvalidInput, itemsGroupBy)
	}

	if itemsJSON {
		return outputJSON(cmd, groups)
	}
	if len(groups) == 0 {
		cmd.Println("No new items.")
		return nil
	}
	for _, g := range groups {
		printGroup(cmd, g)
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	q, err := itemQuery()
	if err != nil {
		return err
	}
	n, err := q.RebuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	cmd.Printf("Indexed %d items.\n", n)
	return nil
}

// itemGroup is one titled block of items in command output.
type itemGroup struct {
	Title  string        `json:"title"`
	Latest time.Time     `json:"latest"`
	Items  []domain.Item `json:"items"`
}

func outputItems(cmd *cobra.Command, title string, items []domain.Item) error {
	if itemsJSON {
		return outputJSON(cmd, items)
	}
	if len(items) == 0 {
		cmd.Println("No items found.")
		return nil
	}
	printGroup(cmd, itemGroup{Title: title, Items: items})
	return nil
}

func printGroup(cmd *cobra.Command, g itemGroup) {
	cmd.Printf("%s (%d)\n", g.Title, len(g.Items))
	category := ""
	for _, item := range g.Items {
		if item.Category != category {
			category = item.Category
			if category != "" {
				cmd.Printf("  %s\n", category)
			}
		}
		cmd.Printf("    %s  %s\n", item.FirstObservedAt.UTC().Format(time.DateOnly), firstLine(item.Markdown))
	}
	cmd.Println()
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func parseBucket(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a bucket number", domain.ErrInvalidInput, s)
	}
	return n, nil
}

func dayName(n int) string {
	if info, err := calendar.ParseDayInfo(n); err == nil {
		return info.Name
	}
	return strconv.Itoa(n)
}

func weekName(n int) string {
	if info, err := calendar.ParseWeekInfo(n); err == nil {
		return info.Name
	}
	return strconv.Itoa(n)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		return line + " ..."
	}
	return s
}
