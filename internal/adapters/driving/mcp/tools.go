package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/awesometrack/internal/core/calendar"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// FileInput is the input schema for the items_by_file tool.
type FileInput struct {
	SourceID string `json:"source_id" jsonschema:"the source repository, e.g. sindresorhus/awesome"`
	File     string `json:"file" jsonschema:"the tracked file path, e.g. README.md"`
}

// DayInput is the input schema for the items_by_day tool.
type DayInput struct {
	Day int `json:"day" jsonschema:"the day bucket as YYYYMMDD"`
}

// WeekInput is the input schema for the items_by_week tool.
type WeekInput struct {
	Week int `json:"week" jsonschema:"the ISO week bucket as year followed by week, e.g. 202410"`
}

// ChangedInput is the input schema for the changed_since tool.
type ChangedInput struct {
	Since     string   `json:"since" jsonschema:"lower bound: a date, RFC 3339 time, day count such as 7d, or duration such as 36h"`
	GroupBy   string   `json:"group_by,omitempty" jsonschema:"grouping: file (default), day or week"`
	SourceIDs []string `json:"source_ids,omitempty" jsonschema:"restrict file grouping to these sources"`
}

// StatusInput is the input schema for the source_status tool.
type StatusInput struct {
	SourceID string `json:"source_id" jsonschema:"the source repository"`
}

// ItemOutput represents a single tracked item.
type ItemOutput struct {
	SourceID        string `json:"source_id"`
	File            string `json:"file"`
	Category        string `json:"category,omitempty"`
	Markdown        string `json:"markdown"`
	FirstObservedAt string `json:"first_observed_at"`
	Day             int    `json:"day"`
	Week            int    `json:"week"`
}

// ItemsOutput is the output schema for item list tools.
type ItemsOutput struct {
	Items []ItemOutput `json:"items"`
	Count int          `json:"count"`
}

// GroupOutput is one group of changed items.
type GroupOutput struct {
	SourceID string       `json:"source_id,omitempty"`
	File     string       `json:"file,omitempty"`
	Bucket   int          `json:"bucket,omitempty"`
	Label    string       `json:"label"`
	Latest   string       `json:"latest"`
	Items    []ItemOutput `json:"items"`
}

// ChangedOutput is the output schema for the changed_since tool.
type ChangedOutput struct {
	Groups []GroupOutput `json:"groups"`
	Count  int           `json:"count"`
}

// StatusOutput is the output schema for the source_status tool.
type StatusOutput struct {
	SourceID  string `json:"source_id"`
	Running   bool   `json:"running"`
	Files     int    `json:"files"`
	Items     int    `json:"items"`
	Stars     int    `json:"stars,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "items_by_file",
		Description: "List the tracked items of one awesome-list file, newest first",
	}, s.handleItemsByFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "items_by_day",
		Description: "List items first observed on a given UTC day",
	}, s.handleItemsByDay)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "items_by_week",
		Description: "List items first observed in a given ISO week",
	}, s.handleItemsByWeek)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "changed_since",
		Description: "List items added since a point in time, grouped by file, day or week",
	}, s.handleChangedSince)

	if s.ports.Tracker != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "source_status",
			Description: "Report tracking status of one source",
		}, s.handleSourceStatus)
	}
}

func (s *Server) handleItemsByFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FileInput,
) (*mcp.CallToolResult, ItemsOutput, error) {
	items, err := s.ports.Items.GetByFile(ctx, input.SourceID, input.File)
	if err != nil {
		return nil, ItemsOutput{}, err
	}
	return nil, toItemsOutput(items), nil
}

func (s *Server) handleItemsByDay(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DayInput,
) (*mcp.CallToolResult, ItemsOutput, error) {
	items, err := s.ports.Items.GetByDayBucket(ctx, input.Day)
	if err != nil {
		return nil, ItemsOutput{}, err
	}
	return nil, toItemsOutput(items), nil
}

func (s *Server) handleItemsByWeek(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WeekInput,
) (*mcp.CallToolResult, ItemsOutput, error) {
	items, err := s.ports.Items.GetByWeekBucket(ctx, input.Week)
	if err != nil {
		return nil, ItemsOutput{}, err
	}
	return nil, toItemsOutput(items), nil
}

func (s *Server) handleChangedSince(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChangedInput,
) (*mcp.CallToolResult, ChangedOutput, error) {
	since, err := calendar.ParseSince(input.Since, s.now())
	if err != nil {
		return nil, ChangedOutput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var groups []GroupOutput
	switch input.GroupBy {
	case "", "file":
		files, err := s.ports.Items.GetFilesChangedSince(ctx, since, input.SourceIDs...)
		if err != nil {
			return nil, ChangedOutput{}, err
		}
		for _, f := range files {
			groups = append(groups, GroupOutput{
				SourceID: f.SourceID,
				File:     f.File,
				Label:    f.SourceID + "/" + f.File,
				Latest:   formatTime(f.Latest),
				Items:    toItems(f.Items),
			})
		}
	case "day":
		days, err := s.ports.Items.GetDaysChangedSince(ctx, since)
		if err != nil {
			return nil, ChangedOutput{}, err
		}
		groups = bucketGroups(days, dayLabel)
	case "week":
		weeks, err := s.ports.Items.GetWeeksChangedSince(ctx, since)
		if err != nil {
			return nil, ChangedOutput{}, err
		}
		groups = bucketGroups(weeks, weekLabel)
	default:
		return nil, ChangedOutput{}, fmt.Errorf("%w: unknown group_by %q", domain.ErrInvalidInput, input.GroupBy)
	}

	if groups == nil {
		groups = []GroupOutput{}
	}
	return nil, ChangedOutput{Groups: groups, Count: len(groups)}, nil
}

func (s *Server) handleSourceStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Tracker.Status(ctx, input.SourceID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out := StatusOutput{
		SourceID: status.SourceID,
		Running:  status.Running,
		Files:    status.Files,
		Items:    status.Items,
	}
	if status.Record != nil {
		out.Stars = status.Record.Meta.Stars
		out.CreatedAt = formatTime(status.Record.CreatedAt)
		out.UpdatedAt = formatTime(status.Record.UpdatedAt)
	}
	return nil, out, nil
}

func bucketGroups(buckets []driving.BucketChanges, label func(int) string) []GroupOutput {
	groups := make([]GroupOutput, len(buckets))
	for i, b := range buckets {
		groups[i] = GroupOutput{
			Bucket: b.Bucket,
			Label:  label(b.Bucket),
			Latest: formatTime(b.Latest),
			Items:  toItems(b.Items),
		}
	}
	return groups
}

func dayLabel(n int) string {
	if info, err := calendar.ParseDayInfo(n); err == nil {
		return info.Name
	}
	return fmt.Sprint(n)
}

func weekLabel(n int) string {
	if info, err := calendar.ParseWeekInfo(n); err == nil {
		return info.Name
	}
	return fmt.Sprint(n)
}

func toItemsOutput(items []domain.Item) ItemsOutput {
	return ItemsOutput{Items: toItems(items), Count: len(items)}
}

func toItems(items []domain.Item) []ItemOutput {
	out := make([]ItemOutput, len(items))
	for i, item := range items {
		out[i] = ItemOutput{
			SourceID:        item.SourceID,
			File:            item.File,
			Category:        item.Category,
			Markdown:        item.Markdown,
			FirstObservedAt: formatTime(item.FirstObservedAt),
			Day:             item.DayBucket,
			Week:            item.WeekBucket,
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
