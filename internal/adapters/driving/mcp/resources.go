package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/awesometrack/internal/core/calendar"
	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for awesometrack resources.
	uriScheme = "awesometrack://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing sources.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Configured awesome-list sources with repository metadata",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "days/{day}",
		Name:        "day-digest",
		Description: "Markdown digest of items first observed on a day (YYYYMMDD)",
		MIMEType:    "text/markdown",
	}, s.handleDayResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "weeks/{week}",
		Name:        "week-digest",
		Description: "Markdown digest of items first observed in an ISO week",
		MIMEType:    "text/markdown",
	}, s.handleWeekResource)
}

// handleSourcesResource returns a list of all configured sources.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sources == nil {
		return textResult(req.Params.URI, "application/json", "[]"), nil
	}

	sources, err := s.ports.Sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	records, err := s.ports.Sources.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source records: %w", err)
	}
	byID := make(map[string]domain.SourceRecord, len(records))
	for _, r := range records {
		byID[r.Identifier] = r
	}

	type sourceInfo struct {
		ID          string   `json:"id"`
		URL         string   `json:"url"`
		Category    string   `json:"category,omitempty"`
		Description string   `json:"description,omitempty"`
		Stars       int      `json:"stars,omitempty"`
		UpdatedAt   string   `json:"updated_at,omitempty"`
		Files       []string `json:"files"`
	}

	infos := make([]sourceInfo, len(sources))
	for i, src := range sources {
		info := sourceInfo{
			ID:       src.Identifier,
			URL:      src.RepoURL(),
			Category: src.Category,
			Files:    make([]string, len(src.Files)),
		}
		for j, f := range src.Files {
			info.Files[j] = f.Path
		}
		if r, ok := byID[src.Identifier]; ok {
			info.Description = r.Meta.Description
			info.Stars = r.Meta.Stars
			info.UpdatedAt = formatTime(r.UpdatedAt)
		}
		infos[i] = info
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

// handleDayResource renders the items of one day bucket.
func (s *Server) handleDayResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	n, ok := extractBucket(req.Params.URI, "days/")
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	info, err := calendar.ParseDayInfo(n)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	items, err := s.ports.Items.GetByDayBucket(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("getting day %d: %w", n, err)
	}
	return textResult(req.Params.URI, "text/markdown", digest(info.Name, items)), nil
}

// handleWeekResource renders the items of one week bucket.
func (s *Server) handleWeekResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	n, ok := extractBucket(req.Params.URI, "weeks/")
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	info, err := calendar.ParseWeekInfo(n)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	items, err := s.ports.Items.GetByWeekBucket(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("getting week %d: %w", n, err)
	}
	return textResult(req.Params.URI, "text/markdown", digest(info.Name, items)), nil
}

// digest groups items by source and file, then by category, keeping the
// query order within each group.
func digest(title string, items []domain.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	if len(items) == 0 {
		b.WriteString("\nNo new items.\n")
		return b.String()
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.Item) int {
		return cmp.Or(cmp.Compare(a.SourceID, b.SourceID), cmp.Compare(a.File, b.File))
	})

	lastFile, lastCategory := "", ""
	for _, item := range sorted {
		file := item.SourceID + "/" + item.File
		if file != lastFile {
			fmt.Fprintf(&b, "\n## %s\n", file)
			lastFile, lastCategory = file, ""
		}
		if item.Category != "" && item.Category != lastCategory {
			fmt.Fprintf(&b, "\n### %s\n\n", item.Category)
			lastCategory = item.Category
		}
		b.WriteString(strings.TrimSpace(item.Markdown))
		b.WriteString("\n")
	}
	return b.String()
}

// extractBucket extracts the bucket number from a URI like awesometrack://days/{day}.
func extractBucket(uri, kind string) (int, bool) {
	rest, ok := strings.CutPrefix(uri, uriScheme+kind)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     text,
		}},
	}
}
