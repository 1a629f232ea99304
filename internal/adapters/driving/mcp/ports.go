package mcp

import (
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Items answers item queries.
	Items driving.ItemQuery

	// Sources lists configured sources. Optional.
	Sources driving.SourceService

	// Tracker reports per-source status. Optional.
	Tracker driving.Tracker
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Items == nil {
		return ErrMissingItemQuery
	}
	return nil
}
