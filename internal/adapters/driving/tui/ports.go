// Package tui provides an interactive terminal browser for tracked
// awesome-list items. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Items answers item queries.
	Items driving.ItemQuery

	// Sources lists configured sources.
	Sources driving.SourceService

	// Tracker reports status and runs reconciliation. Optional; without it
	// the TUI is read-only.
	Tracker driving.Tracker
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Items == nil {
		return ErrMissingItemQuery
	}
	if p.Sources == nil {
		return ErrMissingSourceService
	}
	return nil
}
