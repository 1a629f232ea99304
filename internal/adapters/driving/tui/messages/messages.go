// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota

	// ViewSources lists configured sources.
	ViewSources

	// ViewFiles lists the tracked files of one source.
	ViewFiles

	// ViewItems shows a scrollable list of items.
	ViewItems

	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSources:
		return "sources"
	case ViewFiles:
		return "files"
	case ViewItems:
		return "items"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// SourcesLoaded carries sources and their tracking status.
type SourcesLoaded struct {
	Sources []domain.Source
	Status  map[string]*driving.SyncStatus
	Err     error
}

// SourceSelected signals a source was opened.
type SourceSelected struct {
	Source domain.Source
}

// ItemQuery selects which items the items view shows.
type ItemQuery struct {
	// Title heads the view.
	Title string

	// SourceID and File select one file's items.
	SourceID string
	File     string

	// Day or Week select a calendar bucket.
	Day  int
	Week int

	// SinceDays selects items added within the last days.
	SinceDays int
}

// ItemsRequested asks the items view to load a query.
type ItemsRequested struct {
	Query ItemQuery
}

// ItemsLoaded carries the result of an item query.
type ItemsLoaded struct {
	Query ItemQuery
	Items []domain.Item
	Err   error
}

// SyncRequested asks for a reconciliation of the given sources.
type SyncRequested struct {
	SourceIDs []string
}

// SyncCompleted carries the report of a finished reconciliation.
type SyncCompleted struct {
	Report *domain.RunReport
	Err    error
}
