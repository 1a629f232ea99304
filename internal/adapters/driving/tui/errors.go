package tui

import "errors"

// ErrMissingItemQuery is returned when the item query service is not provided.
var ErrMissingItemQuery = errors.New("tui: item query service is required")

// ErrMissingSourceService is returned when the source service is not provided.
var ErrMissingSourceService = errors.New("tui: source service is required")
