// Package mcp provides an MCP (Model Context Protocol) server adapter for
// awesometrack. It lets AI assistants query tracked awesome-list items.
package mcp

import "errors"

// ErrMissingItemQuery is returned when the item query service is not provided.
var ErrMissingItemQuery = errors.New("mcp: item query service is required")
