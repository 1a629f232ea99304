// Package domain defines the core entities for awesometrack.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source and TrackedFile: configured awesome lists and their documents
//   - ParsedItem: a normalised fragment with its fingerprint
//   - Item: a tracked item with its first-observed timestamp
//   - FileRecord, SourceRecord: per-file and per-repository metadata
//   - IndexEntry: the derived calendar index row for an item
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
