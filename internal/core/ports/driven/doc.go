// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ContentSource: fetches file content and repository metadata
//   - VersionControl: clones repositories and produces per-line blame
//   - Normaliser: turns a fetched document into parsed items
//   - ItemStore: item bodies, the derived index and file records
//   - SourceStore: repository metadata records
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - StarCounter: popularity lookups. Without it no badges are added.
//   - StarCache: caches StarCounter results between runs.
//   - SchedulerStore: run history for the watch loop.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
