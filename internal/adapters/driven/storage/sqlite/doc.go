// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ItemStore: item bodies, the timestamp index and file records
//   - SourceStore: repository records
//   - StarCache: cached star counts
//   - SchedulerStore: watch loop state and run history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Timestamps are stored as unix milliseconds.
//
// # Data Location
//
// By default, the database is stored at ~/.awesometrack/data/tracker.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. ReplaceFile and RebuildIndex run in a single transaction.
package sqlite
