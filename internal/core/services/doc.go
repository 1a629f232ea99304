// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Tracker drives reconciliation runs, the ChangeTracker owns the merge
// of parsed items into the store and the index-backed reads, and the
// Scheduler repeats runs on a cron schedule.
package services
