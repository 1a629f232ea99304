package domain

import "time"

// ScheduledTask is a recurring reconciliation job.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Spec is the cron expression the task runs on.
	Spec string

	// SourceIDs restricts the run to these sources. Empty means all.
	SourceIDs []string

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string
}

// TaskResult is the persisted outcome of one run.
type TaskResult struct {
	// RunID is the unique identifier of the run.
	RunID string

	// TaskID identifies which task triggered the run.
	TaskID string

	// StartedAt is when the run started.
	StartedAt time.Time

	// EndedAt is when the run completed.
	EndedAt time.Time

	// Success indicates whether the run completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// FilesChanged counts files whose content changed.
	FilesChanged int

	// NewItems counts newly observed items.
	NewItems int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Spec is the cron expression for the watch loop.
	Spec string

	// RunOnStart triggers one run before the first tick.
	RunOnStart bool

	// HistoryLimit bounds how many task results are kept.
	HistoryLimit int
}

// DefaultSchedulerConfig returns the defaults for the watch loop.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Spec:         "0 */6 * * *",
		RunOnStart:   true,
		HistoryLimit: 200,
	}
}

// TaskIDReconcile is the built-in reconciliation task.
const TaskIDReconcile = "reconcile"
