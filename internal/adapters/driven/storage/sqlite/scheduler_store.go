package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, spec, source_ids, last_run, next_run, last_error
		FROM scheduled_tasks WHERE id = ?
	`, taskID)

	task, err := scanScheduledTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Per interface: return nil and no error if not found
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SaveTask persists a task's state.
// Creates or updates the task based on ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	sourceIDs, err := json.Marshal(task.SourceIDs)
	if err != nil {
		return fmt.Errorf("marshalling source ids: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, spec, source_ids, last_run, next_run, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			spec = excluded.spec,
			source_ids = excluded.source_ids,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error
	`, task.ID, task.Spec, string(sourceIDs),
		nullMillis(task.LastRun.UnixMilli(), task.LastRun.IsZero()),
		nullMillis(task.NextRun.UnixMilli(), task.NextRun.IsZero()),
		nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// RecordResult logs a run result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.RunID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_results (run_id, task_id, started_at, ended_at, success, error, files_changed, new_items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.RunID, result.TaskID,
		toMillis(result.StartedAt), toMillis(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error),
		result.FilesChanged, result.NewItems)
	if err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// GetTaskHistory returns recent results for a task, or for every task when
// taskID is empty. Results are ordered by start time descending.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, task_id, started_at, ended_at, success, error, files_changed, new_items
		FROM task_results
		WHERE ? = '' OR task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, taskID, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanTaskResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task history: %w", err)
	}

	return results, nil
}

// PruneHistory removes old task results beyond the retention limit.
// Keeps the most recent 'keep' results per task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) as rn
				FROM task_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

// scanScheduledTask scans a single scheduled task row.
func scanScheduledTask(row *sql.Row) (*domain.ScheduledTask, error) {
	var (
		task             domain.ScheduledTask
		sourceIDs        string
		lastRun, nextRun sql.NullInt64
		lastError        sql.NullString
	)

	if err := row.Scan(&task.ID, &task.Spec, &sourceIDs, &lastRun, &nextRun, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	if err := json.Unmarshal([]byte(sourceIDs), &task.SourceIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling source ids: %w", err)
	}
	task.LastRun = fromMillis(lastRun.Int64)
	task.NextRun = fromMillis(nextRun.Int64)
	if lastError.Valid {
		task.LastError = lastError.String
	}

	return &task, nil
}

// scanTaskResult scans a task result from *sql.Rows.
func scanTaskResult(rows *sql.Rows) (*domain.TaskResult, error) {
	var (
		result             domain.TaskResult
		startedAt, endedAt int64
		success            int
		errMsg             sql.NullString
	)

	if err := rows.Scan(&result.RunID, &result.TaskID, &startedAt, &endedAt,
		&success, &errMsg, &result.FilesChanged, &result.NewItems); err != nil {
		return nil, fmt.Errorf("scanning task result: %w", err)
	}

	result.StartedAt = fromMillis(startedAt)
	result.EndedAt = fromMillis(endedAt)
	result.Success = success == 1
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}

// nullMillis returns nil for unset timestamps.
func nullMillis(ms int64, unset bool) any {
	if unset {
		return nil
	}
	return ms
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
