package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
)

func TestRunsCmd(t *testing.T) {
	runs := &mockRuns{results: []domain.TaskResult{
		{RunID: "r2", TaskID: domain.TaskIDReconcile, StartedAt: testTime, EndedAt: testTime.Add(2 * time.Second),
			Success: true, FilesChanged: 3, NewItems: 7},
		{RunID: "r1", TaskID: domain.TriggerManual, StartedAt: testTime.Add(-time.Hour), EndedAt: testTime.Add(-time.Hour),
			Success: false, Error: "2 files failed"},
	}}

	out, err := execute(t, &Services{Runs: runs}, "runs")

	require.NoError(t, err)
	assert.Equal(t, 10, runs.gotLimit)
	assert.Empty(t, runs.gotTask)
	assert.Contains(t, out, "STARTED")
	assert.Regexp(t, `reconcile\s+2s\s+3\s+7\s+ok`, out)
	assert.Regexp(t, `manual\s+0s\s+0\s+0\s+error: 2 files failed`, out)
}

func TestRunsCmd_Flags(t *testing.T) {
	runs := &mockRuns{}

	out, err := execute(t, &Services{Runs: runs}, "runs", "-n", "3", "--task", "manual")

	require.NoError(t, err)
	assert.Equal(t, 3, runs.gotLimit)
	assert.Equal(t, "manual", runs.gotTask)
	assert.Contains(t, out, "No runs recorded.")
}

func TestRunsCmd_JSON(t *testing.T) {
	runs := &mockRuns{results: []domain.TaskResult{{RunID: "r1", TaskID: "manual", Success: true}}}

	out, err := execute(t, &Services{Runs: runs}, "runs", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"r1"`)
}

func TestRunsCmd_Errors(t *testing.T) {
	_, err := execute(t, &Services{Runs: &mockRuns{err: errors.New("boom")}}, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading run history")

	_, err = execute(t, &Services{}, "runs")
	require.ErrorIs(t, err, errNotConfigured)
}
