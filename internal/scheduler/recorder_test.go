package scheduler

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorder_GetBeforeStart_NotOK(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	_, ok, err := r.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecorder_StartThenComplete_RoundTrips(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	startedAt := time.Now()
	require.NoError(t, r.StartExecution(Execution{
		ExecutionID: "exec-1",
		TaskID:      "task-1",
		TaskName:    "say hello",
		Tool:        "filesystem:read_file",
		StartedAt:   startedAt,
	}))

	running, ok, err := r.Get("exec-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ExecutionRunning, running.Status)

	require.NoError(t, r.CompleteExecution("exec-1", ExecutionSuccess, "ok", "", "", startedAt))

	done, ok, err := r.Get("exec-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ExecutionSuccess, done.Status)
	require.Equal(t, "ok", done.Result)
	require.Equal(t, "task-1", done.TaskID, "CompleteExecution must preserve fields written by StartExecution")
}

func TestRecorder_CompleteExecution_AppendsSummaryRow(t *testing.T) {
	baseDir := t.TempDir()
	r, err := NewRecorder(baseDir)
	require.NoError(t, err)

	require.NoError(t, r.CompleteExecution("exec-2", ExecutionFailure, "", "boom", "crash", time.Now()))

	raw, err := os.ReadFile(r.summaryCSV)
	require.NoError(t, err)
	require.Contains(t, string(raw), "exec-2")
	require.Contains(t, string(raw), "failure")
}

func TestRecorder_QueryExecutions_FiltersByTaskAndStatus(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, r.StartExecution(Execution{ExecutionID: "a", TaskID: "t1", StartedAt: time.Now()}))
	require.NoError(t, r.CompleteExecution("a", ExecutionSuccess, "ok", "", "", time.Now()))
	require.NoError(t, r.StartExecution(Execution{ExecutionID: "b", TaskID: "t2", StartedAt: time.Now()}))
	require.NoError(t, r.CompleteExecution("b", ExecutionFailure, "", "boom", "failure", time.Now()))

	results, err := r.QueryExecutions(ExecutionFilter{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ExecutionID)

	results, err = r.QueryExecutions(ExecutionFilter{Status: ExecutionFailure})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].ExecutionID)
}
