package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeRegistrar is an in-memory OSRegistrar for tests that don't need a
// real launchd/crontab entry.
type fakeRegistrar struct {
	registered map[string]string
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[string]string)}
}

func (f *fakeRegistrar) Register(id, cronExpr string) error {
	f.registered[id] = cronExpr
	return nil
}

func (f *fakeRegistrar) Unregister(id string) error {
	delete(f.registered, id)
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cronMgr := NewCronManager(newFakeRegistrar(), zerolog.Nop())
	t.Cleanup(cronMgr.Stop)

	m, err := NewManager(t.TempDir(), cronMgr, func(timingID string) {})
	require.NoError(t, err)
	return m
}

func TestManager_CreateTask_SharesTimingForSameCron(t *testing.T) {
	m := newTestManager(t)

	timingA, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)
	timingB, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)
	require.Equal(t, timingA.ID, timingB.ID, "same cron expression must reuse one Timing")

	require.NoError(t, m.CreateTask(Task{ID: "task-1", Name: "a", TimingID: timingA.ID, ToolIdentifier: "filesystem:read_file"}))
	require.NoError(t, m.CreateTask(Task{ID: "task-2", Name: "b", TimingID: timingA.ID, ToolIdentifier: "filesystem:read_file"}))

	active := m.GetActiveTasksForTiming(timingA.ID)
	require.Len(t, active, 2)
}

func TestManager_CreateTask_RejectsDuplicateName(t *testing.T) {
	m := newTestManager(t)
	timing, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)

	require.NoError(t, m.CreateTask(Task{ID: "task-1", Name: "dup", TimingID: timing.ID, ToolIdentifier: "filesystem:read_file"}))
	err = m.CreateTask(Task{ID: "task-2", Name: "dup", TimingID: timing.ID, ToolIdentifier: "filesystem:read_file"})
	require.Error(t, err)
}

func TestManager_DeleteTask_RemovesEmptyTiming(t *testing.T) {
	m := newTestManager(t)
	timing, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)
	require.NoError(t, m.CreateTask(Task{ID: "task-1", Name: "only", TimingID: timing.ID, ToolIdentifier: "filesystem:read_file"}))

	removedTiming, err := m.DeleteTask("task-1")
	require.NoError(t, err)
	require.True(t, removedTiming)
	require.Empty(t, m.GetActiveTasksForTiming(timing.ID))
}

func TestManager_RecordExecution_FireOnceCompletesTask(t *testing.T) {
	m := newTestManager(t)
	timing, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)
	require.NoError(t, m.CreateTask(Task{ID: "task-1", Name: "once", TimingID: timing.ID, ToolIdentifier: "filesystem:read_file", FireOnce: true}))

	require.NoError(t, m.RecordExecution("task-1", "exec-1"))

	task, ok := m.Task("task-1")
	require.True(t, ok)
	require.Equal(t, TaskCompleted, task.Status)
	require.Empty(t, m.GetActiveTasksForTiming(timing.ID), "a completed task must drop out of the active set")
}

func TestLoadTaskByID_NotFound(t *testing.T) {
	_, err := LoadTaskByID(t.TempDir(), "nonexistent")
	require.Error(t, err)
}

func TestLoadTaskByID_ReadsWithoutSideEffects(t *testing.T) {
	m := newTestManager(t)
	timing, err := m.GetOrCreateTimingGroup("0 9 * * *")
	require.NoError(t, err)
	require.NoError(t, m.CreateTask(Task{ID: "task-1", Name: "n", TimingID: timing.ID, ToolIdentifier: "filesystem:read_file"}))

	baseDir := filepath.Dir(filepath.Dir(m.tasksPath))
	task, err := LoadTaskByID(baseDir, "task-1")
	require.NoError(t, err)
	require.Equal(t, "n", task.Name)
}
