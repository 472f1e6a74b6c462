package scheduler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ncp-run/ncp/internal/fsutil"
)

// TaskStatus is a Task's lifecycle state.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// Task is one scheduled tool invocation (spec §4.13).
type Task struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	TimingID        string         `json:"timingId"`
	ToolIdentifier  string         `json:"toolIdentifier"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Status          TaskStatus     `json:"status"`
	FireOnce        bool           `json:"fireOnce,omitempty"`
	MaxExecutions   int            `json:"maxExecutions,omitempty"`
	ExecutionCount  int            `json:"executionCount"`
	LastExecutionID string         `json:"lastExecutionId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Timing is one cron-expression-keyed OS scheduler registration shared by
// every Task whose schedule resolves to the same expression.
type Timing struct {
	ID             string    `json:"id"`
	CronExpression string    `json:"cronExpression"`
	TaskIDs        []string  `json:"taskIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

type tasksFile struct {
	Version int             `json:"version"`
	Tasks   map[string]Task `json:"tasks"`
}

type timingsFile struct {
	Version int               `json:"version"`
	Timings map[string]Timing `json:"timings"`
}

// Manager is the Task/Timing Manager (C13): persists tasks.json and
// timings.json, and registers/unregisters OS scheduler entries through a
// CronManager (spec §4.13).
type Manager struct {
	mu sync.Mutex

	tasksPath   string
	timingsPath string

	tasks   tasksFile
	timings timingsFile

	cron       *CronManager
	onFire     func(timingID string)
	workerPath string
}

// NewManager loads (or initializes) tasks.json/timings.json under
// <baseDir>/scheduler, and registers an OS-level entry via cron for every
// Timing already on disk (so a restarted orchestrator doesn't lose
// schedules). onFire is called with a Timing's id each time its cron
// expression fires.
func NewManager(baseDir string, cronMgr *CronManager, onFire func(timingID string)) (*Manager, error) {
	dir := filepath.Join(baseDir, "scheduler")
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, err
	}

	m := &Manager{
		tasksPath:   filepath.Join(dir, "tasks.json"),
		timingsPath: filepath.Join(dir, "timings.json"),
		cron:        cronMgr,
		onFire:      onFire,
	}

	if err := m.load(); err != nil {
		return nil, err
	}

	for id, timing := range m.timings.Timings {
		tid := id
		if err := m.cron.Register(tid, timing.CronExpression, func() { m.onFire(tid) }); err != nil {
			return nil, fmt.Errorf("scheduler: re-register timing %q: %w", tid, err)
		}
	}

	return m, nil
}

func (m *Manager) load() error {
	rawTasks, err := fsutil.ReadFileOrEmpty(m.tasksPath)
	if err != nil {
		return err
	}
	if rawTasks == nil {
		m.tasks = tasksFile{Version: 1, Tasks: map[string]Task{}}
	} else if err := json.Unmarshal(rawTasks, &m.tasks); err != nil || m.tasks.Tasks == nil {
		m.tasks = tasksFile{Version: 1, Tasks: map[string]Task{}}
	}

	rawTimings, err := fsutil.ReadFileOrEmpty(m.timingsPath)
	if err != nil {
		return err
	}
	if rawTimings == nil {
		m.timings = timingsFile{Version: 1, Timings: map[string]Timing{}}
	} else if err := json.Unmarshal(rawTimings, &m.timings); err != nil || m.timings.Timings == nil {
		m.timings = timingsFile{Version: 1, Timings: map[string]Timing{}}
	}
	return nil
}

func (m *Manager) flushTasksLocked() error {
	return fsutil.AtomicWriteJSON(m.tasksPath, m.tasks)
}

func (m *Manager) flushTimingsLocked() error {
	return fsutil.AtomicWriteJSON(m.timingsPath, m.timings)
}

// GetOrCreateTimingGroup looks up an existing Timing by cron expression,
// otherwise allocates a new one and registers a single OS scheduler entry.
func (m *Manager) GetOrCreateTimingGroup(cronExpr string) (Timing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.timings.Timings {
		if t.CronExpression == cronExpr {
			return t, nil
		}
	}

	timing := Timing{
		ID:             uuid.NewString(),
		CronExpression: cronExpr,
		TaskIDs:        []string{},
		CreatedAt:      time.Now(),
	}
	tid := timing.ID
	if err := m.cron.Register(tid, cronExpr, func() { m.onFire(tid) }); err != nil {
		return Timing{}, err
	}

	m.timings.Timings[timing.ID] = timing
	if err := m.flushTimingsLocked(); err != nil {
		_ = m.cron.Unregister(tid)
		delete(m.timings.Timings, timing.ID)
		return Timing{}, err
	}
	return timing, nil
}

// CreateTask rejects a duplicate id or name, appends task.ID to its
// Timing's TaskIDs, and persists both files.
func (m *Manager) CreateTask(task Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks.Tasks[task.ID]; exists {
		return fmt.Errorf("scheduler: duplicate task id %q", task.ID)
	}
	for _, existing := range m.tasks.Tasks {
		if existing.Name == task.Name {
			return fmt.Errorf("scheduler: duplicate task name %q", task.Name)
		}
	}

	timing, ok := m.timings.Timings[task.TimingID]
	if !ok {
		return fmt.Errorf("scheduler: unknown timing %q", task.TimingID)
	}

	if task.Status == "" {
		task.Status = TaskActive
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	timing.TaskIDs = append(timing.TaskIDs, task.ID)
	m.timings.Timings[task.TimingID] = timing
	m.tasks.Tasks[task.ID] = task

	if err := m.flushTasksLocked(); err != nil {
		return err
	}
	return m.flushTimingsLocked()
}

// GetActiveTasksForTiming returns every task under timingID whose status is
// active.
func (m *Manager) GetActiveTasksForTiming(timingID string) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	timing, ok := m.timings.Timings[timingID]
	if !ok {
		return nil
	}
	var out []Task
	for _, id := range timing.TaskIDs {
		if task, ok := m.tasks.Tasks[id]; ok && task.Status == TaskActive {
			out = append(out, task)
		}
	}
	return out
}

// DeleteTask removes a task from its Timing; if the Timing becomes empty,
// deletes the Timing and its OS entry atomically. A failure to remove the
// OS entry restores the Timing so no orphan state results.
func (m *Manager) DeleteTask(id string) (removedTimingGroup bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks.Tasks[id]
	if !ok {
		return false, fmt.Errorf("scheduler: task %q not found", id)
	}

	timing, ok := m.timings.Timings[task.TimingID]
	if !ok {
		return false, fmt.Errorf("scheduler: timing %q not found for task %q", task.TimingID, id)
	}

	remaining := removeString(timing.TaskIDs, id)
	originalTiming := timing
	timing.TaskIDs = remaining

	delete(m.tasks.Tasks, id)

	if len(remaining) > 0 {
		m.timings.Timings[task.TimingID] = timing
		if err := m.flushTasksLocked(); err != nil {
			m.tasks.Tasks[id] = task
			return false, err
		}
		if err := m.flushTimingsLocked(); err != nil {
			m.tasks.Tasks[id] = task
			m.timings.Timings[task.TimingID] = originalTiming
			return false, err
		}
		return false, nil
	}

	// Last task for this Timing: remove the Timing and its OS entry
	// together. A failed OS unregister rolls everything back.
	if err := m.cron.Unregister(task.TimingID); err != nil {
		m.tasks.Tasks[id] = task
		return false, fmt.Errorf("scheduler: unregister timing %q: %w", task.TimingID, err)
	}

	delete(m.timings.Timings, task.TimingID)
	if err := m.flushTasksLocked(); err != nil {
		m.tasks.Tasks[id] = task
		m.timings.Timings[task.TimingID] = originalTiming
		return false, err
	}
	if err := m.flushTimingsLocked(); err != nil {
		m.tasks.Tasks[id] = task
		m.timings.Timings[task.TimingID] = originalTiming
		return false, err
	}
	return true, nil
}

// RecordExecution increments a task's executionCount and lastExecutionId,
// marking it completed once fireOnce is set or maxExecutions is reached.
func (m *Manager) RecordExecution(taskID, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks.Tasks[taskID]
	if !ok {
		return fmt.Errorf("scheduler: task %q not found", taskID)
	}

	task.ExecutionCount++
	task.LastExecutionID = executionID
	if task.FireOnce || (task.MaxExecutions > 0 && task.ExecutionCount >= task.MaxExecutions) {
		task.Status = TaskCompleted
	}
	m.tasks.Tasks[taskID] = task
	return m.flushTasksLocked()
}

// Task returns a task by id.
func (m *Manager) Task(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks.Tasks[id]
	return t, ok
}

// TaskIDs returns every known task id, for listing.
func (m *Manager) TaskIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.tasks.Tasks))
	for id := range m.tasks.Tasks {
		ids = append(ids, id)
	}
	return ids
}

// LoadTaskByID reads tasks.json directly (no CronManager, no OS
// re-registration) and returns one task by id. Used by the single-task
// worker process, which only needs to look up what to run — it must not
// carry the side effects of a full Manager construction.
func LoadTaskByID(baseDir, taskID string) (Task, error) {
	path := filepath.Join(baseDir, "scheduler", "tasks.json")
	raw, err := fsutil.ReadFileOrEmpty(path)
	if err != nil {
		return Task{}, err
	}
	if raw == nil {
		return Task{}, fmt.Errorf("scheduler: task %q not found", taskID)
	}
	var file tasksFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Task{}, fmt.Errorf("scheduler: parse tasks.json: %w", err)
	}
	task, ok := file.Tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("scheduler: task %q not found", taskID)
	}
	return task, nil
}

func removeString(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
