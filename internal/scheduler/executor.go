package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTaskTimeout is the per-child hard limit spec §4.14 names.
const DefaultTaskTimeout = 10 * time.Minute

// gracePeriod is how long a child gets to exit after a graceful stop
// signal before the executor sends a hard kill (spec §4.14 step 5).
const gracePeriod = 5 * time.Second

// TaskResult is one child's outcome, part of the parent's settle-all
// collection.
type TaskResult struct {
	TaskID      string
	ExecutionID string
	Success     bool
	ErrorType   string
	ErrorMsg    string
}

// RunSummary is the Timing Executor's return shape (spec §4.14 step 6).
type RunSummary struct {
	ExecutedTasks   int
	SuccessfulTasks int
	FailedTasks     int
	Results         []TaskResult
}

// Executor is the Timing Executor (C14): the process-isolation core. Each
// active task under a firing Timing is run in its own child process; one
// child crashing, timing out, or exiting non-zero never cancels or
// influences its siblings.
type Executor struct {
	manager    *Manager
	recorder   *Recorder
	workerPath string
	baseDir    string
	profile    string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewExecutor constructs an Executor. workerPath is the single-task worker
// binary, invoked as "<workerPath> <baseDir> <profile> <taskID>
// <executionID>" — baseDir/profile let the worker rebuild its own
// Orchestrator instance from scratch, matching spec §4.14's "each child
// connects to the orchestrator internally" requirement.
func NewExecutor(manager *Manager, recorder *Recorder, workerPath, baseDir, profile string, logger zerolog.Logger) *Executor {
	return &Executor{manager: manager, recorder: recorder, workerPath: workerPath, baseDir: baseDir, profile: profile, timeout: DefaultTaskTimeout, logger: logger}
}

// Run implements spec §4.14: load the Timing's active tasks, spawn one
// child per task, collect results under a settle-all semantic.
func (e *Executor) Run(ctx context.Context, timingID string) RunSummary {
	tasks := e.manager.GetActiveTasksForTiming(timingID)
	if len(tasks) == 0 {
		return RunSummary{}
	}

	var wg sync.WaitGroup
	results := make([]TaskResult, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			results[i] = e.runOne(ctx, task)
		}(i, task)
	}
	wg.Wait()

	summary := RunSummary{ExecutedTasks: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			summary.SuccessfulTasks++
		} else {
			summary.FailedTasks++
		}
	}
	return summary
}

// runOne spawns the worker and waits for it. Per spec §9 ("error transport
// across process boundary"), the worker child is the one that writes its
// own Execution record (it runs the tool, so only it knows the real
// result); the exit code here is informational. The parent backstops only
// the case the child never got to write a completed record at all — a
// crash or a hard-timeout kill — by writing a failure record itself so
// every task still produces exactly one summary row per firing.
func (e *Executor) runOne(ctx context.Context, task Task) TaskResult {
	executionID := uuid.NewString()
	startedAt := time.Now()

	if err := e.recorder.StartExecution(Execution{
		ExecutionID: executionID,
		TaskID:      task.ID,
		TaskName:    task.Name,
		Tool:        task.ToolIdentifier,
		StartedAt:   startedAt,
	}); err != nil {
		e.logger.Error().Err(err).Str("task", task.ID).Msg("failed to write running execution record")
	}

	exitCode, runErr := e.spawnAndWait(ctx, task.ID, executionID)

	result := TaskResult{TaskID: task.ID, ExecutionID: executionID}

	existing, ok, getErr := e.recorder.Get(executionID)
	if getErr == nil && ok && existing.Status != ExecutionRunning {
		result.Success = existing.Status == ExecutionSuccess
		result.ErrorType = existing.ErrorType
		result.ErrorMsg = existing.ErrorMessage
	} else {
		errType := "crash"
		errMsg := fmt.Sprintf("worker exited with code %d", exitCode)
		if runErr != nil && isTimeoutErr(runErr) {
			errType = "timeout"
			errMsg = runErr.Error()
		} else if runErr != nil {
			errMsg = runErr.Error()
		}
		result.ErrorType = errType
		result.ErrorMsg = errMsg
		if err := e.recorder.CompleteExecution(executionID, ExecutionFailure, "", errMsg, errType, startedAt); err != nil {
			e.logger.Error().Err(err).Str("task", task.ID).Msg("failed to backstop execution record")
		}
	}

	if err := e.manager.RecordExecution(task.ID, executionID); err != nil {
		e.logger.Error().Err(err).Str("task", task.ID).Msg("failed to record execution on task")
	}
	return result
}

// timeoutError marks spawnAndWait's result as a hard-timeout kill, so
// runOne can classify it as errorType=timeout rather than a generic
// failure (spec §4.14 step 5).
type timeoutError struct{ err error }

func (t *timeoutError) Error() string { return t.err.Error() }
func isTimeoutErr(err error) bool     { _, ok := err.(*timeoutError); return ok }

// spawnAndWait runs the worker as a separate OS process, enforcing the
// hard timeout with a graceful-stop-then-hard-kill sequence.
func (e *Executor) spawnAndWait(ctx context.Context, taskID, executionID string) (exitCode int, err error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.Command(e.workerPath, e.baseDir, e.profile, taskID, executionID)

	if startErr := cmd.Start(); startErr != nil {
		return -1, startErr
	}

	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	select {
	case waitErr := <-waitErrCh:
		return exitCodeOf(cmd, waitErr), waitErr
	case <-runCtx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case waitErr := <-waitErrCh:
			return exitCodeOf(cmd, waitErr), &timeoutError{err: runCtx.Err()}
		case <-time.After(gracePeriod):
			_ = cmd.Process.Kill()
			<-waitErrCh
			return -1, &timeoutError{err: runCtx.Err()}
		}
	}
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
