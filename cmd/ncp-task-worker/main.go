// Command ncp-task-worker is the Scheduler's single-task worker entry point
// (spec §4.14, §6). The Timing Executor spawns one of these per active task
// under a firing Timing; this process connects to its own Orchestrator
// instance, runs exactly one tool call, and writes the authoritative
// Execution record itself before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/logging"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/orchestrator"
	"github.com/ncp-run/ncp/internal/scheduler"
)

// Exit codes per spec §6.
const (
	exitSuccess           = 0
	exitExecutionFailure  = 1
	exitInvalidInvocation = 2
	exitOrchestratorError = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "usage: ncp-task-worker <baseDir> <profile> <taskID> <executionID>")
		return exitInvalidInvocation
	}
	baseDir, profileName, taskID, executionID := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	level := "info"
	if os.Getenv("NCP_DEBUG") == "true" {
		level = "debug"
	}
	logger := logging.NewWithComponent(logging.Config{Level: level}, "task-worker")

	recorder, err := scheduler.NewRecorder(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ncp-task-worker: open recorder: %v\n", err)
		return exitOrchestratorError
	}

	task, err := scheduler.LoadTaskByID(baseDir, taskID)
	if err != nil {
		_ = recorder.CompleteExecution(executionID, scheduler.ExecutionFailure, "", err.Error(), "config", time.Now())
		return exitInvalidInvocation
	}

	profile, err := config.Load(baseDir, profileName)
	if err != nil {
		_ = recorder.CompleteExecution(executionID, scheduler.ExecutionFailure, "", err.Error(), "config", time.Now())
		return exitOrchestratorError
	}

	cacheDir := filepath.Join(baseDir, "cache")
	deps := orchestrator.Deps{
		BaseDir:  baseDir,
		CacheDir: cacheDir,
		Logger:   logger,
		TransportDeps: mcptransport.Dependencies{
			TokenStore: mcptransport.NewFileTokenStore(baseDir),
			Authorizer: mcptransport.NewDeviceFlowAuthorizer(),
		},
	}

	orch, err := orchestrator.New(profile, deps)
	if err != nil {
		_ = recorder.CompleteExecution(executionID, scheduler.ExecutionFailure, "", err.Error(), "config", time.Now())
		return exitOrchestratorError
	}
	defer orch.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), scheduler.DefaultTaskTimeout)
	defer cancel()

	if err := orch.Initialize(ctx); err != nil {
		_ = recorder.CompleteExecution(executionID, scheduler.ExecutionFailure, "", err.Error(), "config", time.Now())
		return exitOrchestratorError
	}

	startedAt := time.Now()
	result, runErr := orch.Run(ctx, task.ToolIdentifier, task.Parameters, nil)
	if runErr != nil {
		errKind := "failure"
		if ctx.Err() != nil {
			errKind = "timeout"
		}
		if err := recorder.CompleteExecution(executionID, scheduler.ExecutionFailure, "", runErr.Error(), errKind, startedAt); err != nil {
			logger.Error().Err(err).Msg("failed to write failure execution record")
		}
		return exitExecutionFailure
	}

	if err := recorder.CompleteExecution(executionID, scheduler.ExecutionSuccess, result, "", "", startedAt); err != nil {
		logger.Error().Err(err).Msg("failed to write success execution record")
		return exitOrchestratorError
	}
	return exitSuccess
}
