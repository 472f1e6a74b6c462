// Command ncp is the aggregating orchestrator's MCP-facing entry point
// (spec §1, §6): it loads a profile, brings up the Orchestrator core plus
// the Scheduler, registers the three internal MCPs (ncp, scheduler,
// skills), and serves find/run/read_resource over stdio MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/logging"
	"github.com/ncp-run/ncp/internal/mcpserver"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/orchestrator"
	"github.com/ncp-run/ncp/internal/scheduler"
	"github.com/ncp-run/ncp/internal/skill"
	pkgconfig "github.com/ncp-run/ncp/pkg/config"
)

func main() {
	pkgconfig.LoadEnv()

	profileName := os.Getenv("NCP_PROFILE")
	if profileName == "" {
		profileName = "default"
	}
	baseDir := os.Getenv("NCP_HOME")
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "ncp: could not resolve home directory:", err)
			os.Exit(3)
		}
		baseDir = filepath.Join(home, ".ncp")
	}

	level := "info"
	debug := os.Getenv("NCP_DEBUG") == "true"
	if debug {
		level = "debug"
	}
	logger := logging.New(logging.Config{Level: level})

	if err := run(baseDir, profileName, logger); err != nil {
		logger.Error().Err(err).Msg("ncp: fatal")
		os.Exit(3)
	}
}

func run(baseDir, profileName string, logger zerolog.Logger) error {
	profile, err := config.Load(baseDir, profileName)
	if err != nil {
		return fmt.Errorf("load profile %q: %w", profileName, err)
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
		OnPoolEvent: func(event, mcpName string) {
			logger.Debug().Str("event", event).Str("mcp", mcpName).Msg("pool event")
		},
	}

	orch, err := orchestrator.New(profile, deps)
	if err != nil {
		return fmt.Errorf("construct orchestrator: %w", err)
	}
	defer orch.Cleanup()

	ctx := context.Background()
	if err := orch.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}
	logger.Info().Str("profile", profileName).Msg("orchestrator initialized")

	if err := wireInternalMCPs(orch, baseDir, profileName, logger); err != nil {
		return fmt.Errorf("wire internal MCPs: %w", err)
	}

	srv := mcpserver.New(orch, logger)
	logger.Info().Msg("serving MCP on stdio")
	return srv.ServeStdio()
}

// wireInternalMCPs registers ncp, skills, and scheduler against orch
// (spec §4.10's "internal MCPs"). The scheduler half additionally brings
// up the Cron Manager, OS registrar, and Timing Executor so persisted
// schedules fire for the lifetime of this process.
func wireInternalMCPs(orch *orchestrator.Orchestrator, baseDir, profileName string, logger zerolog.Logger) error {
	orch.RegisterInternalMCP(orchestrator.NewNCPHandler(orch))

	skillStore, err := skill.Open(baseDir)
	if err != nil {
		return fmt.Errorf("open skill store: %w", err)
	}
	orch.RegisterInternalMCP(orchestrator.NewSkillsHandler(skillStore, orch.State()))

	workerPath, err := taskWorkerPath()
	if err != nil {
		logger.Warn().Err(err).Msg("ncp-task-worker not found alongside ncp; scheduler tool execution will fail until it is installed")
	}

	registrar, err := scheduler.NewOSRegistrar(workerPath)
	if err != nil {
		logger.Warn().Err(err).Msg("scheduler OS registration unavailable on this platform")
		return nil
	}
	cronLogger := logger.With().Str("component", "scheduler").Logger()
	cronMgr := scheduler.NewCronManager(registrar, cronLogger)

	var executor *scheduler.Executor
	manager, err := scheduler.NewManager(baseDir, cronMgr, func(timingID string) {
		if executor == nil {
			return
		}
		summary := executor.Run(context.Background(), timingID)
		logger.Info().Str("timing", timingID).Int("executed", summary.ExecutedTasks).
			Int("succeeded", summary.SuccessfulTasks).Int("failed", summary.FailedTasks).Msg("timing fired")
	})
	if err != nil {
		return fmt.Errorf("start task/timing manager: %w", err)
	}

	recorder, err := scheduler.NewRecorder(baseDir)
	if err != nil {
		return fmt.Errorf("open execution recorder: %w", err)
	}
	executor = scheduler.NewExecutor(manager, recorder, workerPath, baseDir, profileName, logger)

	orch.RegisterInternalMCP(orchestrator.NewSchedulerHandler(manager, recorder))
	return nil
}

// taskWorkerPath locates the ncp-task-worker binary alongside this one.
func taskWorkerPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(filepath.Dir(self), "ncp-task-worker")
	if _, err := exec.LookPath(candidate); err == nil {
		return candidate, nil
	}
	if path, err := exec.LookPath("ncp-task-worker"); err == nil {
		return path, nil
	}
	return candidate, fmt.Errorf("ncp-task-worker not found at %q or on PATH", candidate)
}
