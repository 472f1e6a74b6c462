package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ncp-run/ncp/internal/ncperr"
	"github.com/ncp-run/ncp/internal/scheduler"
	"github.com/ncp-run/ncp/internal/tool"
)

// SchedulerHandler is the "scheduler" internal MCP: natural-language and
// raw-cron task scheduling over the Task/Timing Manager (spec §4.11-§4.13).
type SchedulerHandler struct {
	manager  *scheduler.Manager
	recorder *scheduler.Recorder
}

// NewSchedulerHandler returns the "scheduler" internal MCP bound to manager
// and recorder.
func NewSchedulerHandler(manager *scheduler.Manager, recorder *scheduler.Recorder) *SchedulerHandler {
	return &SchedulerHandler{manager: manager, recorder: recorder}
}

func (h *SchedulerHandler) Name() string { return "scheduler" }

func (h *SchedulerHandler) CallTool(ctx context.Context, tool string, parameters map[string]any) (string, error) {
	switch tool {
	case "create":
		return h.create(parameters)
	case "delete":
		return h.delete(parameters)
	case "list":
		return h.list(), nil
	case "executions":
		return h.executions(parameters)
	default:
		return "", &ncperr.ToolNotFoundError{Identifier: "scheduler:" + tool}
	}
}

// Tools implements InternalHandler: describes each scheduler operation as a
// tool.Tool value so it is discoverable like any downstream tool.
func (h *SchedulerHandler) Tools() []tool.Tool {
	op := func(name, description string, schema json.RawMessage) tool.Tool {
		return newInternalTool("scheduler", name, description, schema, func(ctx context.Context, params map[string]any) (string, error) {
			return h.CallTool(ctx, name, params)
		})
	}

	return []tool.Tool{
		op("create", "Schedule a tool call to run on a cron or natural-language schedule.", tool.BuildSchema(
			tool.SchemaParam{Name: "name", Type: "string", Description: "Task name.", Required: true},
			tool.SchemaParam{Name: "tool", Type: "string", Description: "Tool identifier to invoke, e.g. 'filesystem:read_file'.", Required: true},
			tool.SchemaParam{Name: "schedule", Type: "string", Description: "Cron expression or natural-language phrase, e.g. 'every day at 9am'.", Required: true},
			tool.SchemaParam{Name: "parameters", Type: "object", Description: "Parameters to pass the scheduled tool call."},
			tool.SchemaParam{Name: "maxExecutions", Type: "integer", Description: "Stop firing after this many executions."},
		)),
		op("delete", "Remove a scheduled task by id.", tool.BuildSchema(
			tool.SchemaParam{Name: "taskId", Type: "string", Description: "Task id.", Required: true},
		)),
		op("list", "List every scheduled task and its last known status.", tool.BuildSchema()),
		op("executions", "Query past executions for a task.", tool.BuildSchema(
			tool.SchemaParam{Name: "taskId", Type: "string", Description: "Task id to filter by."},
			tool.SchemaParam{Name: "status", Type: "string", Description: "Execution status to filter by."},
			tool.SchemaParam{Name: "limit", Type: "integer", Description: "Maximum number of results."},
		)),
	}
}

// create resolves parameters["schedule"] as either a raw cron expression or
// a natural-language phrase (spec §4.12), allocates/reuses a Timing for the
// resolved cron expression, and persists a new Task under it.
func (h *SchedulerHandler) create(parameters map[string]any) (string, error) {
	name, _ := parameters["name"].(string)
	toolIdentifier, _ := parameters["tool"].(string)
	schedulePhrase, _ := parameters["schedule"].(string)
	if name == "" || toolIdentifier == "" || schedulePhrase == "" {
		missing := requiredMissing(parameters, "name", "tool", "schedule")
		return "", &ncperr.ValidationError{Fields: missing}
	}
	toolParams, _ := parameters["parameters"].(map[string]any)

	cronExpr, fireOnce, explanation, err := resolveSchedule(schedulePhrase)
	if err != nil {
		return "", err
	}

	timing, err := h.manager.GetOrCreateTimingGroup(cronExpr)
	if err != nil {
		return "", fmt.Errorf("scheduler: create timing: %w", err)
	}

	task := scheduler.Task{
		ID:             uuid.NewString(),
		Name:           name,
		TimingID:       timing.ID,
		ToolIdentifier: toolIdentifier,
		Parameters:     toolParams,
		FireOnce:       fireOnce,
	}
	if maxExec, ok := parameters["maxExecutions"].(float64); ok && maxExec > 0 {
		task.MaxExecutions = int(maxExec)
	}

	if err := h.manager.CreateTask(task); err != nil {
		return "", fmt.Errorf("scheduler: create task: %w", err)
	}

	return fmt.Sprintf("created task %q (id=%s, cron=%q): %s", name, task.ID, cronExpr, explanation), nil
}

// resolveSchedule tries phrase as a raw cron expression first, then falls
// back to the NL parser (spec §4.12).
func resolveSchedule(phrase string) (cronExpr string, fireOnce bool, explanation string, err error) {
	if res := scheduler.ValidateCron(phrase); res.Valid {
		return phrase, false, "runs on cron schedule " + phrase, nil
	}

	parsed := scheduler.Parse(phrase)
	if !parsed.Success {
		return "", false, "", fmt.Errorf("scheduler: invalid schedule %q: %s", phrase, parsed.Error)
	}
	return parsed.CronExpression, parsed.FireOnce, parsed.Explanation, nil
}

func (h *SchedulerHandler) delete(parameters map[string]any) (string, error) {
	id, _ := parameters["taskId"].(string)
	if id == "" {
		return "", &ncperr.ValidationError{Fields: []string{"taskId"}}
	}
	removedTiming, err := h.manager.DeleteTask(id)
	if err != nil {
		return "", err
	}
	if removedTiming {
		return fmt.Sprintf("deleted task %s (last task for its timing; timing removed)", id), nil
	}
	return fmt.Sprintf("deleted task %s", id), nil
}

func (h *SchedulerHandler) list() string {
	out := ""
	for _, id := range h.manager.TaskIDs() {
		task, ok := h.manager.Task(id)
		if !ok {
			continue
		}
		out += fmt.Sprintf("%s (id=%s): tool=%s status=%s executions=%d\n", task.Name, task.ID, task.ToolIdentifier, task.Status, task.ExecutionCount)
	}
	return out
}

func (h *SchedulerHandler) executions(parameters map[string]any) (string, error) {
	filter := scheduler.ExecutionFilter{}
	filter.TaskID, _ = parameters["taskId"].(string)
	if status, ok := parameters["status"].(string); ok {
		filter.Status = scheduler.ExecutionStatus(status)
	}
	if limit, ok := parameters["limit"].(float64); ok && limit > 0 {
		filter.Limit = int(limit)
	}

	execs, err := h.recorder.QueryExecutions(filter)
	if err != nil {
		return "", err
	}

	out := ""
	for _, e := range execs {
		out += fmt.Sprintf("%s: task=%s status=%s startedAt=%s duration=%s\n", e.ExecutionID, e.TaskName, e.Status, e.StartedAt.Format("2006-01-02T15:04:05Z07:00"), e.Duration)
	}
	return out, nil
}
