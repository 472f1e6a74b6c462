package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/ncp-run/ncp/internal/tool"
)

// internalToolAdapter exposes one internal MCP sub-operation as a tool.Tool,
// so every internal MCP's sub-operations can be registered into a
// tool.Registry and discovered through find alongside downstream tools
// (spec §4.10's "pure in-process handlers", reusing the teacher's Tool
// interface for description/schema). Execution still flows through the
// owning InternalHandler's CallTool dispatch; this adapter is a description
// wrapper around that call, not a second execution path.
type internalToolAdapter struct {
	name        string
	description string
	schema      json.RawMessage
	call        func(ctx context.Context, params map[string]any) (string, error)
}

func newInternalTool(mcpName, opName, description string, schema json.RawMessage, call func(ctx context.Context, params map[string]any) (string, error)) tool.Tool {
	return &internalToolAdapter{
		name:        mcpName + ":" + opName,
		description: description,
		schema:      schema,
		call:        call,
	}
}

func (a *internalToolAdapter) Name() string                { return a.name }
func (a *internalToolAdapter) Description() string         { return a.description }
func (a *internalToolAdapter) InputSchema() json.RawMessage { return a.schema }

func (a *internalToolAdapter) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var params map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return tool.ToolResult{}, err
		}
	}
	out, err := a.call(ctx, params)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, err
	}
	return tool.ToolResult{Output: out}, nil
}

// Init/Close: internal tools own no resources beyond what their handler
// already manages, so both are no-ops.
func (a *internalToolAdapter) Init(ctx context.Context) error { return nil }
func (a *internalToolAdapter) Close() error                   { return nil }
