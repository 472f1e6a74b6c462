package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ncp-run/ncp/internal/ncperr"
	"github.com/ncp-run/ncp/internal/skill"
	"github.com/ncp-run/ncp/internal/tool"
)

// NCPHandler is the "ncp" internal MCP: introspection tools over the
// orchestrator's own state (spec §4.10's "register internal MCPs... for
// ncp, scheduler, skills").
type NCPHandler struct {
	orch *Orchestrator
}

// NewNCPHandler returns the "ncp" internal MCP bound to orch.
func NewNCPHandler(orch *Orchestrator) *NCPHandler { return &NCPHandler{orch: orch} }

func (h *NCPHandler) Name() string { return "ncp" }

func (h *NCPHandler) CallTool(ctx context.Context, tool string, parameters map[string]any) (string, error) {
	switch tool {
	case "find":
		query, _ := parameters["query"].(string)
		limit := 5
		if v, ok := parameters["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		results, err := h.orch.Find(ctx, query, limit, 0)
		if err != nil {
			return "", err
		}
		return formatResults(results), nil
	case "health":
		return h.renderHealth(), nil
	default:
		return "", &ncperr.ToolNotFoundError{Identifier: "ncp:" + tool}
	}
}

// Tools implements InternalHandler: describes "find" and "health" as
// tool.Tool values so they are discoverable like any downstream tool.
func (h *NCPHandler) Tools() []tool.Tool {
	return []tool.Tool{
		newInternalTool("ncp", "find",
			"Search the union of every discovered tool, internal or downstream, by name and description.",
			tool.BuildSchema(
				tool.SchemaParam{Name: "query", Type: "string", Description: "Free-text search query."},
				tool.SchemaParam{Name: "limit", Type: "integer", Description: "Maximum number of results."},
			),
			func(ctx context.Context, params map[string]any) (string, error) {
				return h.CallTool(ctx, "find", params)
			},
		),
		newInternalTool("ncp", "health",
			"Report the last known health status of every configured downstream MCP.",
			tool.BuildSchema(),
			func(ctx context.Context, params map[string]any) (string, error) {
				return h.CallTool(ctx, "health", params)
			},
		),
	}
}

func (h *NCPHandler) renderHealth() string {
	out := ""
	for name := range h.orch.profile.MCPServers {
		status := h.orch.healthMon.Status(name)
		out += fmt.Sprintf("%s: healthy=%v lastError=%q\n", name, status.Healthy, status.LastError)
	}
	return out
}

func formatResults(results []DiscoveryResult) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("%s (confidence=%.3f): %s\n", r.ToolID, r.Confidence, r.Description)
	}
	return out
}

// SkillsHandler is the "skills" internal MCP: CRUD over persisted prompt
// skills, mutated atomically through the state manager's per-resource lock
// (spec §4.10.3 names "skill" explicitly as one of the mutated resource
// kinds).
type SkillsHandler struct {
	store *skill.Store
	state *StateManager
}

// NewSkillsHandler returns the "skills" internal MCP, loading every
// persisted skill's prompt into the shared state manager.
func NewSkillsHandler(store *skill.Store, state *StateManager) *SkillsHandler {
	h := &SkillsHandler{store: store, state: state}
	for _, sk := range store.List() {
		state.SetSkillPrompt(sk.Name, sk.Prompt)
	}
	return h
}

func (h *SkillsHandler) Name() string { return "skills" }

func (h *SkillsHandler) CallTool(ctx context.Context, tool string, parameters map[string]any) (string, error) {
	switch tool {
	case "add":
		return h.mutate("skill", parameters, func() error {
			name, _ := parameters["name"].(string)
			prompt, _ := parameters["prompt"].(string)
			desc, _ := parameters["description"].(string)
			if name == "" || prompt == "" {
				return &ncperr.ValidationError{Fields: requiredMissing(parameters, "name", "prompt")}
			}
			if err := h.store.Add(skill.Skill{Name: name, Prompt: prompt, Description: desc}); err != nil {
				return err
			}
			h.state.SetSkillPrompt(name, prompt)
			return nil
		})
	case "update":
		return h.mutate("skill", parameters, func() error {
			name, _ := parameters["name"].(string)
			prompt, _ := parameters["prompt"].(string)
			desc, _ := parameters["description"].(string)
			if name == "" || prompt == "" {
				return &ncperr.ValidationError{Fields: requiredMissing(parameters, "name", "prompt")}
			}
			if err := h.store.Update(skill.Skill{Name: name, Prompt: prompt, Description: desc}); err != nil {
				return err
			}
			h.state.SetSkillPrompt(name, prompt)
			return nil
		})
	case "remove":
		return h.mutate("skill", parameters, func() error {
			name, _ := parameters["name"].(string)
			if name == "" {
				return &ncperr.ValidationError{Fields: []string{"name"}}
			}
			if err := h.store.Remove(name); err != nil {
				return err
			}
			h.state.RemoveSkillPrompt(name)
			return nil
		})
	case "get":
		name, _ := parameters["name"].(string)
		prompt, ok := h.state.SkillPrompt(name)
		if !ok {
			return "", &ncperr.ToolNotFoundError{Identifier: "skills:" + name}
		}
		return prompt, nil
	case "list":
		out := ""
		for _, name := range h.state.SkillNames() {
			out += name + "\n"
		}
		return out, nil
	default:
		return "", &ncperr.ToolNotFoundError{Identifier: "skills:" + tool}
	}
}

// Tools implements InternalHandler: describes each skill CRUD operation as
// a tool.Tool value so it is discoverable like any downstream tool.
func (h *SkillsHandler) Tools() []tool.Tool {
	nameParam := tool.SchemaParam{Name: "name", Type: "string", Description: "Skill name.", Required: true}
	promptParam := tool.SchemaParam{Name: "prompt", Type: "string", Description: "Skill prompt body.", Required: true}
	descParam := tool.SchemaParam{Name: "description", Type: "string", Description: "Human-readable summary."}

	op := func(name, description string, schema json.RawMessage) tool.Tool {
		return newInternalTool("skills", name, description, schema, func(ctx context.Context, params map[string]any) (string, error) {
			return h.CallTool(ctx, name, params)
		})
	}

	return []tool.Tool{
		op("add", "Persist a new named prompt skill.", tool.BuildSchema(nameParam, promptParam, descParam)),
		op("update", "Overwrite an existing named prompt skill.", tool.BuildSchema(nameParam, promptParam, descParam)),
		op("remove", "Delete a named prompt skill.", tool.BuildSchema(tool.SchemaParam{Name: "name", Type: "string", Description: "Skill name.", Required: true})),
		op("get", "Fetch one skill's prompt by name.", tool.BuildSchema(tool.SchemaParam{Name: "name", Type: "string", Description: "Skill name.", Required: true})),
		op("list", "List every persisted skill's name.", tool.BuildSchema()),
	}
}

// mutate runs fn under the state manager's per-resource lock keyed by
// {kind, name}, relying on Mutate's snapshot/restore for atomicity. name is
// read from parameters["name"] since every skill mutation is keyed by it.
func (h *SkillsHandler) mutate(kind string, parameters map[string]any, fn func() error) (string, error) {
	name, _ := parameters["name"].(string)
	err := h.state.Mutate(kind, name, nil, fn)
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func requiredMissing(parameters map[string]any, fields ...string) []string {
	var missing []string
	for _, f := range fields {
		v, ok := parameters[f]
		if !ok || v == nil {
			missing = append(missing, f)
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
