// Package discovery implements the Discovery / Indexing Pipeline (C9) and a
// reference DiscoveryEngine. Spec §1 treats the semantic vector-search
// engine itself as a black-box, 3-method external collaborator; this
// package defines that interface and ships an in-memory implementation
// (substring/token-overlap scoring, no embeddings) good enough to drive the
// orchestrator end to end without a vector database dependency.
package discovery

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// ToolDefinition is what the pipeline hands the engine to index.
type ToolDefinition struct {
	MCPName     string
	ToolID      string // "mcp:tool"
	ToolName    string
	Description string
}

// Result is one match returned by Search, before the orchestrator's
// term-frequency boost (§4.10.1) is applied.
type Result struct {
	MCPName        string
	ToolID         string
	ToolName       string
	Description    string
	BaseConfidence float64
}

// Engine is the 3-method black-box contract spec §1/§4.9 names:
// index fresh (with embeddings, conceptually), index from cache (skip
// embedding regeneration), and search.
type Engine interface {
	IndexMCPTools(ctx context.Context, mcpName string, tools []ToolDefinition) error
	IndexMCPToolsFromCache(ctx context.Context, mcpName string, tools []ToolDefinition) error
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Remover is an optional capability a DiscoveryEngine may implement to drop
// a single MCP's entries without a full reindex, used by the version
// validator (§4.7). Not part of the core 3-method contract since a remote
// vector-search backend may prefer to handle staleness differently.
type Remover interface {
	RemoveMCP(mcpName string)
}

// memoryEngine is the reference Engine: a flat in-memory index scored by
// normalized token overlap between the query and each tool's name plus
// description. It treats IndexMCPTools and IndexMCPToolsFromCache
// identically since it never computes embeddings in the first place — the
// distinction exists in the interface for a real vector-backed
// implementation to exploit, not for this one.
type memoryEngine struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition // toolID -> definition
}

// NewMemoryEngine returns the reference in-memory DiscoveryEngine.
func NewMemoryEngine() Engine {
	return &memoryEngine{tools: make(map[string]ToolDefinition)}
}

func (e *memoryEngine) IndexMCPTools(ctx context.Context, mcpName string, tools []ToolDefinition) error {
	return e.index(mcpName, tools)
}

func (e *memoryEngine) IndexMCPToolsFromCache(ctx context.Context, mcpName string, tools []ToolDefinition) error {
	return e.index(mcpName, tools)
}

func (e *memoryEngine) index(mcpName string, tools []ToolDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, def := range e.tools {
		if def.MCPName == mcpName {
			delete(e.tools, id)
		}
	}
	for _, t := range tools {
		e.tools[t.ToolID] = t
	}
	return nil
}

// RemoveMCP drops every indexed tool belonging to mcpName, used when a
// version refresh (§4.7) invalidates an MCP's metadata.
func (e *memoryEngine) RemoveMCP(mcpName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, def := range e.tools {
		if def.MCPName == mcpName {
			delete(e.tools, id)
		}
	}
}

func (e *memoryEngine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := tokenize(query)
	results := make([]Result, 0, len(e.tools))
	for _, t := range e.tools {
		conf := scoreTool(t, tokens)
		if conf <= 0 {
			continue
		}
		results = append(results, Result{
			MCPName:        t.MCPName,
			ToolID:         t.ToolID,
			ToolName:       t.ToolName,
			Description:    t.Description,
			BaseConfidence: conf,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].BaseConfidence != results[j].BaseConfidence {
			return results[i].BaseConfidence > results[j].BaseConfidence
		}
		return results[i].ToolID < results[j].ToolID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// scoreTool computes a base confidence in [0, 1] from fractional token
// overlap against the tool name and description, name weighted higher.
func scoreTool(t ToolDefinition, tokens []string) float64 {
	if len(tokens) == 0 {
		return 1.0
	}
	name := strings.ToLower(t.ToolName)
	desc := strings.ToLower(t.Description)

	var nameHits, descHits int
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			nameHits++
		}
		if strings.Contains(desc, tok) {
			descHits++
		}
	}
	if nameHits == 0 && descHits == 0 {
		return 0
	}
	score := 0.6*float64(nameHits)/float64(len(tokens)) + 0.4*float64(descHits)/float64(len(tokens))
	if score > 1 {
		score = 1
	}
	return score
}
