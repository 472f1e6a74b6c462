package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryEngine_SearchRanksByTokenOverlap(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Description: "reads a file from disk"},
		{MCPName: "filesystem", ToolID: "filesystem:write_file", ToolName: "write_file", Description: "writes a file to disk"},
	}))

	results, err := e.Search(ctx, "read file", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "filesystem:read_file", results[0].ToolID, "the tool whose name matches the query should rank first")
}

func TestMemoryEngine_IndexMCPTools_ReplacesPriorToolsForSameMCP(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()

	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:old_tool", ToolName: "old_tool", Description: "stale"},
	}))
	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:new_tool", ToolName: "new_tool", Description: "fresh"},
	}))

	results, err := e.Search(ctx, "old_tool", 5)
	require.NoError(t, err)
	require.Empty(t, results, "re-indexing an MCP must drop its previous tools")
}

func TestMemoryEngine_RemoveMCP(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()
	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Description: "reads a file"},
	}))

	remover, ok := e.(Remover)
	require.True(t, ok, "memoryEngine must implement Remover")
	remover.RemoveMCP("filesystem")

	results, err := e.Search(ctx, "read_file", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryEngine_Search_EmptyQueryMatchesEverything(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()
	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Description: "reads a file"},
	}))

	results, err := e.Search(ctx, "", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].BaseConfidence)
}

func TestMemoryEngine_Search_RespectsLimit(t *testing.T) {
	e := NewMemoryEngine()
	ctx := context.Background()
	require.NoError(t, e.IndexMCPTools(ctx, "filesystem", []ToolDefinition{
		{MCPName: "filesystem", ToolID: "filesystem:a", ToolName: "a", Description: "file tool a"},
		{MCPName: "filesystem", ToolID: "filesystem:b", ToolName: "b", Description: "file tool b"},
	}))

	results, err := e.Search(ctx, "file", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
