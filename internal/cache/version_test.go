package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeedsRefresh_MatchingVersionIsNotStale(t *testing.T) {
	meta := NewMetadataSnapshot(map[string]MCPMetadata{
		"filesystem": {ServerInfo: ServerInfo{Name: "filesystem", Version: "1.0.0"}},
	})
	stale := NeedsRefresh(meta, []StaleCheck{{MCPName: "filesystem", LiveVersion: "1.0.0"}})
	require.Empty(t, stale)
}

func TestNeedsRefresh_MismatchedVersionIsStale(t *testing.T) {
	meta := NewMetadataSnapshot(map[string]MCPMetadata{
		"filesystem": {ServerInfo: ServerInfo{Name: "filesystem", Version: "1.0.0"}},
	})
	stale := NeedsRefresh(meta, []StaleCheck{{MCPName: "filesystem", LiveVersion: "1.1.0"}})
	require.Equal(t, []string{"filesystem"}, stale)
}

func TestNeedsRefresh_UnknownCachedVersionSkipsComparison(t *testing.T) {
	meta := NewMetadataSnapshot(map[string]MCPMetadata{
		"legacy": {ServerInfo: ServerInfo{Name: "legacy", Version: unknownVersion}},
	})
	stale := NeedsRefresh(meta, []StaleCheck{{MCPName: "legacy", LiveVersion: "2.0.0"}})
	require.Empty(t, stale)
}

func TestNeedsRefresh_MissingFromCacheIsStale(t *testing.T) {
	meta := NewMetadataSnapshot(map[string]MCPMetadata{})
	stale := NeedsRefresh(meta, []StaleCheck{{MCPName: "new-mcp", LiveVersion: "1.0.0"}})
	require.Equal(t, []string{"new-mcp"}, stale)
}

func TestApplyRefresh_ClearsMetadataAndForcesReindex(t *testing.T) {
	dir := t.TempDir()
	csv, err := Open(dir, "default")
	require.NoError(t, err)
	require.NoError(t, csv.SetProfileHash("hash-1"))
	require.NoError(t, csv.AppendBatch("filesystem", "cfg-hash", []ToolRow{
		{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Description: "reads a file", Hash: "h1"},
	}))
	require.True(t, csv.IsMCPIndexed("filesystem", "cfg-hash"))

	meta, err := OpenMetadataCache(filepath.Join(dir, "all-tools.json"))
	require.NoError(t, err)
	require.NoError(t, meta.UpdateProfileHash("hash-1"))
	require.NoError(t, meta.PatchAddMCP("filesystem", MCPMetadata{
		ServerInfo: ServerInfo{Name: "filesystem", Version: "1.0.0"},
		Tools:      []ToolMetadata{{ToolID: "filesystem:read_file", ToolName: "read_file"}},
	}))

	require.NoError(t, ApplyRefresh(meta, csv, []string{"filesystem"}))

	got, ok := meta.Get("filesystem")
	require.True(t, ok, "PatchUpdateMCP clears the entry in place rather than removing the key")
	require.Empty(t, got.ServerInfo.Version)
	require.Empty(t, got.Tools)
	require.False(t, csv.IsMCPIndexed("filesystem", "cfg-hash"), "clearing the indexed hash forces a re-probe")
	require.Equal(t, "hash-1", meta.data.ProfileHash, "profile hash must survive a per-MCP refresh")
}

func TestApplyRefresh_UnknownNameIsNoop(t *testing.T) {
	dir := t.TempDir()
	csv, err := Open(dir, "default")
	require.NoError(t, err)
	meta, err := OpenMetadataCache(filepath.Join(dir, "all-tools.json"))
	require.NoError(t, err)

	require.NoError(t, ApplyRefresh(meta, csv, []string{"never-cached"}))
	_, ok := meta.Get("never-cached")
	require.False(t, ok)
}
