package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncp-run/ncp/internal/orchestrator"
)

func TestSplitIdentifier(t *testing.T) {
	mcpName, toolName := splitIdentifier("filesystem:read_file")
	require.Equal(t, "filesystem", mcpName)
	require.Equal(t, "read_file", toolName)

	mcpName, toolName = splitIdentifier("bare")
	require.Equal(t, "", mcpName)
	require.Equal(t, "bare", toolName)
}

func TestFormatFindResults_Empty(t *testing.T) {
	require.Equal(t, "No matching tools found.", formatFindResults(nil))
}

func TestFormatFindResults_ListsEach(t *testing.T) {
	results := []orchestrator.DiscoveryResult{
		{MCPName: "filesystem", ToolName: "read_file", Confidence: 0.91, Description: "reads a file"},
	}
	out := formatFindResults(results)
	require.Contains(t, out, "filesystem:read_file")
	require.Contains(t, out, "reads a file")
}

func TestFormatRunError_IncludesTroubleshooting(t *testing.T) {
	s := &Server{debug: false}
	out := s.formatRunError("filesystem:read_file", errConnRefused{})
	require.Contains(t, out, "Tool 'read_file' failed in MCP 'filesystem'")
	require.Contains(t, out, "Troubleshooting")
	require.NotContains(t, out, "Details:")
}

func TestFormatRunError_DebugIncludesDetails(t *testing.T) {
	s := &Server{debug: true}
	out := s.formatRunError("filesystem:read_file", errConnRefused{})
	require.Contains(t, out, "Details:")
}

type errConnRefused struct{}

func (errConnRefused) Error() string { return "connection refused" }
