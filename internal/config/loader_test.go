package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, baseDir, name, body string) {
	t.Helper()
	dir := filepath.Join(baseDir, "profiles")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
}

func TestLoad_MissingFileReturnsConfigError(t *testing.T) {
	_, err := Load(t.TempDir(), "missing")
	require.Error(t, err)
}

func TestLoad_InvalidJSONReturnsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "broken", `{not json`)

	_, err := Load(dir, "broken")
	require.Error(t, err)
}

func TestLoad_InvalidServerConfigFails(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad-server", `{"mcpServers": {"filesystem": {}}}`)

	_, err := Load(dir, "bad-server")
	require.Error(t, err)
}

func TestLoad_ValidProfileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "dev", `{
		"mcpServers": {
			"filesystem": {"command": "npx", "args": ["-y", "mcp-filesystem"]}
		}
	}`)

	p, err := Load(dir, "dev")
	require.NoError(t, err)
	require.Equal(t, "dev", p.Name)
	require.Len(t, p.MCPServers, 1)
	require.Equal(t, "npx", p.MCPServers["filesystem"].Command)
}

func TestLoad_NilMCPServersBecomesEmptyMap(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "empty", `{}`)

	p, err := Load(dir, "empty")
	require.NoError(t, err)
	require.NotNil(t, p.MCPServers)
	require.Empty(t, p.MCPServers)
}
