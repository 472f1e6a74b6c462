package mcptransport

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildChildEnv_IncludesSilentEnvAndOverlay(t *testing.T) {
	env := buildChildEnv(map[string]string{"API_KEY": "secret"})

	require.Contains(t, env, "MCP_SILENT=true")
	require.Contains(t, env, "NO_COLOR=true")
	require.Contains(t, env, "API_KEY=secret")
}

func TestBuildChildEnv_OverlayWinsOverProcessEnv(t *testing.T) {
	require.NoError(t, os.Setenv("NCP_TEST_ENV_OVERRIDE", "original"))
	defer os.Unsetenv("NCP_TEST_ENV_OVERRIDE")

	env := buildChildEnv(map[string]string{"NCP_TEST_ENV_OVERRIDE": "overridden"})
	require.Contains(t, env, "NCP_TEST_ENV_OVERRIDE=overridden")
	for _, kv := range env {
		require.False(t, kv == "NCP_TEST_ENV_OVERRIDE=original")
	}
}

func TestBuildChildEnv_AppendsPlatformPathDirs(t *testing.T) {
	env := buildChildEnv(nil)

	var pathValue string
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			pathValue = strings.TrimPrefix(kv, "PATH=")
		}
	}
	require.NotEmpty(t, pathValue)
	for _, dir := range platformPathDirs() {
		require.Contains(t, pathValue, dir)
	}
}
