package mcptransport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncp-run/ncp/internal/config"
)

func TestBuild_InvalidConfigFailsValidationBeforeSpawning(t *testing.T) {
	_, err := Build(context.Background(), "broken", config.MCPServerConfig{}, Dependencies{})
	require.Error(t, err)
}

func TestBuild_UnresolvableStdioCommandFails(t *testing.T) {
	_, err := Build(context.Background(), "ghost", config.MCPServerConfig{Command: "definitely-not-a-real-command-xyz"}, Dependencies{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost")
}

func TestBuild_RemoteUnsupportedTransportFails(t *testing.T) {
	_, err := Build(context.Background(), "remote", config.MCPServerConfig{URL: "https://example.com", Transport: "carrier-pigeon"}, Dependencies{})
	require.Error(t, err)
}
