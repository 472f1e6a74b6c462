package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfo_Available_KnownAndUnknownNames(t *testing.T) {
	info := Info{Node: true, Python: true}

	require.True(t, info.Available("node"))
	require.True(t, info.Available("python"))
	require.True(t, info.Available("python3"))
	require.False(t, info.Available("npx"))
	require.False(t, info.Available("nonsense"))
}

func TestResolveCommand_UnresolvableReturnsNotFoundError(t *testing.T) {
	err := ResolveCommand("definitely-not-a-real-command-xyz")
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, err.Error(), "definitely-not-a-real-command-xyz")
}

func TestResolveCommand_DirectlyResolvableCommandSucceeds(t *testing.T) {
	require.NoError(t, ResolveCommand("ls"))
}

func TestProbe_IsCachedAcrossCalls(t *testing.T) {
	first := Probe()
	second := Probe()
	require.Equal(t, first, second)
}
