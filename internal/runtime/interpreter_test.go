package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveInterpreter_UnknownExtensionIsUnchanged(t *testing.T) {
	command, args := ResolveInterpreter("./server", []string{"--flag"})
	require.Equal(t, "./server", command)
	require.Equal(t, []string{"--flag"}, args)
}

func TestResolveInterpreter_DirectCommandIsUnchanged(t *testing.T) {
	command, args := ResolveInterpreter("npx", []string{"some-mcp-server"})
	require.Equal(t, "npx", command)
	require.Equal(t, []string{"some-mcp-server"}, args)
}

func TestResolveInterpreter_PythonScriptUsesAvailability(t *testing.T) {
	command, args := ResolveInterpreter("./server.py", []string{"--port", "8080"})
	if Probe().Available("python") {
		require.Equal(t, "python3", command)
		require.Equal(t, []string{"./server.py", "--port", "8080"}, args)
	} else {
		require.Equal(t, "./server.py", command)
		require.Equal(t, []string{"--port", "8080"}, args)
	}
}

func TestResolveInterpreter_NodeScriptExtensions(t *testing.T) {
	for _, ext := range []string{".js", ".mjs"} {
		command, args := ResolveInterpreter("./server"+ext, nil)
		if Probe().Available("node") {
			require.Equal(t, "node", command)
			require.Equal(t, []string{"./server" + ext}, args)
		} else {
			require.Equal(t, "./server"+ext, command)
			require.Empty(t, args)
		}
	}
}

func TestResolveInterpreter_TypeScriptRequiresNodeRuntime(t *testing.T) {
	command, args := ResolveInterpreter("./server.ts", nil)
	if Probe().Available("node") {
		require.Equal(t, "tsx", command)
		require.Equal(t, []string{"./server.ts"}, args)
	} else {
		require.Equal(t, "./server.ts", command)
		require.Empty(t, args)
	}
}
