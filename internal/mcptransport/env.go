package mcptransport

import (
	"fmt"
	"os"
	"runtime"
)

// silentEnv is merged into every stdio child's environment to suppress
// banners and color codes that would otherwise corrupt the MCP stdio
// frame stream (spec §4.1).
var silentEnv = map[string]string{
	"MCP_SILENT": "true",
	"QUIET":      "true",
	"NO_COLOR":   "true",
}

// platformPathDirs lists the standard directories this OS keeps common
// CLI tools in, appended to PATH so stdio servers installed outside the
// orchestrator's own process PATH are still found (spec §4.1).
func platformPathDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/opt/homebrew/bin", "/usr/local/bin"}
	case "windows":
		return []string{os.Getenv("SystemRoot") + `\System32`}
	default:
		return []string{"/usr/local/bin", "/usr/bin"}
	}
}

func pathSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// buildChildEnv merges the process environment, the platform PATH overlay,
// silentEnv, and the profile's per-MCP env overlay into a []string suitable
// for exec.Cmd.Env / transport.NewStdio.
func buildChildEnv(overlay map[string]string) []string {
	base := os.Environ()
	merged := make(map[string]string, len(base)+len(overlay)+len(silentEnv))

	for _, kv := range base {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	sep := pathSeparator()
	path := merged["PATH"]
	for _, dir := range platformPathDirs() {
		if path == "" {
			path = dir
			continue
		}
		path = path + sep + dir
	}
	merged["PATH"] = path

	for k, v := range silentEnv {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
