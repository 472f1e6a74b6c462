// Package runtime detects the language runtimes available on the host,
// used by the Transport Factory (spec §4.1) to validate stdio MCP server
// commands before spawning them and to build the PATH overlay child
// processes inherit.
package runtime

import (
	"os/exec"
	"path/filepath"
	"sync"
)

// Info reports which common MCP-server runtimes are reachable via PATH.
// Populated once by Probe and safe for concurrent reads thereafter.
type Info struct {
	Node   bool
	NPX    bool
	Python bool
	UVX    bool
	Bun    bool
}

// Available reports whether name ("node", "npx", "python", "uvx", "bun") was
// found at probe time.
func (i Info) Available(name string) bool {
	switch name {
	case "node":
		return i.Node
	case "npx":
		return i.NPX
	case "python", "python3":
		return i.Python
	case "uvx":
		return i.UVX
	case "bun", "bunx":
		return i.Bun
	default:
		return false
	}
}

var (
	once   sync.Once
	cached Info
)

// Probe synchronously checks exec.LookPath for each known runtime launcher.
// Results are cached process-wide since PATH is not expected to change
// between spawns within a single orchestrator run.
func Probe() Info {
	once.Do(func() {
		cached = Info{
			Node:   lookPath("node"),
			NPX:    lookPath("npx"),
			Python: lookPath("python3") || lookPath("python"),
			UVX:    lookPath("uvx"),
			Bun:    lookPath("bun"),
		}
	})
	return cached
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ResolveCommand checks that command is runnable, either directly via
// exec.LookPath or (for known script launchers) by confirming the
// underlying runtime is present. Returns a descriptive error otherwise so
// the Transport Factory can fail fast with a CommandNotFound classification
// instead of surfacing a bare exec error after spawn.
func ResolveCommand(command string) error {
	if _, err := exec.LookPath(command); err == nil {
		return nil
	}
	info := Probe()
	switch command {
	case "npx", "npm":
		if info.Node {
			return nil
		}
	case "uvx", "uv":
		if info.UVX {
			return nil
		}
	}
	return &NotFoundError{Command: command}
}

// NotFoundError indicates a stdio MCP server's command could not be found
// in PATH nor resolved via a known runtime launcher.
type NotFoundError struct {
	Command string
}

func (e *NotFoundError) Error() string {
	return "command not found in PATH: " + e.Command
}

// interpreterByExt maps a stdio script's file extension to the interpreter
// that runs it and the runtime name (per Info.Available) that must be
// present for that interpreter to work.
var interpreterByExt = map[string]struct {
	interpreter string
	requires    string
}{
	".py":  {"python3", "python"},
	".js":  {"node", "node"},
	".mjs": {"node", "node"},
	".ts":  {"tsx", "node"},
}

// ResolveInterpreter implements the platform runtime mapping spec §4.1 step 2
// requires: a stdio command that is a bare script path (".py", ".js", ".mjs",
// ".ts") is rewritten to run under its interpreter, e.g. "./server.py" with
// no args becomes "python3 ./server.py". Commands that don't match a known
// extension, or whose required runtime isn't available, are returned
// unchanged and left to ResolveCommand/exec to resolve or reject directly.
func ResolveInterpreter(command string, args []string) (string, []string) {
	mapping, ok := interpreterByExt[filepath.Ext(command)]
	if !ok || !Probe().Available(mapping.requires) {
		return command, args
	}
	return mapping.interpreter, append([]string{command}, args...)
}
