package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ncp-run/ncp/internal/ncperr"
)

// Load reads and validates the profile named name from
// <baseDir>/profiles/<name>.json.
//
// The profile file loader proper is named as an external collaborator in
// spec §1 (out of scope for this module); this is a minimal stand-in
// sufficient to make the orchestrator runnable end to end, not a build-out
// of that subsystem's full behavior (e.g. remote profile sources, schema
// migration).
func Load(baseDir, name string) (Profile, error) {
	path := filepath.Join(baseDir, "profiles", name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: read profile %q: %v", ncperr.ErrConfig, name, err)
	}

	var raw struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
		Metadata   map[string]json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, ncperr.ConfigError("profile %q: invalid JSON: %v", name, err)
	}

	profile := Profile{
		Name:       name,
		MCPServers: raw.MCPServers,
		Metadata:   raw.Metadata,
	}
	if profile.MCPServers == nil {
		profile.MCPServers = map[string]MCPServerConfig{}
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
