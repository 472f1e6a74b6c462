package cache

import (
	"encoding/json"
	"sync"

	"github.com/ncp-run/ncp/internal/fsutil"
)

// ToolMetadata is one tool's full definition, schema included — the detail
// the CSV cache deliberately drops to keep its rows small (spec §4.5).
type ToolMetadata struct {
	ToolID      string          `json:"toolId"`
	ToolName    string          `json:"toolName"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Hash        string          `json:"hash"`
}

// ServerInfo is the subset of an MCP's initialize response the version
// validator (C7) needs.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPMetadata is everything MetadataCache keeps per MCP.
type MCPMetadata struct {
	ServerInfo ServerInfo     `json:"serverInfo"`
	Tools      []ToolMetadata `json:"tools"`
}

// metadataFile is the on-disk shape of all-tools.json.
type metadataFile struct {
	ProfileHash string                 `json:"profileHash"`
	MCPs        map[string]MCPMetadata `json:"mcps"`
}

// MetadataCache is the full-schema JSON cache (C5). Every mutation goes
// through write(tmp) -> fsync -> rename(tmp, final), so a concurrent reader
// sees either the pre- or post-state, never a torn file (spec §4.5).
type MetadataCache struct {
	mu   sync.Mutex
	path string
	data metadataFile
}

// OpenMetadataCache loads (or initializes) the metadata cache at path
// (the orchestrator passes <cacheDir>/all-tools.json).
func OpenMetadataCache(path string) (*MetadataCache, error) {
	m := &MetadataCache{path: path}
	raw, err := fsutil.ReadFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		m.data = metadataFile{MCPs: map[string]MCPMetadata{}}
		return m, nil
	}
	var file metadataFile
	if err := json.Unmarshal(raw, &file); err != nil {
		// Corrupt metadata is non-fatal: rebuild, the CSV cache remains the
		// source of truth for which MCPs are indexed.
		m.data = metadataFile{MCPs: map[string]MCPMetadata{}}
		return m, nil
	}
	if file.MCPs == nil {
		file.MCPs = map[string]MCPMetadata{}
	}
	m.data = file
	return m, nil
}

// NewMetadataSnapshot builds a read-only, unbacked MetadataCache seeded with
// mcps. The version validator (C7) uses it to freeze a "before" view of
// cached versions ahead of a pipeline run that will overwrite the live
// cache's entries for any MCP it reprobes, so the comparison still has the
// pre-run values to compare against once that run has finished. Never call
// a Patch*/Update* method on the result: there is no path to flush to.
func NewMetadataSnapshot(mcps map[string]MCPMetadata) *MetadataCache {
	data := make(map[string]MCPMetadata, len(mcps))
	for k, v := range mcps {
		data[k] = v
	}
	return &MetadataCache{data: metadataFile{MCPs: data}}
}

// Get returns the cached metadata for name, if present.
func (m *MetadataCache) Get(name string) (MCPMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.data.MCPs[name]
	return meta, ok
}

// All returns a copy of every cached MCP's metadata.
func (m *MetadataCache) All() map[string]MCPMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]MCPMetadata, len(m.data.MCPs))
	for k, v := range m.data.MCPs {
		out[k] = v
	}
	return out
}

// PatchAddMCP inserts or replaces an MCP's metadata wholesale (spec §4.5).
func (m *MetadataCache) PatchAddMCP(name string, meta MCPMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.MCPs[name] = meta
	return m.flushLocked()
}

// PatchRemoveMCP deletes an MCP's metadata. The version validator's
// ApplyRefresh resets stale entries with PatchUpdateMCP instead.
func (m *MetadataCache) PatchRemoveMCP(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.MCPs, name)
	return m.flushLocked()
}

// PatchUpdateMCP applies fn to the MCP's existing metadata (no-op if
// absent) and persists the result.
func (m *MetadataCache) PatchUpdateMCP(name string, fn func(MCPMetadata) MCPMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.data.MCPs[name]
	if !ok {
		return nil
	}
	m.data.MCPs[name] = fn(existing)
	return m.flushLocked()
}

// UpdateProfileHash records the profile hash this snapshot was built
// against, independent of any single MCP's metadata.
func (m *MetadataCache) UpdateProfileHash(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.ProfileHash = hash
	return m.flushLocked()
}

func (m *MetadataCache) flushLocked() error {
	return fsutil.AtomicWriteJSON(m.path, m.data)
}
