package cache

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ncp-run/ncp/internal/fsutil"
)

// SchemaCache persists one file per MCP under <cacheDir>/schemas holding the
// last observed configuration schema (spec §4.6). It is read-heavy and
// non-critical: callers treat a missing or unreadable file as "no prior
// schema", never as an error worth surfacing.
type SchemaCache struct {
	dir string
}

// NewSchemaCache returns a SchemaCache rooted at <cacheDir>/schemas.
func NewSchemaCache(cacheDir string) *SchemaCache {
	return &SchemaCache{dir: filepath.Join(cacheDir, "schemas")}
}

var schemaSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeSchemaName(name string) string {
	sanitized := schemaSanitizer.ReplaceAllString(name, "_")
	return strings.Trim(sanitized, "_")
}

func (s *SchemaCache) pathFor(mcpName string) string {
	return filepath.Join(s.dir, sanitizeSchemaName(mcpName)+".schema.json")
}

// Get returns the last recorded schema for mcpName, or (nil, false) if none
// was ever recorded or the file can't be parsed.
func (s *SchemaCache) Get(mcpName string) (json.RawMessage, bool) {
	data, err := fsutil.ReadFileOrEmpty(s.pathFor(mcpName))
	if err != nil || data == nil {
		return nil, false
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// Put records mcpName's configuration schema, used by add/repair flows to
// detect drift on the next run.
func (s *SchemaCache) Put(mcpName string, schema json.RawMessage) error {
	if err := fsutil.EnsureDir(s.dir); err != nil {
		return err
	}
	return fsutil.AtomicWrite(s.pathFor(mcpName), schema, 0o644)
}

// Remove deletes mcpName's recorded schema, if any. Missing files are not
// an error, consistent with this cache's non-critical nature.
func (s *SchemaCache) Remove(mcpName string) error {
	return fsutil.RemoveIfExists(s.pathFor(mcpName))
}
