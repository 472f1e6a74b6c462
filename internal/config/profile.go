// Package config defines the Profile and MCPServerConfig shapes the
// orchestrator loads, plus the hashing rules the cache subsystem uses for
// invalidation (spec §3, §4.4).
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ncp-run/ncp/internal/ncperr"
)

// AuthKind identifies the authentication scheme for a remote MCP server.
type AuthKind string

const (
	AuthBearer AuthKind = "bearer"
	AuthAPIKey AuthKind = "apiKey"
	AuthBasic  AuthKind = "basic"
	AuthOAuth  AuthKind = "oauth"
)

// Auth holds the secret material for one of the supported auth kinds. Only
// the fields relevant to Kind are populated; the rest are zero.
type Auth struct {
	Kind AuthKind `json:"kind"`

	Token string `json:"token,omitempty"` // bearer / oauth access token

	APIKeyHeader string `json:"apiKeyHeader,omitempty"`
	APIKeyValue  string `json:"apiKeyValue,omitempty"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// OAuthClientID/OAuthTokenURL drive the device-flow fetch-or-refresh
	// path when Token is empty or expired.
	OAuthClientID string `json:"oauthClientId,omitempty"`
	OAuthTokenURL string `json:"oauthTokenUrl,omitempty"`
}

// Transport names the wire protocol for a remote MCPServerConfig.
type Transport string

const (
	TransportSSE            Transport = "sse"
	TransportStreamableHTTP Transport = "streamableHttp"
)

// MCPServerConfig describes one downstream MCP server. Exactly one of
// Command or URL must be set (spec §3 invariant); Validate enforces this.
type MCPServerConfig struct {
	// stdio form
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// remote form
	URL       string    `json:"url,omitempty"`
	Transport Transport `json:"transport,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Auth      *Auth     `json:"auth,omitempty"`
}

// IsStdio reports whether this config spawns a child process.
func (c MCPServerConfig) IsStdio() bool { return c.Command != "" }

// IsRemote reports whether this config dials a remote URL.
func (c MCPServerConfig) IsRemote() bool { return c.URL != "" }

// EffectiveTransport returns the configured Transport, defaulting to
// streamableHttp per spec §4.1 when a remote config omits it.
func (c MCPServerConfig) EffectiveTransport() Transport {
	if c.Transport == "" {
		return TransportStreamableHTTP
	}
	return c.Transport
}

// Validate enforces the exactly-one-of(command, url) invariant.
func (c MCPServerConfig) Validate() error {
	switch {
	case c.Command != "" && c.URL != "":
		return ncperr.ConfigError("must have either command or url, not both")
	case c.Command == "" && c.URL == "":
		return ncperr.ConfigError("must have either command or url")
	}
	return nil
}

// Profile is a named collection of MCP server configs the orchestrator
// aggregates, plus free-form metadata carried through untouched.
type Profile struct {
	Name       string                      `json:"name"`
	MCPServers map[string]MCPServerConfig  `json:"mcpServers"`
	Metadata   map[string]json.RawMessage  `json:"metadata,omitempty"`
}

// Validate checks every server config in the profile.
func (p Profile) Validate() error {
	for name, cfg := range p.MCPServers {
		if err := cfg.Validate(); err != nil {
			return ncperr.ConfigError("mcp %q: %v", name, err)
		}
	}
	return nil
}

// Hash computes SHA-256(JSON(profile.mcpServers)) with map keys sorted, the
// value stored as CacheHeader.profileHash and compared on load (spec §3).
func (p Profile) Hash() string {
	return hashServers(p.MCPServers)
}

// ConfigHash computes the per-MCP hash stored in CacheHeader.indexedMCPs,
// used to detect that a single server's config changed without invalidating
// the whole cache (spec §3, §4.4).
func ConfigHash(cfg MCPServerConfig) string {
	data, _ := json.Marshal(cfg)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashServers(servers map[string]MCPServerConfig) string {
	// encoding/json writes map keys in sorted order.
	data, _ := json.Marshal(servers)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type orderedEntry struct {
	Name   string           `json:"name"`
	Config MCPServerConfig `json:"config"`
}
