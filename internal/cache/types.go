// Package cache implements the CSV Cache (C4), Metadata Cache (C5), Schema
// Cache (C6), and Version-Aware Validator (C7) described in spec §4.4-4.7:
// the crash-safe, profile-hash-invalidated persistence layer backing tool
// discovery.
package cache

import "time"

// NCPVersion is compared against CacheHeader.NCPVersion on load; a mismatch
// clears FailedMCPs since a code change may have fixed whatever caused them
// (spec §4.4).
const NCPVersion = "0.1.0"

// ErrorKind classifies why a probe failed, mirroring ncperr.ErrorKind so the
// cache package does not need to import the orchestrator's error taxonomy
// for this narrow enum.
type ErrorKind string

const (
	ErrorTimeout           ErrorKind = "timeout"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorCommandNotFound   ErrorKind = "command_not_found"
	ErrorUnknown           ErrorKind = "unknown"
)

// FailedMCP records a persisted retry schedule for an MCP that failed to
// probe (spec §3).
type FailedMCP struct {
	LastAttempt   time.Time `json:"lastAttempt"`
	ErrorType     ErrorKind `json:"errorType"`
	ErrorMessage  string    `json:"errorMessage"`
	AttemptCount  int       `json:"attemptCount"`
	NextRetry     time.Time `json:"nextRetry"`
}

// CacheHeader is the CSV's sidecar JSON (spec §3).
type CacheHeader struct {
	Version     int                   `json:"version"`
	ProfileName string                `json:"profileName"`
	ProfileHash string                `json:"profileHash"`
	NCPVersion  string                `json:"ncpVersion"`
	CreatedAt   time.Time             `json:"createdAt"`
	LastUpdated time.Time             `json:"lastUpdated"`
	TotalMCPs   int                   `json:"totalMCPs"`
	TotalTools  int                   `json:"totalTools"`
	IndexedMCPs map[string]string     `json:"indexedMCPs"`
	FailedMCPs  map[string]FailedMCP  `json:"failedMCPs"`
}

// ToolRow is one CSV row: mcp_name,tool_id,tool_name,description,hash,timestamp.
type ToolRow struct {
	MCPName     string
	ToolID      string
	ToolName    string
	Description string
	Hash        string
	Timestamp   time.Time
}

// backoffSteps is the fixed [1h, 6h, 24h] retry schedule from spec §4.4 and
// §8's boundary-behavior law (4th+ failure still waits 24h).
var backoffSteps = []time.Duration{time.Hour, 6 * time.Hour, 24 * time.Hour}
