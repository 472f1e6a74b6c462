// Package ncperr defines the error taxonomy shared by every orchestrator
// component. Each kind is a sentinel wrapped with context via fmt.Errorf's
// %w, so callers can branch with errors.Is/errors.As without string
// matching.
package ncperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap one of these with %w to produce a concrete error.
var (
	ErrConfig             = errors.New("config error")
	ErrMCPNotFound        = errors.New("mcp or tool not found")
	ErrValidation         = errors.New("validation error")
	ErrTimeout            = errors.New("timeout")
	ErrConnection         = errors.New("connection error")
	ErrToolExecution      = errors.New("tool execution error")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrCacheCorruption    = errors.New("cache corruption")
)

// ConfigError wraps ErrConfig with a message describing the invalid shape.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// ToolNotFoundError carries up to three suggested tool names, per spec §4.10.
type ToolNotFoundError struct {
	Identifier  string
	Suggestions []string
}

func (e *ToolNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("tool %q not found", e.Identifier)
	}
	return fmt.Sprintf("tool %q not found, did you mean: %v", e.Identifier, e.Suggestions)
}

func (e *ToolNotFoundError) Unwrap() error { return ErrMCPNotFound }

// MCPNotFoundError is returned when an MCP name has no entry in the pool's
// definitions, and carries the available MCP names for diagnostics.
type MCPNotFoundError struct {
	Name      string
	Available []string
}

func (e *MCPNotFoundError) Error() string {
	return fmt.Sprintf("mcp %q not found (available: %v)", e.Name, e.Available)
}

func (e *MCPNotFoundError) Unwrap() error { return ErrMCPNotFound }

// ValidationError names the parameters that are missing or otherwise invalid.
type ValidationError struct {
	Tool   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Missing required parameters: %s", joinFields(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}

// ErrorKind classifies a connection/probe failure for FailedMCP bookkeeping
// (§4.4 markFailed, §7 taxonomy).
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindCommandNotFound   ErrorKind = "command_not_found"
	KindUnknown           ErrorKind = "unknown"
)

// ClassifyError maps an arbitrary error into one of the four FailedMCP
// error kinds recognized by the CSV cache and discovery pipeline.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrConnection):
		msg := err.Error()
		if containsAny(msg, "not found", "no such file", "executable file not found") {
			return KindCommandNotFound
		}
		return KindConnectionRefused
	default:
		msg := err.Error()
		switch {
		case containsAny(msg, "timeout", "deadline exceeded"):
			return KindTimeout
		case containsAny(msg, "connection refused", "econnrefused"):
			return KindConnectionRefused
		case containsAny(msg, "not found", "no such file", "executable file not found", "enoent"):
			return KindCommandNotFound
		default:
			return KindUnknown
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) && indexFold(s, sub) >= 0 {
			return true
		}
	}
	return false
}

// indexFold is a tiny case-insensitive substring search; avoids pulling in
// strings.ToLower allocations for every classification call on the hot path.
func indexFold(s, substr string) int {
	ls, lsub := len(s), len(substr)
	if lsub == 0 {
		return 0
	}
	for i := 0; i+lsub <= ls; i++ {
		matched := true
		for j := 0; j < lsub; j++ {
			a, b := s[i+j], substr[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
