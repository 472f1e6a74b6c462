// Package mcpclient implements the MCP Client Wrapper (spec §4.2): a thin,
// transport-agnostic layer over the mcp-go client library exposing the
// operations the Connection Pool and Orchestrator need — connect, list,
// call, close — under consistent timeout and error-wrapping rules.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/ncperr"
)

// clientName/clientVersion identify this orchestrator to every downstream
// MCP server during the initialize handshake.
const (
	clientName    = "ncp"
	clientVersion = "0.1.0"
)

// ToolDefinition mirrors one entry from a server's listTools response.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Resource mirrors one entry from a server's listResources response.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// Prompt mirrors one entry from a server's listPrompts response.
type Prompt struct {
	Name        string
	Description string
}

// Client wraps a single connected mcp-go client for one downstream MCP
// server. It is not safe for concurrent Connect/Close calls, but ListTools/
// CallTool/etc. may be called concurrently once connected — the Connection
// Pool serializes lifecycle operations per server.
type Client struct {
	name       string
	inner      sdkclient.MCPClient
	serverInfo sdkmcp.Implementation
}

// Connect builds a transport for cfg via mcptransport.Build and performs the
// MCP initialize handshake, failing with a wrapped ncperr.ErrTimeout if the
// handshake does not complete within timeout. logger receives the stdio
// child's filtered stderr/log output (spec §4.2).
func Connect(ctx context.Context, name string, cfg config.MCPServerConfig, deps mcptransport.Dependencies, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	filter := newOutputFilter(name).withLogger(logger)
	deps.Logger = filter

	inner, err := mcptransport.Build(connectCtx, name, cfg, deps)
	if err != nil {
		return nil, err
	}

	initReq := sdkmcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = sdkmcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = sdkmcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initReq.Params.Capabilities = sdkmcp.ClientCapabilities{}

	initResult, err := inner.Initialize(connectCtx, initReq)
	if err != nil {
		_ = inner.Close()
		if connectCtx.Err() != nil {
			return nil, fmt.Errorf("mcpclient: initialize %q: %w", name, ncperr.ErrTimeout)
		}
		return nil, fmt.Errorf("mcpclient: initialize %q: %w: %v", name, ncperr.ErrConnection, err)
	}

	return &Client{name: name, inner: inner, serverInfo: initResult.ServerInfo}, nil
}

// ListTools returns every tool the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	result, err := c.inner.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools %q: %w", c.name, err)
	}

	defs := make([]ToolDefinition, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		defs = append(defs, ToolDefinition{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return defs, nil
}

// CallTool invokes name with arguments on the server. meta is forwarded
// verbatim via the request's Meta field so protocol-level keys like
// session_id survive the round trip (spec §4.2).
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any, meta map[string]any) (string, error) {
	req := sdkmcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments
	if len(meta) > 0 {
		req.Params.Meta = &sdkmcp.Meta{AdditionalFields: meta}
	}

	result, err := c.inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool %q on %q: %w: %v", name, c.name, ncperr.ErrToolExecution, err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool %q on %q returned error: %w: %s", name, c.name, ncperr.ErrToolExecution, text)
	}
	return text, nil
}

// ListResources returns every resource the server exposes.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	result, err := c.inner.ListResources(ctx, sdkmcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list resources %q: %w", c.name, err)
	}
	out := make([]Resource, 0, len(result.Resources))
	for _, r := range result.Resources {
		out = append(out, Resource{URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MIMEType})
	}
	return out, nil
}

// ListPrompts returns every prompt the server exposes.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	result, err := c.inner.ListPrompts(ctx, sdkmcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list prompts %q: %w", c.name, err)
	}
	out := make([]Prompt, 0, len(result.Prompts))
	for _, p := range result.Prompts {
		out = append(out, Prompt{Name: p.Name, Description: p.Description})
	}
	return out, nil
}

// ReadResource returns the concatenated text contents of uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	req := sdkmcp.ReadResourceRequest{}
	req.Params.URI = uri

	result, err := c.inner.ReadResource(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcpclient: read resource %q on %q: %w", uri, c.name, err)
	}

	var parts []string
	for _, content := range result.Contents {
		if tc, ok := content.(sdkmcp.TextResourceContents); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ServerInfo returns the server's reported implementation name/version from
// the initialize handshake, recorded into MCPDefinition.serverInfo.
func (c *Client) ServerInfo() sdkmcp.Implementation {
	return c.serverInfo
}

// Close terminates the connection and releases transport resources.
func (c *Client) Close() error {
	return c.inner.Close()
}
