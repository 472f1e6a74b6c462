// Package mcptransport implements the Transport Factory (spec §4.1): given
// an MCPServerConfig it builds a connected mcp-go client for the selected
// transport (stdio, SSE, streamable HTTP), resolving auth headers, PATH
// overlays, and the silent-child-environment rule along the way.
package mcptransport

import (
	"context"
	"fmt"

	sdkclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/ncperr"
	"github.com/ncp-run/ncp/internal/runtime"
)

// StreamableReconnectPolicy is the fixed reconnection policy spec §4.1
// mandates for streamableHttp transports: initial 1s, growth 1.5x, cap 30s,
// max 5 retries. Exposed so mcpclient can drive reconnect-on-failure with
// internal/backoff using the same shape.
var StreamableReconnectPolicy = struct {
	Initial    float64 // seconds
	Growth     float64
	Cap        float64 // seconds
	MaxRetries int
}{Initial: 1, Growth: 1.5, Cap: 30, MaxRetries: 5}

// CommandLogger receives stray log lines a stdio child writes outside the
// JSON-RPC frame stream, keeping them out of stdout where they would
// corrupt MCP framing (spec §4.2's stdout/stderr filter requirement). Any
// logger satisfying this shape (e.g. a zerolog adapter) may be supplied.
type CommandLogger interface {
	Errorf(format string, v ...any)
	Infof(format string, v ...any)
}

// Dependencies bundles the side-channel collaborators the factory needs:
// OAuth token resolution, and the stdout/stderr filter logger. All fields
// may be nil — bearer/oauth auth without a cached token then fails fast
// instead of hanging on a device flow, and stdio children fall back to
// discarding their log stream rather than filtering it.
type Dependencies struct {
	TokenStore TokenStore
	Authorizer DeviceAuthorizer
	Logger     CommandLogger
}

// Build constructs and starts (but does not MCP-initialize) a transport for
// name per cfg, returning the raw mcp-go client. The caller (mcpclient)
// performs the Initialize handshake so the two concerns spec splits across
// C1/C2 stay in their own packages.
func Build(ctx context.Context, name string, cfg config.MCPServerConfig, deps Dependencies) (sdkclient.MCPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsRemote() {
		return buildRemote(ctx, name, cfg, deps)
	}
	return buildStdio(ctx, name, cfg, deps)
}

func buildStdio(ctx context.Context, name string, cfg config.MCPServerConfig, deps Dependencies) (sdkclient.MCPClient, error) {
	command, args := runtime.ResolveInterpreter(cfg.Command, cfg.Args)
	if err := runtime.ResolveCommand(command); err != nil {
		return nil, fmt.Errorf("mcptransport: %q: %w", name, err)
	}

	env := buildChildEnv(cfg.Env)

	var cli sdkclient.MCPClient
	var err error
	if deps.Logger != nil {
		cli, err = sdkclient.NewStdioMCPClientWithOptions(command, env, args, transport.WithCommandLogger(deps.Logger))
	} else {
		cli, err = sdkclient.NewStdioMCPClient(command, env, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("mcptransport: start stdio server %q: %w", name, err)
	}
	return cli, nil
}

func buildRemote(ctx context.Context, name string, cfg config.MCPServerConfig, deps Dependencies) (sdkclient.MCPClient, error) {
	headers, err := buildAuthHeaders(ctx, name, cfg.Auth, deps.TokenStore, deps.Authorizer)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: auth for %q: %w", name, err)
	}

	switch cfg.EffectiveTransport() {
	case config.TransportSSE:
		var opts []transport.ClientOption
		if len(headers) > 0 {
			opts = append(opts, transport.WithHeaders(headers))
		}
		cli, err := sdkclient.NewSSEMCPClient(cfg.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("mcptransport: create SSE client %q: %w", name, err)
		}
		if err := cli.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcptransport: start SSE client %q: %w", name, err)
		}
		return cli, nil

	case config.TransportStreamableHTTP:
		if cfg.SessionID != "" {
			if headers == nil {
				headers = make(map[string]string, 1)
			}
			headers["Mcp-Session-Id"] = cfg.SessionID
		}
		var opts []transport.StreamableHTTPCOption
		if len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}
		cli, err := sdkclient.NewStreamableHttpClient(cfg.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("mcptransport: create streamable HTTP client %q: %w", name, err)
		}
		if err := cli.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcptransport: start streamable HTTP client %q: %w", name, err)
		}
		return cli, nil

	default:
		return nil, ncperr.ConfigError("mcp %q: unsupported transport %q", name, cfg.EffectiveTransport())
	}
}
