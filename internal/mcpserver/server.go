// Package mcpserver implements the client-facing half of NCP: a single MCP
// endpoint exposing the aggregator's handful of meta-operations (spec §1)
// — find, run, read_resource — backed by the Orchestrator.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/orchestrator"
)

// Server wraps an mcp-go MCPServer exposing NCP's aggregated tool surface.
type Server struct {
	mcpServer *server.MCPServer
	orch      *orchestrator.Orchestrator
	logger    zerolog.Logger
	debug     bool
}

// New constructs a Server, registering find/run/read_resource against orch.
func New(orch *orchestrator.Orchestrator, logger zerolog.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("ncp", "1.0.0", server.WithToolCapabilities(true)),
		orch:      orch,
		logger:    logger,
		debug:     os.Getenv("NCP_DEBUG") == "true",
	}
	s.registerFind()
	s.registerRun()
	s.registerReadResource()
	return s
}

// ServeStdio blocks, serving MCP over stdio until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerFind() {
	tool := mcp.NewTool("find",
		mcp.WithDescription("Search the union of every discovered downstream tool by name and description, ranked by relevance. An empty query returns the first tools in alphabetical order with confidence 1.0."),
		mcp.WithString("query", mcp.Description("Free-text search query. Empty returns an unranked sample.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results. Defaults to 5.")),
		mcp.WithNumber("confidenceThreshold", mcp.Description("Minimum confidence (0-1) a result must reach. Defaults to 0.35.")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := request.RequireString("query")
		args := request.GetArguments()
		limit := 5
		if v, ok := args["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		threshold := 0.0
		if v, ok := args["confidenceThreshold"].(float64); ok {
			threshold = v
		}

		results, err := s.orch.Find(ctx, query, limit, threshold)
		if err != nil {
			return mcp.NewToolResultError(s.formatError(err)), nil
		}
		return mcp.NewToolResultText(formatFindResults(results)), nil
	})
}

func (s *Server) registerRun() {
	tool := mcp.NewTool("run",
		mcp.WithDescription("Invoke one discovered tool by its 'mcp:tool' identifier, routing through the connection pool and validating parameters against the tool's schema first."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Tool identifier, e.g. 'filesystem:read_file'.")),
		mcp.WithObject("parameters", mcp.Description("Arguments to pass to the tool, matching its input schema.")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolID, err := request.RequireString("tool")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args := request.GetArguments()
		parameters, _ := args["parameters"].(map[string]any)

		result, err := s.orch.Run(ctx, toolID, parameters, nil)
		if err != nil {
			return mcp.NewToolResultError(s.formatRunError(toolID, err)), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func (s *Server) registerReadResource() {
	tool := mcp.NewTool("read_resource",
		mcp.WithDescription("Read one resource by its 'mcp:uri' identifier from the owning downstream MCP."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Resource identifier, e.g. 'filesystem:file:///tmp/x.txt'.")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri, err := request.RequireString("uri")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := s.orch.ReadResource(ctx, uri)
		if err != nil {
			return mcp.NewToolResultError(s.formatError(err)), nil
		}
		return mcp.NewToolResultText(content), nil
	})
}

func formatFindResults(results []orchestrator.DiscoveryResult) string {
	if len(results) == 0 {
		return "No matching tools found."
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s:%s (confidence=%.3f): %s\n", r.MCPName, r.ToolName, r.Confidence, r.Description)
	}
	return b.String()
}

// formatRunError renders spec §7's structured run failure shape:
// "Tool '<tool>' failed in MCP '<mcp>': <msg> ... Troubleshooting: ...".
func (s *Server) formatRunError(toolID string, err error) string {
	mcpName, toolName := splitIdentifier(toolID)
	var b strings.Builder
	fmt.Fprintf(&b, "Tool '%s' failed in MCP '%s': %s", toolName, mcpName, err.Error())
	if s.debug {
		fmt.Fprintf(&b, "\nDetails: %+v", err)
	}
	b.WriteString("\n\nTroubleshooting: verify the MCP is healthy (try `find`), check required parameters, and confirm the downstream server is reachable.")
	return b.String()
}

func (s *Server) formatError(err error) string {
	if s.debug {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}

func splitIdentifier(identifier string) (mcpName, toolName string) {
	if idx := strings.Index(identifier, ":"); idx >= 0 {
		return identifier[:idx], identifier[idx+1:]
	}
	return "", identifier
}
