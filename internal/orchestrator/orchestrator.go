// Package orchestrator implements the Orchestrator (spec §4.10): the
// aggregation core that ties the cache, discovery, pool, and health
// components together behind find/run/readResource.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/cache"
	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/discovery"
	"github.com/ncp-run/ncp/internal/health"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/ncperr"
	"github.com/ncp-run/ncp/internal/pool"
	"github.com/ncp-run/ncp/internal/tool"
	"github.com/ncp-run/ncp/internal/util"
)

// DiscoveryResult is one match returned from find, after the term-frequency
// boost and health filtering have been applied.
type DiscoveryResult struct {
	MCPName     string
	ToolID      string
	ToolName    string
	Description string
	Confidence  float64
}

// InternalHandler serves one internal MCP's tool calls in-process — no
// transport, no child process (spec §4.10 "pure in-process handlers").
// Tools lists the handler's sub-operations as tool.Tool values so they can
// be registered into the orchestrator's tool.Registry and surfaced by find
// the same way a downstream MCP's tools are.
type InternalHandler interface {
	Name() string
	CallTool(ctx context.Context, toolName string, parameters map[string]any) (string, error)
	Tools() []tool.Tool
}

// Orchestrator is the C10 aggregation core.
type Orchestrator struct {
	baseDir     string
	profile     config.Profile
	profileHash string

	csv          *cache.CSVCache
	meta         *cache.MetadataCache
	schemas      *cache.SchemaCache
	engine       discovery.Engine
	pipeline     *discovery.Pipeline
	healthMon    *health.Monitor
	pool         *pool.Pool
	state        *StateManager
	enhancer     SearchEnhancer
	internalMCPs map[string]InternalHandler
	toolRegistry *tool.Registry

	logger zerolog.Logger
}

// Deps bundles everything New needs beyond the profile itself.
type Deps struct {
	BaseDir       string
	CacheDir      string
	TransportDeps mcptransport.Dependencies
	PoolConfig    pool.Config
	Logger        zerolog.Logger
	OnPoolEvent   func(event, mcpName string)
}

// New constructs an Orchestrator. Call Initialize before use.
func New(profile config.Profile, deps Deps) (*Orchestrator, error) {
	csvCache, err := cache.Open(deps.CacheDir, profile.Name)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open csv cache: %w", err)
	}
	metaCache, err := cache.OpenMetadataCache(filepath.Join(deps.CacheDir, "all-tools.json"))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open metadata cache: %w", err)
	}
	schemaCache := cache.NewSchemaCache(deps.CacheDir)
	engine := discovery.NewMemoryEngine()
	prober := discovery.NewProber(deps.TransportDeps, deps.Logger)
	p := pool.DefaultConfig()
	if deps.PoolConfig.MaxConnections != 0 {
		p = deps.PoolConfig
	}
	pipeline := discovery.NewPipeline(csvCache, metaCache, engine, prober, p.QuickProbeTimeout, p.SlowProbeTimeout, deps.Logger)

	o := &Orchestrator{
		baseDir:      deps.BaseDir,
		profile:      profile,
		csv:          csvCache,
		meta:         metaCache,
		schemas:      schemaCache,
		engine:       engine,
		pipeline:     pipeline,
		healthMon:    health.NewMonitor(),
		state:        NewStateManager(deps.Logger),
		enhancer:     NewTableSearchEnhancer(),
		internalMCPs: make(map[string]InternalHandler),
		toolRegistry: tool.NewRegistry(deps.Logger),
		logger:       deps.Logger,
	}

	lookup := func(name string) (config.MCPServerConfig, bool, []string) {
		cfg, ok := o.profile.MCPServers[name]
		if ok {
			return cfg, true, nil
		}
		available := make([]string, 0, len(o.profile.MCPServers))
		for n := range o.profile.MCPServers {
			available = append(available, n)
		}
		sort.Strings(available)
		return config.MCPServerConfig{}, false, available
	}
	o.pool = pool.New(p, lookup, deps.TransportDeps, deps.Logger, deps.OnPoolEvent)

	return o, nil
}

// RegisterInternalMCP adds an in-process handler, e.g. for "ncp", "scheduler",
// "skills". Every tool.Tool the handler exposes is registered into the
// shared tool.Registry and indexed into discovery/state exactly like a
// downstream MCP's tools, so find() also surfaces NCP's own operations.
func (o *Orchestrator) RegisterInternalMCP(h InternalHandler) {
	o.internalMCPs[h.Name()] = h

	for _, t := range h.Tools() {
		o.toolRegistry.Register(t)

		toolID := t.Name()
		toolName := toolID
		if idx := strings.Index(toolID, ":"); idx >= 0 {
			toolName = toolID[idx+1:]
		}
		o.state.AddTool(h.Name(), toolID, toolName, t.Description())
		if err := o.engine.IndexMCPTools(context.Background(), h.Name(), []discovery.ToolDefinition{
			{MCPName: h.Name(), ToolID: toolID, ToolName: toolName, Description: t.Description()},
		}); err != nil {
			o.logger.Warn().Err(err).Str("mcp", h.Name()).Str("tool", toolID).Msg("failed to index internal tool")
		}
	}
}

// ToolRegistry exposes the in-process tool.Registry backing every internal
// MCP's sub-operations, for callers that need the teacher's Tool-shaped
// view directly (e.g. a future local CLI or test harness) rather than
// going through find/run.
func (o *Orchestrator) ToolRegistry() *tool.Registry { return o.toolRegistry }

// Initialize runs the C9 indexing pipeline per spec §4.9/§4.10: compute the
// profile hash, validate or clear the cache, index what's pending (or load
// purely from cache when nothing changed), and load the cached tool rows
// into the in-memory state so find/run can see them immediately. Internal
// MCPs' tools are added separately by RegisterInternalMCP.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.profileHash = o.profile.Hash()
	o.csv.CheckVersion()

	if !o.csv.ValidateCache(o.profileHash) {
		if err := o.csv.Clear(o.profileHash); err != nil {
			return fmt.Errorf("orchestrator: clear cache: %w", err)
		}
	}
	if err := o.csv.SetProfileHash(o.profileHash); err != nil {
		return fmt.Errorf("orchestrator: set profile hash: %w", err)
	}
	if err := o.meta.UpdateProfileHash(o.profileHash); err != nil {
		return fmt.Errorf("orchestrator: set metadata profile hash: %w", err)
	}

	before := o.meta.All()
	if err := o.pipeline.Run(ctx, o.profile, false); err != nil {
		return fmt.Errorf("orchestrator: indexing pipeline: %w", err)
	}
	if err := o.validateVersions(before); err != nil {
		return fmt.Errorf("orchestrator: version validation: %w", err)
	}
	if err := o.pipeline.LoadFromCache(ctx); err != nil {
		return fmt.Errorf("orchestrator: load from cache: %w", err)
	}

	rows, err := o.csv.ReadRows()
	if err != nil {
		return fmt.Errorf("orchestrator: read cached rows: %w", err)
	}
	for _, row := range rows {
		o.state.AddTool(row.MCPName, row.ToolID, row.ToolName, row.Description)
	}

	return nil
}

// validateVersions implements C7 (spec §4.7): compares each configured MCP's
// cached serverInfo.version as it stood before this cycle's probe against
// the version now on record, which pipeline.Run just refreshed for every
// MCP it reprobed. A mismatch means that MCP's server was upgraded without
// its cached config changing, so its stale metadata is cleared and it's
// forced to reprobe next cycle. before is compared via a frozen snapshot
// rather than o.meta directly, since pipeline.Run has already overwritten
// o.meta's entries for any MCP it reprobed by the time this runs. The
// engine's own embeddings are left alone here: a mismatch only surfaces for
// an MCP pipeline.Run just reprobed, and its index entries are already the
// fresh ones from that same probe, not the stale ones being invalidated.
func (o *Orchestrator) validateVersions(before map[string]cache.MCPMetadata) error {
	beforeSnapshot := cache.NewMetadataSnapshot(before)

	live := make([]cache.StaleCheck, 0, len(o.profile.MCPServers))
	for name := range o.profile.MCPServers {
		meta, ok := o.meta.Get(name)
		if !ok {
			continue
		}
		live = append(live, cache.StaleCheck{MCPName: name, LiveVersion: meta.ServerInfo.Version})
	}

	stale := cache.NeedsRefresh(beforeSnapshot, live)
	if len(stale) == 0 {
		return nil
	}
	o.logger.Info().Strs("mcps", stale).Msg("downstream MCP version changed since last index; invalidating cached metadata")
	return cache.ApplyRefresh(o.meta, o.csv, stale)
}

// Find implements spec §4.10's find operation.
func (o *Orchestrator) Find(ctx context.Context, query string, limit int, confidenceThreshold float64) ([]DiscoveryResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.35
	}

	if strings.TrimSpace(query) == "" {
		return o.findEmpty(limit), nil
	}

	raw, err := o.engine.Search(ctx, query, limit*2)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: discovery search: %w", err)
	}

	boosted := applyTermFrequencyBoost(raw, query, o.enhancer)

	filtered := make([]DiscoveryResult, 0, len(boosted))
	for _, r := range boosted {
		if r.BaseConfidence < confidenceThreshold {
			continue
		}
		if !o.healthMon.Status(r.MCPName).Healthy {
			continue
		}
		filtered = append(filtered, DiscoveryResult{
			MCPName:     r.MCPName,
			ToolID:      r.ToolID,
			ToolName:    r.ToolName,
			Description: r.Description,
			Confidence:  r.BaseConfidence,
		})
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Confidence > filtered[j].Confidence })
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (o *Orchestrator) findEmpty(limit int) []DiscoveryResult {
	names := o.state.AllToolNames()
	sort.Strings(names)

	out := make([]DiscoveryResult, 0, limit)
	seen := make(map[string]bool)
	for _, name := range names {
		mcp, ok := o.state.ResolveToolMCP(name)
		if !ok {
			continue
		}
		toolName := strings.TrimPrefix(name, mcp+":")
		if seen[mcp+":"+toolName] || !o.healthMon.Status(mcp).Healthy {
			continue
		}
		seen[mcp+":"+toolName] = true
		out = append(out, DiscoveryResult{MCPName: mcp, ToolID: mcp + ":" + toolName, ToolName: toolName, Confidence: 1.0})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Run implements spec §4.10's run operation.
func (o *Orchestrator) Run(ctx context.Context, toolIdentifier string, parameters map[string]any, meta map[string]any) (string, error) {
	mcpName, toolName, err := o.resolveTool(toolIdentifier)
	if err != nil {
		return "", err
	}

	if handler, ok := o.internalMCPs[mcpName]; ok {
		return handler.CallTool(ctx, toolName, parameters)
	}

	schema, _ := o.schemas.Get(mcpName)
	if err := validateParameters(schema, parameters); err != nil {
		return "", err
	}

	client, err := o.pool.GetOrCreate(ctx, mcpName)
	if err != nil {
		return "", err
	}

	result, err := client.CallTool(ctx, toolName, parameters, meta)
	if err != nil {
		o.healthMon.MarkUnhealthy(mcpName, err)
		return "", fmt.Errorf("orchestrator: run %q on %q: %w (troubleshooting: verify the server is running and reachable)", toolName, mcpName, err)
	}
	o.healthMon.MarkHealthy(mcpName)
	return result, nil
}

// resolveTool parses an "mcp:tool" or bare "tool" identifier, falling back
// to toolToMCP resolution, and suggests up to 3 Levenshtein-closest names
// on a miss (spec §4.10 step 1).
func (o *Orchestrator) resolveTool(identifier string) (mcpName, toolName string, err error) {
	if strings.Contains(identifier, ":") {
		parts := strings.SplitN(identifier, ":", 2)
		if _, ok := o.profile.MCPServers[parts[0]]; ok || o.internalMCPs[parts[0]] != nil {
			return parts[0], parts[1], nil
		}
	}

	if mcp, ok := o.state.ResolveToolMCP(identifier); ok {
		return mcp, identifier, nil
	}

	suggestions := util.ClosestMatches(identifier, o.state.AllToolNames(), 3)
	return "", "", &ncperr.ToolNotFoundError{Identifier: identifier, Suggestions: suggestions}
}

// ReadResource reads one "mcp:<rest>" resource through the MCP's pooled
// connection. It does not open a separate short-lived connection: the
// connection it uses stays in the pool afterward.
func (o *Orchestrator) ReadResource(ctx context.Context, uri string) (string, error) {
	parts := strings.SplitN(uri, ":", 2)
	if len(parts) != 2 {
		return "", ncperr.ConfigError("resource uri %q must be mcp:<rest>", uri)
	}
	mcpName, rest := parts[0], parts[1]

	if _, ok := o.profile.MCPServers[mcpName]; !ok {
		return "", &ncperr.MCPNotFoundError{Name: mcpName}
	}

	// The connection comes from GetOrCreate and is left in the pool for
	// subsequent run() calls rather than torn down per call.
	client, err := o.pool.GetOrCreate(ctx, mcpName)
	if err != nil {
		return "", err
	}
	return client.ReadResource(ctx, rest)
}

// TriggerAutoImport implements spec §4.10's triggerAutoImport: re-runs
// indexing for any MCPs newly added to the profile by an external import
// step (the profile manager itself is an out-of-scope collaborator; this
// method assumes newMCPs have already been merged into o.profile by the
// caller).
func (o *Orchestrator) TriggerAutoImport(ctx context.Context, newMCPs map[string]config.MCPServerConfig) error {
	if len(newMCPs) == 0 {
		return nil
	}
	for name, cfg := range newMCPs {
		o.profile.MCPServers[name] = cfg
	}
	o.profileHash = o.profile.Hash()
	if err := o.csv.SetProfileHash(o.profileHash); err != nil {
		return err
	}

	incremental := config.Profile{Name: o.profile.Name, MCPServers: newMCPs}
	if err := o.pipeline.Run(ctx, incremental, true); err != nil {
		return err
	}

	rows, err := o.csv.ReadRows()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, ok := newMCPs[row.MCPName]; ok {
			o.state.AddTool(row.MCPName, row.ToolID, row.ToolName, row.Description)
		}
	}
	return nil
}

// Cleanup implements spec §4.10's cleanup: stop the reaper, finalize the
// CSV (nothing further to flush beyond what each AppendBatch already
// fsynced), and close every pooled connection.
func (o *Orchestrator) Cleanup() {
	o.pool.Shutdown()
}

// HealthMonitor exposes the health monitor for wiring into mcpclient
// connect/call call sites outside Run (e.g. the discovery pipeline).
func (o *Orchestrator) HealthMonitor() *health.Monitor { return o.healthMon }

// State exposes the state manager for internal MCP handlers that mutate
// skills/tools under §4.10.3's atomicity rule.
func (o *Orchestrator) State() *StateManager { return o.state }

// validateParameters implements spec §4.10.2: required params come from
// schema.required[]; a parameter is missing iff absent, null, or "".
func validateParameters(schema []byte, parameters map[string]any) error {
	required := extractRequired(schema)
	if len(required) == 0 {
		return nil
	}

	var missing []string
	for _, field := range required {
		v, ok := parameters[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ncperr.ValidationError{Fields: missing}
	}
	return nil
}

func extractRequired(schema []byte) []string {
	if len(schema) == 0 {
		return nil
	}
	var parsed struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		return nil
	}
	return parsed.Required
}
