package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/cache"
	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/mcpclient"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/ncperr"
)

// Prober connects to an MCP just long enough to list its tools, independent
// of the connection pool (indexing probes are not pooled; spec §4.9 treats
// them as one-shot).
type Prober interface {
	ProbeTools(ctx context.Context, name string, cfg config.MCPServerConfig) ([]mcpclient.ToolDefinition, string, error)
}

// transportProber is the real Prober, grounded on mcpclient.Connect.
type transportProber struct {
	deps   mcptransport.Dependencies
	logger zerolog.Logger
}

// NewProber returns the Prober used outside tests.
func NewProber(deps mcptransport.Dependencies, logger zerolog.Logger) Prober {
	return &transportProber{deps: deps, logger: logger}
}

func (p *transportProber) ProbeTools(ctx context.Context, name string, cfg config.MCPServerConfig) ([]mcpclient.ToolDefinition, string, error) {
	timeout := remainingOrDefault(ctx, 30*time.Second)
	client, err := mcpclient.Connect(ctx, name, cfg, p.deps, timeout, p.logger)
	if err != nil {
		return nil, "", err
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return nil, "", err
	}
	return tools, client.ServerInfo().Version, nil
}

// Pipeline runs the indexing algorithm of spec §4.9.
type Pipeline struct {
	csv      *cache.CSVCache
	meta     *cache.MetadataCache
	engine   Engine
	prober   Prober
	logger   zerolog.Logger

	quickTimeout time.Duration
	slowTimeout  time.Duration
}

// NewPipeline constructs a Pipeline.
func NewPipeline(csv *cache.CSVCache, meta *cache.MetadataCache, engine Engine, prober Prober, quickTimeout, slowTimeout time.Duration, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		csv:          csv,
		meta:         meta,
		engine:       engine,
		prober:       prober,
		logger:       logger,
		quickTimeout: quickTimeout,
		slowTimeout:  slowTimeout,
	}
}

// Run executes steps 3-4 of spec §4.9 against profile: it builds the set of
// unindexed MCPs that are due for a retry and probes each one. Steps 1-2
// (compute the profile hash, validate or clear the cache) are the caller's
// responsibility via ValidateCache/Clear. forceRetry mirrors the force flag
// ShouldRetryFailed accepts.
func (p *Pipeline) Run(ctx context.Context, profile config.Profile, forceRetry bool) error {
	pending := p.pendingMCPs(profile, forceRetry)
	if len(pending) == 0 {
		return nil
	}

	for name, cfg := range pending {
		p.probeOne(ctx, name, cfg)
	}
	return nil
}

func (p *Pipeline) pendingMCPs(profile config.Profile, forceRetry bool) map[string]config.MCPServerConfig {
	pending := make(map[string]config.MCPServerConfig)
	for name, cfg := range profile.MCPServers {
		configHash := config.ConfigHash(cfg)
		if p.csv.IsMCPIndexed(name, configHash) {
			continue
		}
		if !p.csv.ShouldRetryFailed(name, forceRetry) {
			continue
		}
		pending[name] = cfg
	}
	return pending
}

func (p *Pipeline) probeOne(ctx context.Context, name string, cfg config.MCPServerConfig) {
	tools, version, err := p.probeWithTwoTierTimeout(ctx, name, cfg)
	if err != nil {
		kind := ncperr.ClassifyError(err)
		if markErr := p.csv.MarkFailed(name, toCacheErrorKind(kind), err); markErr != nil {
			p.logger.Error().Err(markErr).Str("mcp", name).Msg("failed to persist markFailed")
		}
		p.logger.Warn().Err(err).Str("mcp", name).Msg("mcp probe failed")
		return
	}

	rows := make([]cache.ToolRow, 0, len(tools))
	defs := make([]ToolDefinition, 0, len(tools))
	toolMetas := make([]cache.ToolMetadata, 0, len(tools))
	now := time.Now()
	for _, t := range tools {
		toolID := name + ":" + t.Name
		hash := toolHash(t.Name, t.Description, t.InputSchema)
		rows = append(rows, cache.ToolRow{
			MCPName:     name,
			ToolID:      toolID,
			ToolName:    t.Name,
			Description: t.Description,
			Hash:        hash,
			Timestamp:   now,
		})
		defs = append(defs, ToolDefinition{
			MCPName:     name,
			ToolID:      toolID,
			ToolName:    t.Name,
			Description: t.Description,
		})
		toolMetas = append(toolMetas, cache.ToolMetadata{
			ToolID:      toolID,
			ToolName:    t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Hash:        hash,
		})
	}

	configHash := config.ConfigHash(cfg)
	if err := p.csv.AppendBatch(name, configHash, rows); err != nil {
		p.logger.Error().Err(err).Str("mcp", name).Msg("failed to append tool rows")
		return
	}
	if err := p.meta.PatchAddMCP(name, cache.MCPMetadata{
		ServerInfo: cache.ServerInfo{Name: name, Version: version},
		Tools:      toolMetas,
	}); err != nil {
		p.logger.Error().Err(err).Str("mcp", name).Msg("failed to patch metadata cache")
	}
	if err := p.engine.IndexMCPTools(ctx, name, defs); err != nil {
		p.logger.Error().Err(err).Str("mcp", name).Msg("failed to index tools into discovery engine")
	}
}

// probeWithTwoTierTimeout implements spec §4.9's two-tier probe: a quick
// attempt, retried with a longer timeout only if the quick attempt failed
// specifically with a timeout. Any other failure is not retried.
func (p *Pipeline) probeWithTwoTierTimeout(ctx context.Context, name string, cfg config.MCPServerConfig) ([]mcpclient.ToolDefinition, string, error) {
	quickCtx, cancel := context.WithTimeout(ctx, p.quickTimeout)
	tools, version, err := p.prober.ProbeTools(quickCtx, name, cfg)
	cancel()
	if err == nil {
		return tools, version, nil
	}
	if ncperr.ClassifyError(err) != ncperr.KindTimeout {
		return nil, "", err
	}

	slowCtx, cancel := context.WithTimeout(ctx, p.slowTimeout)
	defer cancel()
	return p.prober.ProbeTools(slowCtx, name, cfg)
}

// LoadFromCache rebuilds the in-memory index purely from the CSV cache's
// rows for a valid cache (the metadata cache is not read), skipping embedding regeneration (spec
// §4.9 "cached loading" path).
func (p *Pipeline) LoadFromCache(ctx context.Context) error {
	rows, err := p.csv.ReadRows()
	if err != nil {
		return err
	}
	byMCP := make(map[string][]ToolDefinition)
	for _, row := range rows {
		byMCP[row.MCPName] = append(byMCP[row.MCPName], ToolDefinition{
			MCPName:     row.MCPName,
			ToolID:      row.ToolID,
			ToolName:    row.ToolName,
			Description: row.Description,
		})
	}
	for mcpName, defs := range byMCP {
		if err := p.engine.IndexMCPToolsFromCache(ctx, mcpName, defs); err != nil {
			return err
		}
	}
	return nil
}

func toolHash(name, description string, schema []byte) string {
	sum := sha256.Sum256([]byte(name + "\x00" + description + "\x00" + string(schema)))
	return hex.EncodeToString(sum[:])
}

// remainingOrDefault returns the time left until ctx's deadline, or
// fallback if ctx has none. Connect applies its own nested timeout on top
// of ctx, so the caller's outer deadline (set by the two-tier probe) must
// be translated into a concrete duration rather than passed as zero.
func remainingOrDefault(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
		return time.Millisecond
	}
	return fallback
}

func toCacheErrorKind(kind ncperr.ErrorKind) cache.ErrorKind {
	switch kind {
	case ncperr.KindTimeout:
		return cache.ErrorTimeout
	case ncperr.KindConnectionRefused:
		return cache.ErrorConnectionRefused
	case ncperr.KindCommandNotFound:
		return cache.ErrorCommandNotFound
	default:
		return cache.ErrorUnknown
	}
}
