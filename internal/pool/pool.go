// Package pool implements the Connection Pool (spec §4.8): a bounded,
// LRU-evicting cache of live MCP connections with an idle reaper, grounded
// on the teacher's container/list LRU (pkg/sdk/debug/lru_cache.go) for the
// eviction structure and on manifold's session-reaper idiom for the
// background cleanup loop.
package pool

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/mcpclient"
	"github.com/ncp-run/ncp/internal/mcptransport"
	"github.com/ncp-run/ncp/internal/ncperr"
)

// Config parameterizes the pool per spec §4.8's defaults.
type Config struct {
	MaxConnections             int
	IdleTimeout                time.Duration
	CleanupInterval            time.Duration
	MaxExecutionsPerConnection int
	ConnectionTimeout          time.Duration
	QuickProbeTimeout          time.Duration
	SlowProbeTimeout           time.Duration
}

// DefaultConfig returns spec §4.8's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections:             50,
		IdleTimeout:                5 * time.Minute,
		CleanupInterval:            time.Minute,
		MaxExecutionsPerConnection: 1000,
		ConnectionTimeout:          10 * time.Second,
		QuickProbeTimeout:          8 * time.Second,
		SlowProbeTimeout:           30 * time.Second,
	}
}

// entry is one live connection plus the bookkeeping the eviction and reaper
// policies need.
type entry struct {
	name           string
	client         *mcpclient.Client
	lastUsedAt     time.Time
	executionCount int
}

// DefinitionLookup resolves a configured MCP name to its server config;
// it is how the pool reports MCPNotFound(available=[...]) without owning
// the profile itself.
type DefinitionLookup func(name string) (config.MCPServerConfig, bool, []string)

// Pool is the Connection Pool (C8). The zero value is not usable; construct
// with New.
type Pool struct {
	cfg     Config
	lookup  DefinitionLookup
	deps    mcptransport.Dependencies
	logger  zerolog.Logger
	onEvent func(event string, mcpName string)

	mu      sync.Mutex
	items   map[string]*list.Element // mcpName -> element holding *entry
	order   *list.List               // front = most recently used

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Pool and starts its background reaper goroutine. Call
// Shutdown to stop the reaper and close every held connection.
func New(cfg Config, lookup DefinitionLookup, deps mcptransport.Dependencies, logger zerolog.Logger, onEvent func(event, mcpName string)) *Pool {
	p := &Pool{
		cfg:     cfg,
		lookup:  lookup,
		deps:    deps,
		logger:  logger,
		onEvent: onEvent,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

func (p *Pool) emit(event, name string) {
	if p.onEvent != nil {
		p.onEvent(event, name)
	}
}

// GetOrCreate implements spec §4.8's five-step algorithm.
func (p *Pool) GetOrCreate(ctx context.Context, mcpName string) (*mcpclient.Client, error) {
	p.mu.Lock()
	if elem, ok := p.items[mcpName]; ok {
		e := elem.Value.(*entry)
		if e.executionCount < p.cfg.MaxExecutionsPerConnection {
			e.lastUsedAt = time.Now()
			e.executionCount++
			p.order.MoveToFront(elem)
			client := e.client
			p.mu.Unlock()
			return client, nil
		}
		// Over the execution cap: close and remove, fall through to create.
		p.removeLocked(elem)
	}

	if p.order.Len() >= p.cfg.MaxConnections {
		p.evictLRULocked()
	}
	p.mu.Unlock()

	cfg, found, available := p.lookup(mcpName)
	if !found {
		return nil, &ncperr.MCPNotFoundError{Name: mcpName, Available: available}
	}

	client, err := mcpclient.ConnectWithReconnectPolicy(ctx, mcpName, cfg, p.deps, p.cfg.ConnectionTimeout, p.logger)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	// Another goroutine may have raced us to create the same connection
	// while we connected outside the lock; prefer the existing one and
	// close ours to avoid leaking a duplicate child process.
	if elem, ok := p.items[mcpName]; ok {
		p.mu.Unlock()
		_ = client.Close()
		e := elem.Value.(*entry)
		p.mu.Lock()
		e.lastUsedAt = time.Now()
		e.executionCount++
		p.order.MoveToFront(elem)
		existing := e.client
		p.mu.Unlock()
		return existing, nil
	}
	e := &entry{name: mcpName, client: client, lastUsedAt: time.Now(), executionCount: 1}
	elem := p.order.PushFront(e)
	p.items[mcpName] = elem
	p.mu.Unlock()

	p.emit("mcp:connected", mcpName)
	return client, nil
}

// Disconnect closes and removes mcpName's connection, swallowing close
// errors (best-effort per spec §4.8).
func (p *Pool) Disconnect(mcpName string) {
	p.mu.Lock()
	elem, ok := p.items[mcpName]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.removeLocked(elem)
	p.mu.Unlock()
	p.emit("mcp:disconnected", mcpName)
}

// removeLocked unlinks elem from both the map and the LRU list and closes
// its client. Caller must hold p.mu.
func (p *Pool) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(p.items, e.name)
	p.order.Remove(elem)
	_ = e.client.Close()
}

// evictLRULocked drops the least-recently-used connection. Caller must hold
// p.mu. Silent, per spec §4.8.
func (p *Pool) evictLRULocked() {
	back := p.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	p.removeLocked(back)
	p.emit("mcp:evicted", e.name)
}

// Size returns the current number of pooled connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

func (p *Pool) reapLoop() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce()
		}
	}
}

func (p *Pool) reapOnce() {
	now := time.Now()
	p.mu.Lock()
	var toRemove []*list.Element
	for elem := p.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if now.Sub(e.lastUsedAt) > p.cfg.IdleTimeout || e.executionCount >= p.cfg.MaxExecutionsPerConnection {
			toRemove = append(toRemove, elem)
		}
	}
	names := make([]string, 0, len(toRemove))
	for _, elem := range toRemove {
		names = append(names, elem.Value.(*entry).name)
		p.removeLocked(elem)
	}
	p.mu.Unlock()

	for _, name := range names {
		p.logger.Debug().Str("mcp", name).Msg("reaped idle connection")
		p.emit("mcp:disconnected", name)
	}
}

// Shutdown stops the reaper and closes every held connection. Used for
// orchestrator.cleanup().
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.order.Len() > 0 {
		p.removeLocked(p.order.Front())
	}
}
