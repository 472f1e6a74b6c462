package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry manages all registered tools with thread-safe access.
//
// A Registry can be either a "root" registry (parent == nil) that owns its
// tools map, or a "view" registry (parent != nil) created by WithExtra that
// overlays additional tools on top of a parent. Views delegate Get/List to
// the parent, so changes to the parent (Register/Unregister) are immediately
// visible through the view. The orchestrator registers every internal MCP
// handler's tools (ncp, scheduler, skills) into one root registry and does
// not create views.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	parent *Registry // non-nil → view mode; tools map holds extras only
	logger zerolog.Logger
}

// NewRegistry creates an empty root tool registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds a tool to the registry. If a tool with the same name already
// exists, it is overwritten and a warning is logged.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Warn().Str("tool", t.Name()).Msg("overwriting existing tool")
	}
	r.tools[t.Name()] = t
}

// Unregister removes a tool from the registry (for hot-reload).
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name.
// For view registries: checks extras first, then delegates to parent.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, false
}

// List returns all registered tools sorted by name.
// For view registries: merges parent tools with extras (extras override parent).
func (r *Registry) List() []Tool {
	if r.parent != nil {
		return r.listView()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// listView merges parent tools with this view's extras.
// Extras take precedence over parent tools with the same name.
func (r *Registry) listView() []Tool {
	parentTools := r.parent.List()

	r.mu.RLock()
	extras := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		extras[k] = v
	}
	r.mu.RUnlock()

	result := make([]Tool, 0, len(parentTools)+len(extras))
	for _, t := range parentTools {
		if _, overridden := extras[t.Name()]; !overridden {
			result = append(result, t)
		}
	}
	for _, t := range extras {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// InitAll initializes all registered tools.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("init tool %q: %w", name, err)
		}
	}
	r.logger.Info().Int("count", len(r.tools)).Msg("initialized tools")
	return nil
}

// CloseAll closes all registered tools, logging errors but not failing.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Close(); err != nil {
			r.logger.Warn().Err(err).Str("tool", name).Msg("error closing tool")
		}
	}
}

// WithExtra returns a view of this Registry with additional tools overlaid.
//
// The returned Registry delegates Get/List to the parent, so changes to the
// parent (via Register/Unregister) are immediately visible through the view.
// Extras take precedence over parent tools with the same name.
//
// Can be chained: root.WithExtra(a).WithExtra(b) creates a view chain where
// lookups check b's extras → a's extras → root's tools.
func (r *Registry) WithExtra(extras ...Tool) *Registry {
	extrasMap := make(map[string]Tool, len(extras))
	for _, t := range extras {
		extrasMap[t.Name()] = t
	}
	return &Registry{
		parent: r,
		tools:  extrasMap,
		logger: r.logger,
	}
}
