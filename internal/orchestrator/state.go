package orchestrator

import (
	"sync"

	"github.com/rs/zerolog"
)

// resourceKey identifies one internal-MCP resource's lock (spec §4.10.3:
// "a per-resource lock keyed by {kind, name}").
type resourceKey struct {
	kind string
	name string
}

// snapshot is the subset of orchestrator state a mutation must be able to
// roll back atomically.
type snapshot struct {
	allTools    map[string]discoveryToolEntry
	toolToMCP   map[string]string
	skillPrompts map[string]string
}

type discoveryToolEntry struct {
	MCPName     string
	ToolID      string
	ToolName    string
	Description string
}

// StateManager serializes internal-MCP lifecycle mutations per resource key
// with a FIFO wait queue, and provides snapshot/restore around each
// mutation so a failed mutation leaves no partial state (spec §4.10.3).
type StateManager struct {
	mu sync.Mutex // guards allTools/toolToMCP/skillPrompts and the per-key queues

	allTools     map[string]discoveryToolEntry
	toolToMCP    map[string]string
	skillPrompts map[string]string

	keyLocks map[resourceKey]*fifoLock

	logger zerolog.Logger
}

// fifoLock is a mutex whose Lock calls are served in arrival order via a
// channel-based ticket queue — Go's sync.Mutex does not guarantee FIFO
// ordering under contention, which spec §4.10.3 requires ("queue concurrent
// calls").
type fifoLock struct {
	tickets chan struct{}
}

func newFIFOLock() *fifoLock {
	l := &fifoLock{tickets: make(chan struct{}, 1)}
	l.tickets <- struct{}{}
	return l
}

func (l *fifoLock) Lock()   { <-l.tickets }
func (l *fifoLock) Unlock() { l.tickets <- struct{}{} }

// NewStateManager returns an empty StateManager.
func NewStateManager(logger zerolog.Logger) *StateManager {
	return &StateManager{
		allTools:     make(map[string]discoveryToolEntry),
		toolToMCP:    make(map[string]string),
		skillPrompts: make(map[string]string),
		keyLocks:     make(map[resourceKey]*fifoLock),
		logger:       logger,
	}
}

func (s *StateManager) lockFor(kind, name string) *fifoLock {
	key := resourceKey{kind: kind, name: name}
	s.mu.Lock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = newFIFOLock()
		s.keyLocks[key] = l
	}
	s.mu.Unlock()
	return l
}

// Mutate acquires the {kind, name} lock, snapshots state, runs fn, and on a
// non-nil return restores the pre-mutation snapshot and emits state:restored
// via onRestore. The lock is always released, letting any queued caller
// proceed next.
func (s *StateManager) Mutate(kind, name string, onRestore func(), fn func() error) error {
	lock := s.lockFor(kind, name)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	before := s.snapshotLocked()
	s.mu.Unlock()

	err := fn()
	if err != nil {
		s.mu.Lock()
		s.restoreLocked(before)
		s.mu.Unlock()
		if onRestore != nil {
			onRestore()
		}
		s.logger.Warn().Str("kind", kind).Str("name", name).Err(err).Msg("state mutation failed, restored snapshot")
		return err
	}
	return nil
}

func (s *StateManager) snapshotLocked() snapshot {
	allTools := make(map[string]discoveryToolEntry, len(s.allTools))
	for k, v := range s.allTools {
		allTools[k] = v
	}
	toolToMCP := make(map[string]string, len(s.toolToMCP))
	for k, v := range s.toolToMCP {
		toolToMCP[k] = v
	}
	skillPrompts := make(map[string]string, len(s.skillPrompts))
	for k, v := range s.skillPrompts {
		skillPrompts[k] = v
	}
	return snapshot{allTools: allTools, toolToMCP: toolToMCP, skillPrompts: skillPrompts}
}

func (s *StateManager) restoreLocked(snap snapshot) {
	s.allTools = snap.allTools
	s.toolToMCP = snap.toolToMCP
	s.skillPrompts = snap.skillPrompts
}

// AddTool registers one tool under its "mcp:tool" identifier, for use
// inside a Mutate callback or directly by the indexing pipeline's
// non-internal-MCP path (which does not need atomic snapshot/restore since
// it only ever adds).
func (s *StateManager) AddTool(mcpName, toolID, toolName, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allTools[toolID] = discoveryToolEntry{MCPName: mcpName, ToolID: toolID, ToolName: toolName, Description: description}
	s.toolToMCP[toolName] = mcpName
	s.toolToMCP[toolID] = mcpName
}

// RemoveMCPTools drops every tool entry belonging to mcpName.
func (s *StateManager) RemoveMCPTools(mcpName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.allTools {
		if entry.MCPName == mcpName {
			delete(s.allTools, id)
			delete(s.toolToMCP, entry.ToolName)
			delete(s.toolToMCP, id)
		}
	}
}

// ResolveToolMCP returns the MCP name owning toolName or toolID.
func (s *StateManager) ResolveToolMCP(identifier string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mcp, ok := s.toolToMCP[identifier]
	return mcp, ok
}

// AllToolNames returns every known bare tool name and "mcp:tool" id, used
// for Levenshtein suggestion when a lookup misses.
func (s *StateManager) AllToolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.toolToMCP))
	for name := range s.toolToMCP {
		names = append(names, name)
	}
	return names
}

// SetSkillPrompt stores a skill's prompt text under name.
func (s *StateManager) SetSkillPrompt(name, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skillPrompts[name] = prompt
}

// RemoveSkillPrompt deletes a skill's prompt text.
func (s *StateManager) RemoveSkillPrompt(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.skillPrompts, name)
}

// SkillPrompt returns a skill's stored prompt, if any.
func (s *StateManager) SkillPrompt(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.skillPrompts[name]
	return p, ok
}

// SkillNames returns every registered skill name.
func (s *StateManager) SkillNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.skillPrompts))
	for name := range s.skillPrompts {
		names = append(names, name)
	}
	return names
}
