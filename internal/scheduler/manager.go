// Package scheduler implements the Cron Manager (C11), Natural-Language
// Schedule Parser (C12), Task/Timing Manager (C13), Timing Executor (C14),
// and Execution Recorder (C15) described in spec §4.11-4.15.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/ncperr"
)

// OSRegistrar registers/unregisters a single OS-level scheduled entry,
// platform-specific per spec §4.11 (launchd on macOS, crontab on Linux,
// refused on Windows). See registrar_*.go for the per-platform
// implementations, split by build tag the way the teacher splits
// platform-specific runtime probing.
type OSRegistrar interface {
	Register(id, cronExpr string) error
	Unregister(id string) error
}

// CronManager is the C11 Cron Manager: validates expressions, fires
// registered entries in-process via robfig/cron, and mirrors each
// registration into the OS-level scheduler via OSRegistrar so scheduled
// tasks survive the orchestrator process itself.
type CronManager struct {
	mu        sync.Mutex
	cr        *cron.Cron
	entries   map[string]cron.EntryID
	registrar OSRegistrar
	logger    zerolog.Logger
}

// NewCronManager constructs a CronManager bound to registrar and starts the
// in-process cron runner. registrar must be non-nil; NewOSRegistrar
// provides the platform-appropriate default and returns
// ncperr.ErrUnsupportedPlatform on Windows per spec §4.11.
func NewCronManager(registrar OSRegistrar, logger zerolog.Logger) *CronManager {
	m := &CronManager{
		cr:        cron.New(),
		entries:   make(map[string]cron.EntryID),
		registrar: registrar,
		logger:    logger,
	}
	m.cr.Start()
	return m
}

// Register validates cronExpr, adds an in-process firing of onFire, and
// asks the OSRegistrar to mirror the entry at the OS level, tagged by id.
func (m *CronManager) Register(id, cronExpr string, onFire func()) error {
	if result := ValidateCron(cronExpr); !result.Valid {
		return ncperr.ConfigError("%s", result.Error)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[id]; exists {
		return ncperr.ConfigError("cron entry %q already registered", id)
	}

	entryID, err := m.cr.AddFunc(cronExpr, onFire)
	if err != nil {
		return fmt.Errorf("scheduler: register cron entry %q: %w", id, err)
	}

	if err := m.registrar.Register(id, cronExpr); err != nil {
		m.cr.Remove(entryID)
		return fmt.Errorf("scheduler: os-level register %q: %w", id, err)
	}

	m.entries[id] = entryID
	return nil
}

// Unregister removes both the in-process firing and the OS-level mirror
// for id. If the OS-level unregister fails, the in-process entry is left
// intact so the caller can retry without orphaning a firing schedule with
// no OS backing (spec §4.13's "no orphan Timing, no orphan schedule" rule
// extends to this layer).
func (m *CronManager) Unregister(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entryID, ok := m.entries[id]
	if !ok {
		return nil
	}

	if err := m.registrar.Unregister(id); err != nil {
		return fmt.Errorf("scheduler: os-level unregister %q: %w", id, err)
	}

	m.cr.Remove(entryID)
	delete(m.entries, id)
	return nil
}

// Stop halts the in-process cron runner. Registered OS-level entries are
// left in place — they outlive this process by design.
func (m *CronManager) Stop() {
	ctx := m.cr.Stop()
	<-ctx.Done()
}
