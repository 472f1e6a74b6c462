package cache

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ncp-run/ncp/internal/fsutil"
	"github.com/ncp-run/ncp/internal/ncperr"
)

var csvHeader = []string{"mcp_name", "tool_id", "tool_name", "description", "hash", "timestamp"}

// CSVCache is the crash-safe, append-only tool cache (spec §4.4). It is the
// only subsystem required to survive a power loss mid-write: every append
// is drained and fsynced before the sidecar metadata is rewritten, so a
// crash leaves either the old or the new state intact, never a mix.
type CSVCache struct {
	mu          sync.Mutex
	csvPath     string
	metaPath    string
	profileName string
	header      CacheHeader
}

// Open loads (or initializes) the cache for profileName under cacheDir.
func Open(cacheDir, profileName string) (*CSVCache, error) {
	c := &CSVCache{
		csvPath:     filepath.Join(cacheDir, profileName+"-tools.csv"),
		metaPath:    filepath.Join(cacheDir, profileName+"-cache-meta.json"),
		profileName: profileName,
	}
	if err := fsutil.EnsureDir(cacheDir); err != nil {
		return nil, fmt.Errorf("cache: create cache dir: %w", err)
	}
	if err := c.loadMeta(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CSVCache) loadMeta() error {
	data, err := fsutil.ReadFileOrEmpty(c.metaPath)
	if err != nil {
		return fmt.Errorf("cache: read meta: %w", err)
	}
	if data == nil {
		c.header = CacheHeader{
			Version:     1,
			ProfileName: c.profileName,
			NCPVersion:  NCPVersion,
			IndexedMCPs: map[string]string{},
			FailedMCPs:  map[string]FailedMCP{},
		}
		return nil
	}
	header, err := parseHeader(data)
	if err != nil {
		// CacheCorruption policy: rebuild, never crash (spec §7).
		c.header = CacheHeader{
			Version:     1,
			ProfileName: c.profileName,
			NCPVersion:  NCPVersion,
			IndexedMCPs: map[string]string{},
			FailedMCPs:  map[string]FailedMCP{},
		}
		return nil
	}
	c.header = header
	return nil
}

// ValidateCache checks the four conditions of spec §4.4: metadata parses
// (already true if loadMeta succeeded), profileHash matches, the CSV file
// exists, and the cache is younger than 7 days. On invalidation the caller
// (discovery) is expected to call Clear.
func (c *CSVCache) ValidateCache(currentProfileHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.header.ProfileHash != currentProfileHash {
		return false
	}
	if !fsutil.Exists(c.csvPath) {
		return false
	}
	if time.Since(c.header.CreatedAt) >= 7*24*time.Hour {
		return false
	}
	return true
}

// CheckVersion clears FailedMCPs if the stored ncpVersion differs from the
// running binary's (spec §4.4 initialize rule: a code change may have fixed
// whatever caused the failures).
func (c *CSVCache) CheckVersion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.header.NCPVersion != NCPVersion {
		c.header.FailedMCPs = map[string]FailedMCP{}
		c.header.NCPVersion = NCPVersion
	}
}

// Clear wipes both the CSV and the metadata, used when ValidateCache fails.
func (c *CSVCache) Clear(profileHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = os.Remove(c.csvPath)
	now := time.Now()
	c.header = CacheHeader{
		Version:     1,
		ProfileName: c.profileName,
		ProfileHash: profileHash,
		NCPVersion:  NCPVersion,
		CreatedAt:   now,
		LastUpdated: now,
		IndexedMCPs: map[string]string{},
		FailedMCPs:  map[string]FailedMCP{},
	}
	return c.writeMetaLocked()
}

// IsMCPIndexed reports whether name is indexed with exactly currentConfigHash.
func (c *CSVCache) IsMCPIndexed(name, currentConfigHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash, ok := c.header.IndexedMCPs[name]
	return ok && hash == currentConfigHash
}

// ShouldRetryFailed implements spec §4.4's retry gate.
func (c *CSVCache) ShouldRetryFailed(name string, force bool) bool {
	if force {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	failed, ok := c.header.FailedMCPs[name]
	if !ok {
		return true
	}
	return !time.Now().Before(failed.NextRetry)
}

// MarkFailed records the caller-classified kind and causeErr's message,
// bumps the attempt count, and computes
// nextRetry per the [1h, 6h, 24h] backoff table (spec §4.4). Persists
// immediately.
func (c *CSVCache) MarkFailed(name string, kind ErrorKind, causeErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.header.FailedMCPs[name]
	attempt := prev.AttemptCount + 1
	idx := attempt - 1
	if idx >= len(backoffSteps) {
		idx = len(backoffSteps) - 1
	}
	now := time.Now()

	msg := ""
	if causeErr != nil {
		msg = causeErr.Error()
	}
	c.header.FailedMCPs[name] = FailedMCP{
		LastAttempt:  now,
		ErrorType:    kind,
		ErrorMessage: msg,
		AttemptCount: attempt,
		NextRetry:    now.Add(backoffSteps[idx]),
	}
	return c.writeMetaLocked()
}

// ClearFailed removes a FailedMCP entry on a successful probe (spec §3
// lifecycle: "destroyed on successful probe OR on NCP version change").
func (c *CSVCache) ClearFailed(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.header.FailedMCPs, name)
	return c.writeMetaLocked()
}

// AppendBatch appends rows for one MCP, fsyncs the CSV, then rewrites and
// fsyncs the sidecar metadata with the MCP's new indexed hash. Both
// operations must complete for the MCP to count as indexed; a crash
// between them leaves the CSV row present but indexedMCPs stale, which
// IsMCPIndexed correctly reports as "not indexed" on next read, causing a
// harmless re-probe.
func (c *CSVCache) AppendBatch(mcpName, configHash string, rows []ToolRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.appendRowsLocked(rows); err != nil {
		return err
	}

	c.header.IndexedMCPs[mcpName] = configHash
	c.header.TotalTools = c.countToolsLocked()
	c.header.TotalMCPs = len(c.header.IndexedMCPs)
	delete(c.header.FailedMCPs, mcpName)
	return c.writeMetaLocked()
}

func (c *CSVCache) countToolsLocked() int {
	rows, err := c.readRowsLocked()
	if err != nil {
		return c.header.TotalTools
	}
	return len(rows)
}

func (c *CSVCache) appendRowsLocked(rows []ToolRow) error {
	needsHeader := !fsutil.Exists(c.csvPath)

	f, err := os.OpenFile(c.csvPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cache: open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("cache: write csv header: %w", err)
		}
	}
	for _, row := range rows {
		record := []string{
			row.MCPName,
			row.ToolID,
			row.ToolName,
			row.Description,
			row.Hash,
			row.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("cache: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("cache: flush csv: %w", err)
	}
	return f.Sync()
}

func (c *CSVCache) writeMetaLocked() error {
	c.header.LastUpdated = time.Now()
	return fsutil.AtomicWriteJSON(c.metaPath, c.header)
}

// ReadRows returns every row currently in the CSV, tolerating a partially
// flushed trailing line (no terminating newline) by treating it as absent
// (spec §4.4, §9 "append-only log" reader contract).
func (c *CSVCache) ReadRows() ([]ToolRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readRowsLocked()
}

func (c *CSVCache) readRowsLocked() ([]ToolRow, error) {
	data, err := fsutil.ReadFileOrEmpty(c.csvPath)
	if err != nil {
		return nil, fmt.Errorf("cache: read csv: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if idx := strings.LastIndexByte(string(data), '\n'); idx >= 0 {
			data = data[:idx+1]
		} else {
			data = nil
		}
	}
	if len(data) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bufio.NewReader(strings.NewReader(string(data))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: csv header: %v", ncperr.ErrCacheCorruption, err)
	}
	if len(header) < len(csvHeader) {
		return nil, fmt.Errorf("%w: csv header short", ncperr.ErrCacheCorruption)
	}

	var rows []ToolRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed trailing row from a torn write; stop reading rather
			// than fail the whole cache.
			break
		}
		if len(record) < 6 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, record[5])
		rows = append(rows, ToolRow{
			MCPName:     record[0],
			ToolID:      record[1],
			ToolName:    record[2],
			Description: record[3],
			Hash:        record[4],
			Timestamp:   ts,
		})
	}
	return rows, nil
}

func parseHeader(data []byte) (CacheHeader, error) {
	var header CacheHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return CacheHeader{}, err
	}
	if header.IndexedMCPs == nil {
		header.IndexedMCPs = map[string]string{}
	}
	if header.FailedMCPs == nil {
		header.FailedMCPs = map[string]FailedMCP{}
	}
	return header, nil
}

// Header returns a copy of the current cache header, e.g. for diagnostics.
func (c *CSVCache) Header() CacheHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header
}

// SetProfileHash updates the stored profile hash after a successful
// (re)index, independent of any single MCP's batch.
func (c *CSVCache) SetProfileHash(hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.ProfileHash = hash
	if c.header.CreatedAt.IsZero() {
		c.header.CreatedAt = time.Now()
	}
	return c.writeMetaLocked()
}
