package cache

// unknownVersion marks metadata cached before per-MCP version tracking was
// added; the validator skips comparison for it rather than treating it as a
// mismatch (spec §4.7).
const unknownVersion = "unknown"

// StaleCheck pairs an MCP name with the version its live connection just
// reported, for NeedsRefresh to compare against the cache.
type StaleCheck struct {
	MCPName     string
	LiveVersion string
}

// NeedsRefresh compares each cached MCP's recorded serverInfo.version
// against the version its live connection currently reports, returning the
// subset whose cached metadata is stale and must be refreshed. Any MCP
// missing from the cache entirely is also reported stale, since there is
// nothing yet to compare against connecting it with a known cache entry
// would skip (spec §4.7).
func NeedsRefresh(metaCache *MetadataCache, live []StaleCheck) []string {
	var stale []string
	for _, check := range live {
		cached, ok := metaCache.Get(check.MCPName)
		if !ok {
			stale = append(stale, check.MCPName)
			continue
		}
		if cached.ServerInfo.Version == unknownVersion {
			continue
		}
		if cached.ServerInfo.Version != check.LiveVersion {
			stale = append(stale, check.MCPName)
		}
	}
	return stale
}

// ApplyRefresh implements the "application" half of spec §4.7: for every
// MCP in staleNames, clear its metadata cache entry (forcing a rebuild on
// next probe) while leaving the CSV cache's profileHash untouched — a
// version bump invalidates one MCP's detail, not the whole profile. The
// caller is responsible for re-probing staleNames and also clearing any
// semantic-search index entries for them.
func ApplyRefresh(metaCache *MetadataCache, csv *CSVCache, staleNames []string) error {
	for _, name := range staleNames {
		if err := metaCache.PatchUpdateMCP(name, func(MCPMetadata) MCPMetadata {
			return MCPMetadata{}
		}); err != nil {
			return err
		}
		// Force re-indexing: drop the recorded config hash so IsMCPIndexed
		// reports false and the discovery pipeline re-probes this MCP, but
		// the CSV rows themselves are left for AppendBatch to supersede.
		csv.mu.Lock()
		delete(csv.header.IndexedMCPs, name)
		err := csv.writeMetaLocked()
		csv.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
