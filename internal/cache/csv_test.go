package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_FreshCacheIsInvalid(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.False(t, c.ValidateCache("any-hash"), "a cache with no CSV file on disk must never validate")
}

func TestAppendBatch_MarksIndexedAndCountsTools(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, c.SetProfileHash("hash-1"))

	rows := []ToolRow{
		{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Description: "reads a file", Hash: "h1", Timestamp: time.Now()},
		{MCPName: "filesystem", ToolID: "filesystem:write_file", ToolName: "write_file", Description: "writes a file", Hash: "h2", Timestamp: time.Now()},
	}
	require.NoError(t, c.AppendBatch("filesystem", "cfg-hash", rows))

	require.True(t, c.IsMCPIndexed("filesystem", "cfg-hash"))
	require.False(t, c.IsMCPIndexed("filesystem", "different-cfg-hash"))
	require.True(t, c.ValidateCache("hash-1"))

	got, err := c.ReadRows()
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestValidateCache_StaleProfileHashInvalidates(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, c.SetProfileHash("hash-1"))
	require.NoError(t, c.AppendBatch("filesystem", "cfg-hash", []ToolRow{{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Timestamp: time.Now()}}))

	require.True(t, c.ValidateCache("hash-1"))
	require.False(t, c.ValidateCache("hash-2"), "a changed profile hash must invalidate the cache")
}

func TestClear_ResetsIndexedAndFailedState(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, c.AppendBatch("filesystem", "cfg-hash", []ToolRow{{MCPName: "filesystem", ToolID: "filesystem:read_file", ToolName: "read_file", Timestamp: time.Now()}}))
	require.NoError(t, c.MarkFailed("broken", ErrorTimeout, errors.New("timed out")))

	require.NoError(t, c.Clear("new-hash"))

	require.False(t, c.IsMCPIndexed("filesystem", "cfg-hash"))
	require.True(t, c.ShouldRetryFailed("broken", false), "Clear must drop any persisted retry backoff too")
}

func TestMarkFailed_BackoffEscalatesThenCaps(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)

	require.NoError(t, c.MarkFailed("flaky", ErrorConnectionRefused, errors.New("refused")))
	require.False(t, c.ShouldRetryFailed("flaky", false), "first failure must not retry immediately")

	// A fourth-and-beyond failure still waits the same 24h cap (spec §8
	// boundary behavior), not an ever-growing delay.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.MarkFailed("flaky", ErrorConnectionRefused, errors.New("refused")))
	}
	failed := c.header.FailedMCPs["flaky"]
	require.Equal(t, 4, failed.AttemptCount)
	require.WithinDuration(t, failed.LastAttempt.Add(24*time.Hour), failed.NextRetry, time.Second)
}

func TestShouldRetryFailed_ForceBypassesBackoff(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, c.MarkFailed("flaky", ErrorTimeout, errors.New("timed out")))

	require.False(t, c.ShouldRetryFailed("flaky", false))
	require.True(t, c.ShouldRetryFailed("flaky", true))
}

func TestClearFailed_RemovesEntry(t *testing.T) {
	c, err := Open(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, c.MarkFailed("flaky", ErrorTimeout, errors.New("timed out")))
	require.NoError(t, c.ClearFailed("flaky"))
	require.True(t, c.ShouldRetryFailed("flaky", false))
}
