package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "hello", TruncateRunes("hello", 0))
	require.Equal(t, "hello", TruncateRunes("hello", 10))
	require.Equal(t, "he...", TruncateRunes("hello", 2))
}

func TestLevenshtein(t *testing.T) {
	require.Equal(t, 0, Levenshtein("same", "same"))
	require.Equal(t, 4, Levenshtein("", "file"))
	require.Equal(t, 1, Levenshtein("read_file", "read_file2"))
}

func TestClosestMatches_RanksByDistanceThenName(t *testing.T) {
	candidates := []string{"write_file", "read_file", "read_dir", "delete_file"}
	got := ClosestMatches("read_fiel", candidates, 2)
	require.Len(t, got, 2)
	require.Equal(t, "read_file", got[0], "the nearest candidate by edit distance must rank first")
}

func TestClosestMatches_TiesBreakLexically(t *testing.T) {
	// Both candidates are a single substitution away from "cat".
	candidates := []string{"dat", "bat"}
	got := ClosestMatches("cat", candidates, 2)
	require.Equal(t, []string{"bat", "dat"}, got)
}

func TestClosestMatches_NMoreThanAvailable(t *testing.T) {
	candidates := []string{"a", "b"}
	got := ClosestMatches("a", candidates, 10)
	require.Len(t, got, 2)
}
