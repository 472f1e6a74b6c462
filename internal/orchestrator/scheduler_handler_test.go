package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSchedule_RawCronWins(t *testing.T) {
	cronExpr, fireOnce, explanation, err := resolveSchedule("*/5 * * * *")
	require.NoError(t, err)
	require.Equal(t, "*/5 * * * *", cronExpr)
	require.False(t, fireOnce)
	require.Contains(t, explanation, "*/5 * * * *")
}

func TestResolveSchedule_NaturalLanguageFallback(t *testing.T) {
	cronExpr, fireOnce, explanation, err := resolveSchedule("every hour")
	require.NoError(t, err)
	require.Equal(t, "0 * * * *", cronExpr)
	require.False(t, fireOnce)
	require.NotEmpty(t, explanation)
}

func TestResolveSchedule_Invalid(t *testing.T) {
	_, _, _, err := resolveSchedule("whenever I feel like it")
	require.Error(t, err)
}
