package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCron_WrongFieldCount(t *testing.T) {
	result := ValidateCron("* * * *")
	require.False(t, result.Valid)
	require.Contains(t, result.Error, "5 fields")
}

func TestValidateCron_AllWildcardsValid(t *testing.T) {
	require.True(t, ValidateCron("* * * * *").Valid)
}

func TestValidateCron_StepRangeAndListAccepted(t *testing.T) {
	require.True(t, ValidateCron("*/5 * * * *").Valid)
	require.True(t, ValidateCron("0 9-17 * * *").Valid)
	require.True(t, ValidateCron("0 9 * * 1,3,5").Valid)
}

func TestValidateCron_OutOfRangeRejected(t *testing.T) {
	result := ValidateCron("60 * * * *")
	require.False(t, result.Valid)
	require.Contains(t, result.Error, "minute")
}

func TestValidateCron_RangeWithLoGreaterThanHiRejected(t *testing.T) {
	require.False(t, ValidateCron("0 17-9 * * *").Valid)
}

func TestValidateCron_NonNumericPartRejected(t *testing.T) {
	require.False(t, ValidateCron("abc * * * *").Valid)
}

func TestValidateCron_WeekdayAcceptsZeroAndSeven(t *testing.T) {
	require.True(t, ValidateCron("0 0 * * 0").Valid)
	require.True(t, ValidateCron("0 0 * * 7").Valid)
	require.False(t, ValidateCron("0 0 * * 8").Valid)
}
