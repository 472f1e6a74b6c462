package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedule_EscalatesThenCaps(t *testing.T) {
	steps := []time.Duration{time.Hour, 6 * time.Hour, 24 * time.Hour}

	require.Equal(t, time.Duration(0), Schedule(steps, 0))
	require.Equal(t, time.Hour, Schedule(steps, 1))
	require.Equal(t, 6*time.Hour, Schedule(steps, 2))
	require.Equal(t, 24*time.Hour, Schedule(steps, 3))
	require.Equal(t, 24*time.Hour, Schedule(steps, 10), "beyond the table, the last step is the cap")
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDo_StopsWhenShouldRetryFalse(t *testing.T) {
	attempts := 0
	sentinel := errors.New("fatal")
	err := Do(context.Background(), Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return sentinel
	}, func(err error) bool { return false })

	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, attempts)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, Config{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}, func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}
