package scheduler

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTimeoutErr(t *testing.T) {
	require.True(t, isTimeoutErr(&timeoutError{err: errors.New("deadline exceeded")}))
	require.False(t, isTimeoutErr(errors.New("plain error")))
	require.False(t, isTimeoutErr(nil))
}

func TestExitCodeOf(t *testing.T) {
	require.Equal(t, 0, exitCodeOf(&exec.Cmd{}, nil))
	require.Equal(t, -1, exitCodeOf(&exec.Cmd{}, errors.New("not an ExitError")))
}
