package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_UnknownNameDefaultsHealthy(t *testing.T) {
	m := NewMonitor()
	require.True(t, m.Status("never-probed").Healthy)
}

func TestMarkUnhealthy_ThenMarkHealthy_ClearsError(t *testing.T) {
	m := NewMonitor()
	m.MarkUnhealthy("filesystem", errors.New("connection refused"))

	status := m.Status("filesystem")
	require.False(t, status.Healthy)
	require.Equal(t, "connection refused", status.LastError)

	m.MarkHealthy("filesystem")
	status = m.Status("filesystem")
	require.True(t, status.Healthy)
	require.Empty(t, status.LastError)
}

func TestFilterHealthy_DropsOnlyMarkedUnhealthy(t *testing.T) {
	m := NewMonitor()
	m.MarkUnhealthy("broken", errors.New("boom"))
	m.MarkHealthy("ok")

	got := m.FilterHealthy([]string{"broken", "ok", "never-probed"})
	require.ElementsMatch(t, []string{"ok", "never-probed"}, got)
}
