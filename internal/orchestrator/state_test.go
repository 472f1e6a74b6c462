package orchestrator

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMutate_FailedMutationRestoresSnapshot(t *testing.T) {
	s := NewStateManager(zerolog.Nop())
	s.SetSkillPrompt("greeting", "hello")

	restored := false
	err := s.Mutate("skill", "greeting", func() { restored = true }, func() error {
		s.SetSkillPrompt("greeting", "corrupted mid-write")
		return errors.New("downstream write failed")
	})

	require.Error(t, err)
	require.True(t, restored, "onRestore must fire on a failed mutation")
	prompt, ok := s.SkillPrompt("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", prompt, "a failed mutation must leave state exactly as it was before")
}

func TestMutate_SuccessfulMutationKeepsChange(t *testing.T) {
	s := NewStateManager(zerolog.Nop())

	err := s.Mutate("skill", "greeting", nil, func() error {
		s.SetSkillPrompt("greeting", "hello")
		return nil
	})

	require.NoError(t, err)
	prompt, ok := s.SkillPrompt("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", prompt)
}

func TestMutate_SameKeyQueuedCallsAllRun(t *testing.T) {
	s := NewStateManager(zerolog.Nop())

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_ = s.Mutate("skill", "shared", nil, func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	require.Len(t, order, 5, "every queued mutation on the same key must eventually run")
}

func TestAddTool_ResolvesByNameAndID(t *testing.T) {
	s := NewStateManager(zerolog.Nop())
	s.AddTool("filesystem", "filesystem:read_file", "read_file", "reads a file")

	mcp, ok := s.ResolveToolMCP("read_file")
	require.True(t, ok)
	require.Equal(t, "filesystem", mcp)

	mcp, ok = s.ResolveToolMCP("filesystem:read_file")
	require.True(t, ok)
	require.Equal(t, "filesystem", mcp)
}

func TestRemoveMCPTools_DropsOnlyThatMCP(t *testing.T) {
	s := NewStateManager(zerolog.Nop())
	s.AddTool("filesystem", "filesystem:read_file", "read_file", "reads a file")
	s.AddTool("github", "github:create_issue", "create_issue", "creates an issue")

	s.RemoveMCPTools("filesystem")

	_, ok := s.ResolveToolMCP("read_file")
	require.False(t, ok)
	mcp, ok := s.ResolveToolMCP("create_issue")
	require.True(t, ok)
	require.Equal(t, "github", mcp)
}
