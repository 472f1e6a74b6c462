package skill

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, s.List())
}

func TestAdd_DuplicateNameFails(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Add(Skill{Name: "greet", Prompt: "hello"}))
	err = s.Add(Skill{Name: "greet", Prompt: "hi again"})
	require.Error(t, err)

	prompt, ok := s.Get("greet")
	require.True(t, ok)
	require.Equal(t, "hello", prompt.Prompt, "a failed Add must not overwrite the existing skill")
}

func TestUpdate_UnknownNameFails(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	err = s.Update(Skill{Name: "missing", Prompt: "x"})
	require.Error(t, err)
}

func TestRemove_UnknownNameFails(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	err = s.Remove("missing")
	require.Error(t, err)
}

func TestAddThenReopen_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Add(Skill{Name: "greet", Prompt: "hello", Description: "a greeting"}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	sk, ok := reopened.Get("greet")
	require.True(t, ok)
	require.Equal(t, "hello", sk.Prompt)
	require.Equal(t, "a greeting", sk.Description)
}

func TestList_SortedByName(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Add(Skill{Name: "zeta", Prompt: "z"}))
	require.NoError(t, s.Add(Skill{Name: "alpha", Prompt: "a"}))

	got := s.List()
	require.Len(t, got, 2)
	require.Equal(t, "alpha", got[0].Name)
	require.Equal(t, "zeta", got[1].Name)
}

func TestUpdate_ReplacesPromptAndPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Add(Skill{Name: "greet", Prompt: "hello"}))
	require.NoError(t, s.Update(Skill{Name: "greet", Prompt: "howdy"}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	sk, ok := reopened.Get("greet")
	require.True(t, ok)
	require.Equal(t, "howdy", sk.Prompt)
}

func TestRemove_DropsSkillAndPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Add(Skill{Name: "greet", Prompt: "hello"}))
	require.NoError(t, s.Remove("greet"))

	reopened, err := Open(dir)
	require.NoError(t, err)
	_, ok := reopened.Get("greet")
	require.False(t, ok)
}
