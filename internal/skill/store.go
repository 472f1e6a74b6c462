// Package skill persists the prompt text backing the "skills" internal MCP
// (spec §4.10's internal MCP handlers): a named, reusable chunk of prompt
// text a client can add, update, remove, and look up without touching any
// downstream MCP server.
package skill

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ncp-run/ncp/internal/fsutil"
)

// Skill is one named prompt.
type Skill struct {
	Name        string `json:"name"`
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
}

type storeFile struct {
	Skills map[string]Skill `json:"skills"`
}

// Store is the persisted skill-prompt store, backed by a single JSON file
// written atomically via internal/fsutil.
type Store struct {
	mu   sync.Mutex
	path string
	data storeFile
}

// Open loads (or initializes) the store at <baseDir>/skills.json.
func Open(baseDir string) (*Store, error) {
	s := &Store{path: filepath.Join(baseDir, "skills.json")}
	raw, err := fsutil.ReadFileOrEmpty(s.path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		s.data = storeFile{Skills: map[string]Skill{}}
		return s, nil
	}
	var file storeFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.data = storeFile{Skills: map[string]Skill{}}
		return s, nil
	}
	if file.Skills == nil {
		file.Skills = map[string]Skill{}
	}
	s.data = file
	return s, nil
}

// Add inserts a new skill, failing if name already exists.
func (s *Store) Add(sk Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Skills[sk.Name]; exists {
		return ErrDuplicateSkill(sk.Name)
	}
	s.data.Skills[sk.Name] = sk
	return s.flushLocked()
}

// Update replaces an existing skill's prompt/description, failing if name
// is not registered.
func (s *Store) Update(sk Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Skills[sk.Name]; !exists {
		return ErrSkillNotFound(sk.Name)
	}
	s.data.Skills[sk.Name] = sk
	return s.flushLocked()
}

// Remove deletes a skill, failing if name is not registered.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Skills[name]; !exists {
		return ErrSkillNotFound(name)
	}
	delete(s.data.Skills, name)
	return s.flushLocked()
}

// Get returns a skill by name.
func (s *Store) Get(name string) (Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.data.Skills[name]
	return sk, ok
}

// List returns every skill, sorted by name.
func (s *Store) List() []Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Skill, 0, len(s.data.Skills))
	for _, sk := range s.data.Skills {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) flushLocked() error {
	return fsutil.AtomicWriteJSON(s.path, s.data)
}
