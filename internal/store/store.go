// Package store persists the last-searched city between sessions.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// state is the on-disk shape.
type state struct {
	LastCity string `json:"last_city"`
}

// FileStore keeps the last-searched city in a small JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore backed by path. The file is created on
// first save; a missing or unreadable file just means no history.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SaveLastCity writes the city name, replacing any previous value.
func (s *FileStore) SaveLastCity(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(state{LastCity: name})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// LastCity returns the persisted city name, if one exists.
func (s *FileStore) LastCity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return "", false
	}
	city := strings.TrimSpace(st.LastCity)
	if city == "" {
		return "", false
	}
	return city, true
}
