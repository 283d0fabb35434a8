package config

import (
	"sync"
)

// Store holds the live settings and persists updates back to the file.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// OpenStore loads settings from path into a new Store.
func OpenStore(path string) (*Store, error) {
	settings, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, current: settings}, nil
}

// NewMemoryStore returns a Store that never touches disk.
func NewMemoryStore(settings Settings) *Store {
	return &Store{current: settings.Clone()}
}

// Path returns the backing settings file, or "" for memory stores.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies fn to a copy of the settings and stores the result.
// File-backed stores write the new settings before making them visible.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	fn(&next)
	if err := Validate(next); err != nil {
		return err
	}
	if s.path != "" {
		if err := Save(s.path, next); err != nil {
			return err
		}
	}
	s.current = next
	return nil
}

// Reload re-reads the backing file and reports what changed.
// On error the previous settings stay in place.
func (s *Store) Reload() (Changes, error) {
	if s.path == "" {
		return Changes{}, nil
	}
	next, err := Load(s.path)
	if err != nil {
		return Changes{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changes := Diff(s.current, next)
	s.current = next
	return changes, nil
}
