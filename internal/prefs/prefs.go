package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ThemeKey stores the chosen colour scheme, "light" or "dark".
const ThemeKey = "ai-chat-theme"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store is a small key-value file persisted as YAML.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open loads the preference file at path, or starts empty if it does not exist.
func Open(path string) (*Store, error) {
	p := expandHome(path)
	s := &Store{path: p, values: map[string]string{}}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse prefs: %w", err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set updates key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.save()
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Theme returns the stored theme. Without a valid stored value it asks
// prefersDark, which may be nil.
func (s *Store) Theme(prefersDark func() bool) string {
	if v, ok := s.Get(ThemeKey); ok && (v == ThemeLight || v == ThemeDark) {
		return v
	}
	if prefersDark != nil && prefersDark() {
		return ThemeDark
	}
	return ThemeLight
}

// ToggleTheme flips the current theme, persists it and returns the new value.
func (s *Store) ToggleTheme(prefersDark func() bool) (string, error) {
	next := ThemeDark
	if s.Theme(prefersDark) == ThemeDark {
		next = ThemeLight
	}
	if err := s.Set(ThemeKey, next); err != nil {
		return s.Theme(prefersDark), err
	}
	return next, nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
