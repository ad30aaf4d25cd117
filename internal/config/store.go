// Package config implements the durable key-value store backing qmd-bridge.
//
// Values live in a single YAML document addressed by dot-separated paths
// (`server.port`, `tenants.<label>`). Every Set/Delete writes through to disk
// before returning. Tenant material is credential data, so the file is forced
// to owner-only permissions after every mutating write.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// storeFileMode is owner read/write only. Tokens live in this file.
const storeFileMode = 0o600

// Store is a flock-guarded, write-through YAML document.
type Store struct {
	path string
	lock *flock.Flock

	mu   sync.RWMutex
	data map[string]any
}

// Open loads the store at path, creating an empty one if the file does not
// exist. The parent directory is created as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		data: make(map[string]any),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the on-disk location of the store file.
func (s *Store) Path() string {
	return s.path
}

// load reads the YAML document, holding the cross-process lock.
func (s *Store) load() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock config store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config store: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse config store %s: %w", s.path, err)
	}
	if doc != nil {
		s.data = doc
	}
	return nil
}

// Get returns the value at the dot-separated key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := any(s.data)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

// GetString returns the string value at key, or def if absent or not a string.
func (s *Store) GetString(key, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		return def
	}
	return str
}

// GetInt returns the integer value at key, or def if absent or not numeric.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// Sub returns a copy of the map stored at key. Missing or non-map values
// yield an empty map.
func (s *Store) Sub(key string) map[string]any {
	v, ok := s.Get(key)
	if !ok {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

// Set stores value at the dot-separated key and persists synchronously.
// Intermediate maps are created as needed; a non-map intermediate is
// overwritten.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	parts := strings.Split(key, ".")
	node := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
	s.mu.Unlock()

	return s.save()
}

// Delete removes the value at key and persists synchronously. Deleting an
// absent key is a no-op that still returns nil.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	parts := strings.Split(key, ".")
	node := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			s.mu.Unlock()
			return nil
		}
		node = next
	}
	delete(node, parts[len(parts)-1])
	s.mu.Unlock()

	return s.save()
}

// save writes the document to disk atomically (temp file + rename) under the
// cross-process lock, then hardens permissions.
func (s *Store) save() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock config store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	s.mu.RLock()
	raw, err := yaml.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, storeFileMode); err != nil {
		return fmt.Errorf("write config store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config store: %w", err)
	}

	return s.Harden()
}

// Harden restricts the store file to owner read/write. Runs after every save
// since tenant tokens live in the document.
func (s *Store) Harden() error {
	if err := os.Chmod(s.path, storeFileMode); err != nil {
		return fmt.Errorf("harden config store: %w", err)
	}
	return nil
}

// DefaultPath returns the store location, following XDG conventions the same
// way the rest of the user state does.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "qmd-bridge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "qmd-bridge", "config.yaml")
	}
	return filepath.Join(home, ".config", "qmd-bridge", "config.yaml")
}
