// Package settings persists per-plugin settings as YAML files under
// <pluginsDir>/<dataDir>/<pluginID>/Settings.yaml.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file kept in every plugin data directory.
const FileName = "Settings.yaml"

// ErrNotPointer is returned when the settings target cannot be filled in place.
var ErrNotPointer = errors.New("settings target must be a non-nil pointer")

// Store resolves plugin data directories below a root.
type Store struct {
	root string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory holding all plugin data directories.
func (s *Store) Root() string { return s.root }

// Dir returns the data directory of plugin id.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// Path returns the settings file of plugin id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.Dir(id), FileName)
}

// EnsureDir creates the data directory of plugin id if missing.
func (s *Store) EnsureDir(id string) (string, error) {
	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// LoadOrCreate fills target from the settings file of plugin id. When no
// file exists target is persisted as is and created reports true.
func (s *Store) LoadOrCreate(id string, target any) (created bool, err error) {
	if rv := reflect.ValueOf(target); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, ErrNotPointer
	}

	path := s.Path(id)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(id, target); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return false, nil
}

// Save writes value as the settings file of plugin id.
func (s *Store) Save(id string, value any) error {
	if _, err := s.EnsureDir(id); err != nil {
		return err
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
