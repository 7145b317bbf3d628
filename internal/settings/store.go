// Package settings reads and writes the INI settings file shared with the
// collector (~/.wakatime.cfg) and the internal state file next to it.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// Section names used by the agent.
const (
	SectionSettings = "settings"
	SectionInternal = "internal"
)

// Store is read-through key/value access by section.
type Store interface {
	Get(section, key string) (string, bool)
	Set(section, key, value string) error
}

// FileStore is a Store backed by one INI file. Every Get reads the file so
// edits made by other tools are picked up.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore for path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns the trimmed value of key in section. Missing files, sections
// and keys all report ok=false.
func (s *FileStore) Get(section, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", false
	}
	sec, err := f.GetSection(strings.ToLower(section))
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	return removeNulls(strings.TrimSpace(sec.Key(key).String())), true
}

// Set writes key = value into section, creating the file and section when
// needed. The file is replaced atomically.
func (s *FileStore) Set(section, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	f.Section(strings.ToLower(section)).Key(key).SetValue(removeNulls(value))

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	tmpName := tmp.Name()

	if _, err = f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// load parses the file, returning an empty document when it does not exist.
func (s *FileStore) load() (*ini.File, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return ini.Empty(), nil
	}
	return ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, s.path)
}

func removeNulls(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// homeDir returns $WAKATIME_HOME when set, else the user's home directory.
func homeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("WAKATIME_HOME")); h != "" {
		return h, nil
	}
	return os.UserHomeDir()
}

// DefaultPaths returns the settings file and the internal state file.
func DefaultPaths() (settingsPath, internalPath string, err error) {
	home, err := homeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".wakatime.cfg"),
		filepath.Join(home, ".wakatime", "wakatime-internal.cfg"), nil
}
