// Package macro stores each macro as one JSON file in a directory.
package macro

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/offlinefirst/macrorec/pkg/events"
)

// Ext is the file extension of a stored macro.
const Ext = ".json"

// DefaultDir is the store directory used when none is configured.
const DefaultDir = "macros_json"

var (
	ErrNotFound    = errors.New("macro not found")
	ErrExists      = errors.New("macro already exists")
	ErrInvalidName = errors.New("invalid macro name")
	ErrMalformed   = errors.New("malformed macro file")
)

// Store is a directory of <name>.json macro files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("macro directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create macro directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// ValidateName rejects names that cannot be used as a file stem.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name != strings.TrimSpace(name):
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Path returns the file path for name.
func (s *Store) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+Ext), nil
}

// List returns the stored macro names in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), Ext)
		if ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a macro file for name is present.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Create stores an empty macro under the first free name macro1, macro2, ...
func (s *Store) Create() (string, error) {
	names, err := s.List()
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	for i := 1; ; i++ {
		name := "macro" + strconv.Itoa(i)
		if taken[name] {
			continue
		}
		if err := s.CreateNamed(name); err != nil {
			return "", err
		}
		return name, nil
	}
}

// CreateNamed stores an empty macro under name. It fails with ErrExists if
// the name is taken.
func (s *Store) CreateNamed(name string) error {
	if s.Exists(name) {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return s.Save(name, events.Log{})
}

// Load reads the macro called name. A file that cannot be parsed yields an
// empty log together with an error wrapping ErrMalformed.
func (s *Store) Load(name string) (events.Log, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read macro %s: %w", name, err)
	}
	log, err := events.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("macro file is malformed", "macro", name, "error", err)
		return events.Log{}, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	return log, nil
}

// Save replaces the macro called name with log. The file is written to a
// temporary sibling and renamed into place, so a failed save leaves the
// previous contents intact.
func (s *Store) Save(name string, log events.Log) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	data, err := events.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode macro %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	s.logger.Debug("macro saved", "macro", name, "events", len(log))
	return nil
}

// Rename moves oldName to newName. Renaming to the current name is a no-op;
// an existing target is refused with ErrExists.
func (s *Store) Rename(oldName, newName string) error {
	oldPath, err := s.Path(oldName)
	if err != nil {
		return err
	}
	newPath, err := s.Path(newName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if !s.Exists(oldName) {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if s.Exists(newName) {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename macro %s to %s: %w", oldName, newName, err)
	}
	s.logger.Info("macro renamed", "from", oldName, "to", newName)
	return nil
}

// Delete removes the macro called name.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete macro %s: %w", name, err)
	}
	s.logger.Info("macro deleted", "macro", name)
	return nil
}
