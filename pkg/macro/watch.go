package macro

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Op classifies a change to a stored macro.
type Op uint8

const (
	Created Op = iota + 1
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change reports that the macro Name was created, modified or removed.
type Change struct {
	Name string
	Op   Op
}

// Watch calls fn for every change to a macro file in the store directory
// until ctx is done. fn runs on the watching goroutine.
func (s *Store) Watch(ctx context.Context, fn func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.logger.Debug("watching macro directory", "dir", s.dir)

	names, err := s.List()
	if err != nil {
		return err
	}
	known := newKnownSet(names)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if change, ok := changeFor(ev); ok {
				fn(known.settle(change))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("macro watcher error", "error", err)
		}
	}
}

// knownSet remembers which macros exist so a save, which lands as a rename
// into place, reads as Modified rather than Created.
type knownSet map[string]struct{}

func newKnownSet(names []string) knownSet {
	k := make(knownSet, len(names))
	for _, n := range names {
		k[n] = struct{}{}
	}
	return k
}

func (k knownSet) settle(c Change) Change {
	_, exists := k[c.Name]
	switch c.Op {
	case Created:
		if exists {
			c.Op = Modified
		}
		k[c.Name] = struct{}{}
	case Modified:
		k[c.Name] = struct{}{}
	case Removed:
		delete(k, c.Name)
	}
	return c
}

func changeFor(ev fsnotify.Event) (Change, bool) {
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, Ext) {
		return Change{}, false
	}
	name := strings.TrimSuffix(base, Ext)
	if ValidateName(name) != nil {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return Change{Name: name, Op: Created}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Name: name, Op: Removed}, true
	case ev.Has(fsnotify.Write):
		return Change{Name: name, Op: Modified}, true
	default:
		return Change{}, false
	}
}
