// Package history keeps an append-only journal of recording and playback
// sessions, one JSON object per line.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every entry for compatibility checks.
const SchemaVersion = 1

// DefaultFileName is the journal file used when none is configured.
const DefaultFileName = "history.jsonl"

// Session kinds.
const (
	KindRecord = "record"
	KindPlay   = "play"
)

// Session outcome states.
const (
	StatePending     = "pending"
	StateCompleted   = "completed"
	StateInterrupted = "interrupted"
	StateErrored     = "error"
)

// Entry is the durable record of one session.
type Entry struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Macro         string    `json:"macro"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at,omitzero"`
	Events        int       `json:"events"`
	Failed        int       `json:"failed_events,omitempty"`
	State         string    `json:"state"`
	Error         string    `json:"error,omitempty"`
}

// NewEntry starts a pending entry with a fresh session id.
func NewEntry(kind, macro string, startedAt time.Time) Entry {
	return Entry{
		SchemaVersion: SchemaVersion,
		ID:            uuid.NewString(),
		Kind:          kind,
		Macro:         macro,
		StartedAt:     startedAt.UTC(),
		State:         StatePending,
	}
}

// Finish stamps the end time and derives the state from err.
func (e *Entry) Finish(endedAt time.Time, err error) {
	e.EndedAt = endedAt.UTC()
	switch {
	case err == nil:
		e.State = StateCompleted
	case errors.Is(err, errInterrupted):
		e.State = StateInterrupted
		e.Error = err.Error()
	default:
		e.State = StateErrored
		e.Error = err.Error()
	}
}

// Duration is the session length, zero while pending.
func (e Entry) Duration() time.Duration {
	if e.EndedAt.IsZero() {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

var errInterrupted = errors.New("interrupted")

// Interrupted wraps reason so Finish records the session as interrupted.
func Interrupted(reason error) error {
	if reason == nil {
		return errInterrupted
	}
	return fmt.Errorf("%w: %w", errInterrupted, reason)
}

// Journal appends entries to a JSON-lines file.
type Journal struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// Open returns a journal at path. The file is created on first Append.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path must not be empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{path: path, logger: logger}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Append writes entry as one line.
func (j *Journal) Append(entry Entry) error {
	if entry.ID == "" {
		return errors.New("history entry requires an id")
	}
	if _, err := uuid.Parse(entry.ID); err != nil {
		return fmt.Errorf("history entry id: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	j.logger.Debug("history appended", "id", entry.ID, "kind", entry.Kind, "state", entry.State)
	return nil
}

// Load returns every entry in file order. A missing journal is empty; lines
// that fail to decode are skipped with a warning.
func (j *Journal) Load() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			j.logger.Warn("skipping unreadable history line", "line", line, "error", err)
			continue
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

// Recent returns the last n entries, newest first. n <= 0 returns all.
func (j *Journal) Recent(n int) ([]Entry, error) {
	all, err := j.Load()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Entry, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
