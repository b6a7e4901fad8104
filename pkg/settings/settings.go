// Package settings persists the user's hotkeys and recording delay.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/offlinefirst/macrorec/pkg/hotkey"
	"github.com/offlinefirst/macrorec/pkg/keys"
	"github.com/offlinefirst/macrorec/pkg/recorder"
)

// DefaultFileName is the settings file used when none is configured.
const DefaultFileName = "settings.json"

// DefaultRecordingDelay is the arming delay in seconds.
const DefaultRecordingDelay = recorder.DefaultDelay

var ErrInvalid = errors.New("invalid settings")

// Settings holds the optional hotkeys and the arming delay. A zero key means
// unbound.
type Settings struct {
	StartKey       keys.Key
	StopKey        keys.Key
	PlayKey        keys.Key
	RecordingDelay float64
}

// Default returns settings with no hotkeys and the default delay.
func Default() Settings {
	return Settings{RecordingDelay: DefaultRecordingDelay}
}

type fileFormat struct {
	StartKey       *string  `json:"start_key"`
	StopKey        *string  `json:"stop_key"`
	PlayKey        *string  `json:"play_key"`
	RecordingDelay *float64 `json:"recording_delay"`
}

// Validate checks the delay. Keys are valid by construction.
func (s Settings) Validate() error {
	if s.RecordingDelay < 0 {
		return fmt.Errorf("%w: recording_delay must be >= 0, got %v", ErrInvalid, s.RecordingDelay)
	}
	return nil
}

// Bindings derives the hotkey table.
func (s Settings) Bindings() hotkey.Bindings {
	return hotkey.BindingsFor(s.StartKey, s.StopKey, s.PlayKey)
}

// Load reads path. A missing file yields defaults and no error. Any other
// failure yields defaults together with the error so callers can report it
// without failing startup.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Default(), fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes settings JSON. Missing keys are unbound and a missing delay
// takes the default.
func Parse(data []byte) (Settings, error) {
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s := Default()
	fields := []struct {
		name string
		src  *string
		dst  *keys.Key
	}{
		{"start_key", raw.StartKey, &s.StartKey},
		{"stop_key", raw.StopKey, &s.StopKey},
		{"play_key", raw.PlayKey, &s.PlayKey},
	}
	for _, f := range fields {
		if f.src == nil || *f.src == "" {
			continue
		}
		k, err := keys.Decode(*f.src)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %w", ErrInvalid, f.name, err)
		}
		*f.dst = k
	}
	if raw.RecordingDelay != nil {
		s.RecordingDelay = *raw.RecordingDelay
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Marshal encodes s in the settings file format.
func Marshal(s Settings) ([]byte, error) {
	encode := func(k keys.Key) *string {
		if k.IsZero() {
			return nil
		}
		v := k.Encode()
		return &v
	}
	delay := s.RecordingDelay
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	err := enc.Encode(fileFormat{
		StartKey:       encode(s.StartKey),
		StopKey:        encode(s.StopKey),
		PlayKey:        encode(s.PlayKey),
		RecordingDelay: &delay,
	})
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

// Save validates s and writes it to path through a temporary file.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
