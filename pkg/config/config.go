package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultFileName = "config.toml"

// implicitFiles are tried in order when no path is given.
var implicitFiles = []string{DefaultFileName, "config.yaml", "config.yml"}

// Input backends accepted in [input].backend.
const (
	BackendAuto     = "auto"
	BackendScripted = "scripted"
)

// Config captures the user-adjustable knobs for the CLI.
type Config struct {
	Paths   PathsConfig   `toml:"paths" yaml:"paths"`
	Input   InputConfig   `toml:"input" yaml:"input"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `toml:"-" yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	MacrosDir    string `toml:"macros_dir" yaml:"macros_dir"`
	SettingsFile string `toml:"settings_file" yaml:"settings_file"`
	HistoryFile  string `toml:"history_file" yaml:"history_file"`
}

// InputConfig selects the input hook backend.
type InputConfig struct {
	Backend        string `toml:"backend" yaml:"backend"`
	PollIntervalMS int    `toml:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// PollInterval returns the polling cadence for backends that sample state.
func (c InputConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			MacrosDir:    "macros_json",
			SettingsFile: "settings.json",
			HistoryFile:  "history.jsonl",
		},
		Input: InputConfig{
			Backend:        BackendAuto,
			PollIntervalMS: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader tries ./config.toml then ./config.yaml and
// tolerates their absence. Files ending in .yaml or .yml are read as YAML,
// everything else as TOML.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	var file *os.File
	if candidate != "" {
		f, err := os.Open(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
		}
		file = f
	} else {
		for _, name := range implicitFiles {
			f, err := os.Open(name)
			if err == nil {
				candidate, file = name, f
				break
			}
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("open config file %q: %w", name, err)
			}
		}
		if file == nil {
			return cfg, nil
		}
	}
	defer file.Close()

	var err error
	switch strings.ToLower(filepath.Ext(candidate)) {
	case ".yaml", ".yml":
		err = decodeYAML(file, &cfg)
	default:
		err = decodeTOML(file, &cfg)
	}
	if err != nil {
		return Default(), fmt.Errorf("config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decodeTOML(r io.Reader, cfg *Config) error {
	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg)
	if err == nil {
		return nil
	}
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return fmt.Errorf("unknown key:\n%s", strict.String())
	}
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Errorf("line %d column %d: %w", row, col, err)
	}
	return err
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("invalid keys or values:\n  %s", strings.Join(typeErr.Errors, "\n  "))
	}
	return err
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.MacrosDir) == "" {
		return errors.New("paths.macros_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.SettingsFile) == "" {
		return errors.New("paths.settings_file must not be empty")
	}
	if strings.TrimSpace(c.Paths.HistoryFile) == "" {
		return errors.New("paths.history_file must not be empty")
	}
	if _, err := NormalizeBackend(c.Input.Backend); err != nil {
		return err
	}
	if c.Input.PollIntervalMS <= 0 {
		return errors.New("input.poll_interval_ms must be positive")
	}
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	clean := func(p *string, fallback string) {
		v := strings.TrimSpace(*p)
		if v == "" {
			*p = fallback
			return
		}
		*p = filepath.Clean(v)
	}
	clean(&c.Paths.MacrosDir, defaults.Paths.MacrosDir)
	clean(&c.Paths.SettingsFile, defaults.Paths.SettingsFile)
	clean(&c.Paths.HistoryFile, defaults.Paths.HistoryFile)

	if backend, err := NormalizeBackend(c.Input.Backend); err == nil {
		c.Input.Backend = backend
	}
	if c.Input.PollIntervalMS == 0 {
		c.Input.PollIntervalMS = defaults.Input.PollIntervalMS
	}
	if level, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}
}

// NormalizeBackend validates and lowercases input backend names.
func NormalizeBackend(backend string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendScripted:
		return BackendScripted, nil
	default:
		return "", fmt.Errorf("unsupported input backend %q", backend)
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
