package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.MacrosDir != "macros_json" {
		t.Fatalf("expected default macros dir, got %q", cfg.Paths.MacrosDir)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("expected default source marker, got %q", cfg.Source)
	}
	if cfg.Input.Backend != BackendAuto {
		t.Fatalf("unexpected default backend: %q", cfg.Input.Backend)
	}
	if cfg.Input.PollInterval() != 8*time.Millisecond {
		t.Fatalf("unexpected default poll interval: %v", cfg.Input.PollInterval())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected default log format: %q", cfg.Logging.Format)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DefaultFileName)
	content := `[paths]
macros_dir = "recordings/"
settings_file = "conf/settings.json"

[input]
backend = "Scripted"
poll_interval_ms = 16

[logging]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Paths.MacrosDir; got != "recordings" {
		t.Fatalf("unexpected macros dir: %q", got)
	}
	if got := cfg.Paths.SettingsFile; got != filepath.Join("conf", "settings.json") {
		t.Fatalf("unexpected settings file: %q", got)
	}
	if got := cfg.Paths.HistoryFile; got != "history.jsonl" {
		t.Fatalf("expected default history file, got %q", got)
	}
	if cfg.Input.Backend != BackendScripted {
		t.Fatalf("unexpected backend: %q", cfg.Input.Backend)
	}
	if cfg.Input.PollInterval() != 16*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", cfg.Input.PollInterval())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if cfg.Source != cfgPath {
		t.Fatalf("expected source to equal path, got %q", cfg.Source)
	}
}

func TestUnknownKeyReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DefaultFileName)
	content := "[input]\nunsupported = true\n"

	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatalf("expected error for unsupported key")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestInvalidValuesReturnError(t *testing.T) {
	cases := map[string]string{
		"backend":  "[input]\nbackend = \"telepathy\"\n",
		"interval": "[input]\npoll_interval_ms = -4\n",
		"level":    "[logging]\nlevel = \"loud\"\n",
		"format":   "[logging]\nformat = \"xml\"\n",
		"syntax":   "[paths\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), DefaultFileName)
			if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(cfgPath); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNormalizeHelpers(t *testing.T) {
	if got, err := NormalizeLogLevel(" Warning "); err != nil || got != "warn" {
		t.Fatalf("unexpected level normalisation: %q %v", got, err)
	}
	if got, err := NormalizeFormat("TEXT"); err != nil || got != "console" {
		t.Fatalf("unexpected format normalisation: %q %v", got, err)
	}
	if got, err := NormalizeBackend(""); err != nil || got != BackendAuto {
		t.Fatalf("unexpected backend normalisation: %q %v", got, err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `paths:
  macros_dir: recordings
input:
  backend: scripted
logging:
  level: warn
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.MacrosDir != "recordings" || cfg.Input.Backend != BackendScripted || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected yaml config: %+v", cfg)
	}
	if cfg.Input.PollIntervalMS != 8 {
		t.Fatalf("expected default poll interval to survive, got %d", cfg.Input.PollIntervalMS)
	}
}

func TestLoadYAMLRejectsUnknownKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(cfgPath, []byte("input:\n  telepathy: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "telepathy") {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.MacrosDir != "macros_json" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestImplicitYAMLIsFound(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}
	if err := os.WriteFile("config.yaml", []byte("logging:\n  format: json\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Source != "config.yaml" || cfg.Logging.Format != "json" {
		t.Fatalf("expected implicit yaml config, got source=%q format=%q", cfg.Source, cfg.Logging.Format)
	}
}
