package cmd

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/keys"
	"github.com/offlinefirst/macrorec/pkg/settings"
)

func TestSettingsShowsDefaultsWithoutWriting(t *testing.T) {
	ctx := newTestContext(t)

	out, _, err := runCommand(t, newSettingsCommand(), ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !strings.Contains(out, "start key:       (unbound)") || !strings.Contains(out, "recording delay: 0.1s") {
		t.Fatalf("unexpected defaults output:\n%s", out)
	}
	if _, err := os.Stat(ctx.Config.Paths.SettingsFile); !os.IsNotExist(err) {
		t.Fatalf("showing settings must not create the file, stat err=%v", err)
	}
}

func TestSettingsUpdatesAndClears(t *testing.T) {
	ctx := newTestContext(t)

	out, _, err := runCommand(t, newSettingsCommand(), ctx, "-start-key", "Key.f9", "-stop-key", "f9", "-play-key", "p", "-delay", "0.5")
	if err != nil {
		t.Fatalf("settings update: %v", err)
	}
	if !strings.Contains(out, "toggles recording") {
		t.Fatalf("expected toggle notice, got:\n%s", out)
	}

	got, err := settings.Load(ctx.Config.Paths.SettingsFile)
	if err != nil {
		t.Fatalf("load saved settings: %v", err)
	}
	f9 := keys.Named(keys.F9)
	if got.StartKey != f9 || got.StopKey != f9 || got.PlayKey != keys.Char('p') || got.RecordingDelay != 0.5 {
		t.Fatalf("unexpected saved settings: %+v", got)
	}

	if _, _, err := runCommand(t, newSettingsCommand(), ctx, "-clear", "play"); err != nil {
		t.Fatalf("clear play: %v", err)
	}
	got, _ = settings.Load(ctx.Config.Paths.SettingsFile)
	if !got.PlayKey.IsZero() || got.StartKey != f9 {
		t.Fatalf("clear play should only unbind play: %+v", got)
	}

	if _, _, err := runCommand(t, newSettingsCommand(), ctx, "-clear", "all", "-start-key", "Key.f2"); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	got, _ = settings.Load(ctx.Config.Paths.SettingsFile)
	if got.StartKey != keys.Named(keys.F2) || !got.StopKey.IsZero() {
		t.Fatalf("explicit keys apply after --clear: %+v", got)
	}
}

func TestSettingsRejectsBadValues(t *testing.T) {
	ctx := newTestContext(t)
	cases := map[string][]string{
		"unknown key":    {"-start-key", "Key.warp"},
		"garbage key":    {"-play-key", "__import__('os')"},
		"negative delay": {"-delay", "-2"},
		"bad delay":      {"-delay", "later"},
		"bad clear":      {"-clear", "everything"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := runCommand(t, newSettingsCommand(), ctx, args...); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
	if _, err := os.Stat(ctx.Config.Paths.SettingsFile); !os.IsNotExist(err) {
		t.Fatalf("rejected updates must not write the file, stat err=%v", err)
	}
}

func TestBindCapturesNextKeyPress(t *testing.T) {
	ctx := newTestContext(t)

	out, _, err := runCommand(t, newBindCommand(), ctx, "start")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !strings.Contains(out, "Bound start to 'h'") {
		t.Fatalf("unexpected bind output: %q", out)
	}
	got, err := settings.Load(ctx.Config.Paths.SettingsFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.StartKey != keys.Char('h') {
		t.Fatalf("expected start bound to h, got %v", got.StartKey)
	}
}

func TestBindFailsWhenNoKeyArrives(t *testing.T) {
	ctx := newTestContext(t)
	orig := demoScript
	demoScript = func() []input.Step {
		return []input.Step{{After: 0, Event: events.Move(0, 1, 1)}}
	}
	defer func() { demoScript = orig }()

	if _, _, err := runCommand(t, newBindCommand(), ctx, "stop"); err == nil {
		t.Fatalf("expected an error when the source ends without a key press")
	}
	if _, err := os.Stat(ctx.Config.Paths.SettingsFile); !os.IsNotExist(err) {
		t.Fatalf("a failed bind must not write settings, stat err=%v", err)
	}
}

func TestBindRejectsUnknownAction(t *testing.T) {
	ctx := newTestContext(t)
	if _, _, err := runCommand(t, newBindCommand(), ctx, "pause"); err == nil {
		t.Fatalf("expected error for unknown hotkey action")
	}
}

func TestSettingsKeepsUnreadableFile(t *testing.T) {
	ctx := newTestContext(t)
	path := ctx.Config.Paths.SettingsFile
	stored := `{"start_key":"Key.f9","stop_key":"Key.f10","play_key":"Key.warp","recording_delay":0.3}`
	if err := os.WriteFile(path, []byte(stored), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	unchanged := func() {
		t.Helper()
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read settings: %v", err)
		}
		if string(data) != stored {
			t.Fatalf("settings file was rewritten:\n%s", data)
		}
	}

	out, stderr, err := runCommand(t, newSettingsCommand(), ctx)
	if err != nil {
		t.Fatalf("showing an unreadable file should not fail: %v", err)
	}
	if !strings.Contains(stderr, "warning:") || !strings.Contains(out, "(unbound)") {
		t.Fatalf("expected a warning and defaults, got stdout=%q stderr=%q", out, stderr)
	}
	unchanged()

	if _, _, err := runCommand(t, newSettingsCommand(), ctx, "-delay", "0.5"); !errors.Is(err, errSettingsUnreadable) {
		t.Fatalf("expected errSettingsUnreadable, got %v", err)
	}
	unchanged()

	if _, _, err := runCommand(t, newBindCommand(), ctx, "play"); !errors.Is(err, errSettingsUnreadable) {
		t.Fatalf("bind: expected errSettingsUnreadable, got %v", err)
	}
	unchanged()

	if _, _, err := runCommand(t, newSettingsCommand(), ctx, "-clear", "all"); err != nil {
		t.Fatalf("clear all should reset an unreadable file: %v", err)
	}
	got, err := settings.Load(path)
	if err != nil {
		t.Fatalf("reset file should load: %v", err)
	}
	if got != settings.Default() {
		t.Fatalf("expected defaults after reset, got %+v", got)
	}
}
