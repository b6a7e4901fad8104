package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/macrorec/pkg/history"
	"github.com/offlinefirst/macrorec/pkg/input"
)

func TestHistoryEmpty(t *testing.T) {
	ctx := newTestContext(t)
	out, _, err := runCommand(t, newHistoryCommand(), ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No sessions") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestHistoryListsNewestFirst(t *testing.T) {
	ctx := newTestContext(t)
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := history.NewEntry(history.KindRecord, "first", base)
	rec.Events = 11
	rec.Finish(base.Add(2*time.Second), nil)
	ctx.appendHistory(rec)

	play := history.NewEntry(history.KindPlay, "second", base.Add(time.Minute))
	play.Events, play.Failed = 4, 1
	play.Finish(base.Add(time.Minute+500*time.Millisecond), history.Interrupted(errors.New("ctrl-c")))
	ctx.appendHistory(play)

	out, _, err := runCommand(t, newHistoryCommand(), ctx, "-n", "0")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "second") || !strings.Contains(lines[1], "4 (1 failed)") || !strings.Contains(lines[1], "interrupted") {
		t.Fatalf("unexpected newest row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "first") || !strings.Contains(lines[2], "2s") {
		t.Fatalf("unexpected oldest row: %q", lines[2])
	}

	out, _, err = runCommand(t, newHistoryCommand(), ctx, "-n", "1")
	if err != nil {
		t.Fatalf("history -n 1: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("-n 1 should only show the newest session:\n%s", out)
	}
}

func TestDoctorReportsScriptedBackend(t *testing.T) {
	ctx := newTestContext(t)
	out, _, err := runCommand(t, newDoctorCommand(), ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	for _, want := range []string{"backend:      scripted", "provider:   scripted", "macros:", "(0)", "not created yet", "(0 sessions)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in doctor output:\n%s", want, out)
		}
	}
}

func TestDoctorReportsPlatformEnvironment(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Input.Backend = "auto"
	orig := detectEnvironment
	detectEnvironment = func() input.Environment {
		return input.Environment{
			Provider:   input.ProviderX11,
			Available:  false,
			Permission: "unavailable",
			Message:    "no X11 display",
			Guidance:   "set DISPLAY or use --backend=scripted",
		}
	}
	defer func() { detectEnvironment = orig }()

	out, _, err := runCommand(t, newDoctorCommand(), ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	for _, want := range []string{"provider:   x11_poll", "available:  false", "no X11 display", "hint:       set DISPLAY"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in doctor output:\n%s", want, out)
		}
	}
}
