package recorder

import (
	"errors"
	"testing"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

func newRecorder(t *testing.T, delay float64) (*Recorder, *events.ManualClock) {
	t.Helper()
	clock := &events.ManualClock{}
	clock.Set(10)
	r, err := New(Options{Delay: delay, Clock: clock.Now})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r, clock
}

func TestEventsInsideDelayWindowAreDropped(t *testing.T) {
	r, _ := newRecorder(t, 0.5)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.Record(events.KeyDown(10.2, keys.Char('a'))) {
		t.Fatalf("expected event inside delay window to be dropped")
	}
	if r.Record(events.KeyDown(10.5, keys.Char('b'))) {
		t.Fatalf("expected event at the arm time to be dropped")
	}
	if !r.Record(events.KeyDown(10.6, keys.Char('c'))) {
		t.Fatalf("expected event after delay to be recorded")
	}
	log, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(log) != 1 || log[0].Key != keys.Char('c') {
		t.Fatalf("unexpected log %v", log)
	}
}

func TestImmediateStopYieldsEmptyLog(t *testing.T) {
	r, _ := newRecorder(t, DefaultDelay)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Record(events.Move(10.01, 1, 1))
	log, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if log == nil || len(log) != 0 {
		t.Fatalf("expected empty log, got %v", log)
	}
}

func TestMoveCoalescing(t *testing.T) {
	r, _ := newRecorder(t, 0)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	steps := []struct {
		ev   events.Event
		kept bool
	}{
		{events.Move(11, 100, 100), true},
		{events.Move(11.1, 104, 96), false},
		{events.Move(11.2, 105, 100), true},
		{events.Move(11.3, 105, 104), false},
		{events.Move(11.4, 101, 109), true},
		{events.Click(11.5, 101, 109, events.ButtonLeft, true), true},
		{events.Move(11.6, 102, 110), true},
	}
	for i, step := range steps {
		if got := r.Record(step.ev); got != step.kept {
			t.Fatalf("step %d: expected kept=%t, got %t", i, step.kept, got)
		}
	}
	log, _ := r.Stop()
	if len(log) != 5 {
		t.Fatalf("expected 5 events, got %d", len(log))
	}
	for i := 1; i < len(log); i++ {
		prev, cur := log[i-1], log[i]
		if prev.Kind == events.MouseMove && cur.Kind == events.MouseMove &&
			abs(cur.X-prev.X) < MoveThreshold && abs(cur.Y-prev.Y) < MoveThreshold {
			t.Fatalf("adjacent moves %v and %v should have been coalesced", prev, cur)
		}
	}
}

func TestIdleRecorderIgnoresEvents(t *testing.T) {
	r, _ := newRecorder(t, 0)
	if r.Record(events.KeyDown(100, keys.Char('x'))) {
		t.Fatalf("idle recorder must not record")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestStartTwiceRefused(t *testing.T) {
	r, _ := newRecorder(t, 0)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if !r.IsRecording() {
		t.Fatalf("expected recorder to stay armed")
	}
}

func TestRestartClearsLog(t *testing.T) {
	r, clock := newRecorder(t, 0)
	_ = r.Start()
	r.Record(events.KeyDown(11, keys.Char('a')))
	_, _ = r.Stop()

	clock.Set(20)
	_ = r.Start()
	if r.Len() != 0 {
		t.Fatalf("expected empty log after restart, got %d", r.Len())
	}
	if r.Record(events.KeyDown(15, keys.Char('b'))) {
		t.Fatalf("event older than the new arm time must be dropped")
	}
}

func TestSetDelayRejectsNegative(t *testing.T) {
	r, _ := newRecorder(t, 0.3)
	if err := r.SetDelay(-1); !errors.Is(err, ErrNegativeDelay) {
		t.Fatalf("expected ErrNegativeDelay, got %v", err)
	}
	if r.Delay() != 0 {
		t.Fatalf("expected delay clamped to zero, got %v", r.Delay())
	}
	if _, err := New(Options{Delay: -0.1}); !errors.Is(err, ErrNegativeDelay) {
		t.Fatalf("expected constructor to reject negative delay, got %v", err)
	}
}
