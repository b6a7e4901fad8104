package engine

import (
	"errors"
	"testing"
	"time"
)

func TestGatePauseResumeNests(t *testing.T) {
	gate := NewGate()

	gate.Pause()
	gate.Pause()
	if gate.Dispatching() || gate.State() != "paused" {
		t.Fatalf("expected paused gate, got %s", gate.State())
	}
	gate.Resume()
	if gate.Dispatching() {
		t.Fatalf("expected gate to stay paused until the last resume")
	}
	gate.Resume()
	gate.Resume()
	if !gate.Dispatching() || gate.State() != "running" {
		t.Fatalf("expected running gate, got %s", gate.State())
	}
}

func TestGateKillPropagatesFirstError(t *testing.T) {
	gate := NewGate()
	customErr := errors.New("boom")

	gate.Kill(customErr)
	gate.Kill(errors.New("later"))

	select {
	case <-gate.Done():
	case <-time.After(time.Second):
		t.Fatalf("gate done did not close after kill")
	}
	if !errors.Is(gate.Err(), customErr) {
		t.Fatalf("expected custom error, got %v", gate.Err())
	}
	if gate.Dispatching() || !gate.Stopped() || gate.State() != "stopping" {
		t.Fatalf("expected stopped gate, got %s", gate.State())
	}
}

func TestGateKillWithoutError(t *testing.T) {
	gate := NewGate()
	gate.Pause()
	gate.Kill(nil)
	if gate.Err() != nil {
		t.Fatalf("expected nil error, got %v", gate.Err())
	}
	gate.Resume()
	if gate.Dispatching() {
		t.Fatalf("resume must not reopen a killed gate")
	}
}
