// Package input owns the OS level input hook. A Service wraps one platform
// Source (Windows low-level hooks, a macOS Quartz event tap, X11 polling, or a
// scripted timeline) and delivers its events serially to a Handler. The
// matching Synthesizer injects events back into the same input channel during
// playback.
package input

import (
	"context"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

// Verdict tells a suppressing backend what to do with an event.
type Verdict uint8

const (
	// Pass lets the event through to other applications.
	Pass Verdict = iota
	// Suppress swallows the event where the backend supports it.
	Suppress
)

func (v Verdict) String() string {
	if v == Suppress {
		return "suppress"
	}
	return "pass"
}

// Handler receives every captured event. It runs on the delivery goroutine.
type Handler func(events.Event) Verdict

// Deliver is what a Source calls for each event it observes.
type Deliver func(events.Event) Verdict

// Source produces raw input events. Run must call ready once the hook is
// installed, then deliver events serially until ctx is cancelled. Returning
// before ready is called means installation failed.
type Source interface {
	Run(ctx context.Context, ready func(), deliver Deliver) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, ready func(), deliver Deliver) error

// Run calls the underlying function.
func (f SourceFunc) Run(ctx context.Context, ready func(), deliver Deliver) error {
	return f(ctx, ready, deliver)
}

// Synthesizer injects input into the OS. Coordinates are absolute screen pixels.
type Synthesizer interface {
	MoveTo(x, y int) error
	KeyDown(k keys.Key) error
	KeyUp(k keys.Key) error
	ButtonDown(b events.Button) error
	ButtonUp(b events.Button) error
	Scroll(dx, dy int) error
	Close() error
}
