package engine

import (
	"sync"
)

// Gate sits between the input source and the hotkey dispatcher. Pausing it
// lets events through to the recorder without triggering bindings; killing it
// stops dispatch for good and closes Done.
type Gate struct {
	mu       sync.Mutex
	paused   int
	stopping bool
	stopErr  error
	done     chan struct{}
}

// NewGate constructs a gate in the running state.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Pause suspends hotkey dispatch. Pauses nest; each needs a matching Resume.
func (g *Gate) Pause() {
	g.mu.Lock()
	g.paused++
	g.mu.Unlock()
}

// Resume undoes one Pause. Extra calls are ignored.
func (g *Gate) Resume() {
	g.mu.Lock()
	if g.paused > 0 {
		g.paused--
	}
	g.mu.Unlock()
}

// Kill stops dispatch and records the first non-nil error.
func (g *Gate) Kill(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil && g.stopErr == nil {
		g.stopErr = err
	}
	if !g.stopping {
		g.stopping = true
		close(g.done)
	}
}

// Dispatching reports whether hotkeys should be evaluated for the next event.
func (g *Gate) Dispatching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.stopping && g.paused == 0
}

// Stopped reports whether Kill was called.
func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopping
}

// Done is closed by the first Kill.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Err returns the error passed to Kill, if any.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopErr
}

// State reports the textual state for diagnostics.
func (g *Gate) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.stopping:
		return "stopping"
	case g.paused > 0:
		return "paused"
	default:
		return "running"
	}
}
