// Package recorder accumulates captured input into an event log while armed.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/offlinefirst/macrorec/pkg/events"
)

// DefaultDelay is the arming delay applied when none is configured, in seconds.
const DefaultDelay = 0.1

// MoveThreshold is the per-axis distance below which consecutive moves are coalesced.
const MoveThreshold = 5

var (
	ErrNegativeDelay    = errors.New("recording delay must not be negative")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Options configures a Recorder.
type Options struct {
	Delay  float64
	Clock  events.Clock
	Logger *slog.Logger
}

// Recorder is idle until Start arms it. While armed it appends events that
// arrive after the arming delay has elapsed.
type Recorder struct {
	mu     sync.Mutex
	clock  events.Clock
	logger *slog.Logger
	delay  float64
	armed  bool
	armAt  float64
	log    events.Log
}

// New constructs an idle recorder.
func New(opts Options) (*Recorder, error) {
	if opts.Delay < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeDelay, opts.Delay)
	}
	clock := opts.Clock
	if clock == nil {
		clock = events.Monotonic
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{clock: clock, logger: logger, delay: opts.Delay}, nil
}

// SetDelay changes the arming delay used by subsequent Start calls. A negative
// value leaves the delay at zero and reports ErrNegativeDelay.
func (r *Recorder) SetDelay(seconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seconds < 0 {
		r.delay = 0
		return fmt.Errorf("%w: %v", ErrNegativeDelay, seconds)
	}
	r.delay = seconds
	return nil
}

// Delay returns the configured arming delay in seconds.
func (r *Recorder) Delay() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delay
}

// Start clears the log and arms the recorder. It returns immediately; events
// are accepted once the clock passes now+delay.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.armed {
		return ErrAlreadyRecording
	}
	r.armed = true
	r.armAt = r.clock() + r.delay
	r.log = events.Log{}
	r.logger.Debug("recorder armed", "arm_at", r.armAt, "delay", r.delay)
	return nil
}

// Stop disarms the recorder and hands over the accumulated log.
func (r *Recorder) Stop() (events.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armed {
		return nil, ErrNotRecording
	}
	r.armed = false
	out := r.log
	r.log = nil
	r.logger.Debug("recorder stopped", "events", len(out))
	return out, nil
}

// Record offers an event to the recorder and reports whether it was appended.
func (r *Recorder) Record(ev events.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armed || ev.Time <= r.armAt {
		return false
	}
	if ev.Kind == events.MouseMove && len(r.log) > 0 {
		last := r.log[len(r.log)-1]
		if last.Kind == events.MouseMove && abs(ev.X-last.X) < MoveThreshold && abs(ev.Y-last.Y) < MoveThreshold {
			return false
		}
	}
	r.log = append(r.log, ev)
	return true
}

// IsRecording reports whether the recorder is armed.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Len returns the number of events captured so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
