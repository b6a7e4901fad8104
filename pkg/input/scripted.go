package input

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

// Step is one scripted event delivered After the source became ready.
type Step struct {
	After time.Duration
	Event events.Event
}

// ScriptedSource replays a fixed timeline. It backs tests and the "scripted"
// backend, which lets the CLI run on hosts without a usable input hook.
type ScriptedSource struct {
	steps []Step
	// Hold keeps the source running after the timeline until ctx is cancelled.
	Hold bool

	mu       sync.Mutex
	verdicts []Verdict
}

// NewScriptedSource returns a source for steps, which must be ordered by After.
func NewScriptedSource(steps []Step) *ScriptedSource {
	return &ScriptedSource{steps: append([]Step(nil), steps...)}
}

// Run implements Source.
func (s *ScriptedSource) Run(ctx context.Context, ready func(), deliver Deliver) error {
	ready()
	start := time.Now()
	for _, step := range s.steps {
		if wait := time.Until(start.Add(step.After)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		v := deliver(step.Event)
		s.mu.Lock()
		s.verdicts = append(s.verdicts, v)
		s.mu.Unlock()
	}
	if s.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Verdicts returns what the handler decided for each delivered step.
func (s *ScriptedSource) Verdicts() []Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Verdict(nil), s.verdicts...)
}

// DemoScript is the default timeline of the scripted backend: a short pointer
// gesture, a click, typing "hi" and two scroll notches. It starts after the
// default arming delay so a default recording keeps every event.
func DemoScript() []Step {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	h, i := keys.Char('h'), keys.Char('i')
	return []Step{
		{ms(200), events.Move(0, 100, 100)},
		{ms(220), events.Move(0, 140, 120)},
		{ms(240), events.Move(0, 200, 160)},
		{ms(300), events.Click(0, 200, 160, events.ButtonLeft, true)},
		{ms(380), events.Click(0, 200, 160, events.ButtonLeft, false)},
		{ms(450), events.KeyDown(0, h)},
		{ms(500), events.KeyUp(0, h)},
		{ms(550), events.KeyDown(0, i)},
		{ms(600), events.KeyUp(0, i)},
		{ms(700), events.Scroll(0, 200, 160, 0, -1)},
		{ms(720), events.Scroll(0, 200, 160, 0, -1)},
	}
}

// Call records one synthesizer invocation.
type Call struct {
	Op     string
	Key    keys.Key
	Button events.Button
	X, Y   int
}

func (c Call) String() string {
	switch c.Op {
	case "move":
		return fmt.Sprintf("move(%d, %d)", c.X, c.Y)
	case "scroll":
		return fmt.Sprintf("scroll(%d, %d)", c.X, c.Y)
	case "key_down", "key_up":
		return fmt.Sprintf("%s(%s)", c.Op, c.Key)
	default:
		return fmt.Sprintf("%s(%s)", c.Op, c.Button)
	}
}

// MemorySynthesizer records calls instead of touching the OS. Unresolved keys
// and unknown buttons are rejected like a platform synthesizer would.
type MemorySynthesizer struct {
	// Reject, when set, can fail individual calls.
	Reject func(Call) error

	logger *slog.Logger
	mu     sync.Mutex
	calls  []Call
}

// NewMemorySynthesizer returns a synthesizer that logs each call at debug level.
func NewMemorySynthesizer(logger *slog.Logger) *MemorySynthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MemorySynthesizer{logger: logger}
}

func (m *MemorySynthesizer) record(c Call) error {
	if (c.Op == "key_down" || c.Op == "key_up") && !c.Key.IsResolved() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKey, c.Key)
	}
	if (c.Op == "button_down" || c.Op == "button_up") && c.Button == events.ButtonNone {
		return fmt.Errorf("%w: %s", ErrUnsupportedButton, c.Button)
	}
	if m.Reject != nil {
		if err := m.Reject(c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
	m.logger.Debug("synthesized", "call", c.String())
	return nil
}

func (m *MemorySynthesizer) MoveTo(x, y int) error {
	return m.record(Call{Op: "move", X: x, Y: y})
}

func (m *MemorySynthesizer) KeyDown(k keys.Key) error {
	return m.record(Call{Op: "key_down", Key: k})
}

func (m *MemorySynthesizer) KeyUp(k keys.Key) error {
	return m.record(Call{Op: "key_up", Key: k})
}

func (m *MemorySynthesizer) ButtonDown(b events.Button) error {
	return m.record(Call{Op: "button_down", Button: b})
}

func (m *MemorySynthesizer) ButtonUp(b events.Button) error {
	return m.record(Call{Op: "button_up", Button: b})
}

func (m *MemorySynthesizer) Scroll(dx, dy int) error {
	return m.record(Call{Op: "scroll", X: dx, Y: dy})
}

func (m *MemorySynthesizer) Close() error { return nil }

// Calls returns the recorded calls in order.
func (m *MemorySynthesizer) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
