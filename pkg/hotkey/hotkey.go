// Package hotkey maps trigger keys to engine actions and decides which key
// events are consumed before they reach the recorder.
package hotkey

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

// Action is what a bound key triggers.
type Action uint8

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionToggle
	ActionPlay
)

// String returns the lower-case action name.
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionToggle:
		return "toggle"
	case ActionPlay:
		return "play"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Bindings maps trigger keys to actions. At most one action per key.
type Bindings map[keys.Key]Action

// BindingsFor derives the table from the configured start, stop and play keys.
// Zero keys are left unbound. When start and stop are the same key the binding
// becomes a toggle; play never overrides a start or stop binding.
func BindingsFor(start, stop, play keys.Key) Bindings {
	b := make(Bindings, 3)
	switch {
	case !start.IsZero() && start == stop:
		b[start] = ActionToggle
	default:
		if !start.IsZero() {
			b[start] = ActionStart
		}
		if !stop.IsZero() {
			b[stop] = ActionStop
		}
	}
	if !play.IsZero() {
		if _, taken := b[play]; !taken {
			b[play] = ActionPlay
		}
	}
	return b
}

// FireFunc runs a triggered action. It is called on the input delivery goroutine
// and must not block for long.
type FireFunc func(Action, keys.Key)

// Dispatcher consults the current binding table for every key event.
type Dispatcher struct {
	table atomic.Pointer[Bindings]
	fire  FireFunc
	open  func() bool

	mu   sync.Mutex
	held map[keys.Key]struct{}
}

// NewDispatcher returns a dispatcher with an empty table.
func NewDispatcher(fire FireFunc) *Dispatcher {
	d := &Dispatcher{fire: fire, held: make(map[keys.Key]struct{})}
	empty := Bindings{}
	d.table.Store(&empty)
	return d
}

// SetBindings replaces the whole table. The callback sees either the old or the
// new table, never a mix.
func (d *Dispatcher) SetBindings(b Bindings) {
	next := maps.Clone(b)
	if next == nil {
		next = Bindings{}
	}
	d.table.Store(&next)
}

// Bindings returns a copy of the active table.
func (d *Dispatcher) Bindings() Bindings {
	return maps.Clone(*d.table.Load())
}

// SetGate installs a check consulted on every key-down; bindings stay inert
// while it returns false. It must be set before the first Dispatch.
func (d *Dispatcher) SetGate(open func() bool) { d.open = open }

// Dispatch inspects ev and reports whether it was consumed. A consumed key-down
// fires its action; the matching key-up is consumed as well so no dangling
// release reaches the recorder.
func (d *Dispatcher) Dispatch(ev events.Event) bool {
	switch ev.Kind {
	case events.KeyPress:
		if d.open != nil && !d.open() {
			return false
		}
		action, ok := (*d.table.Load())[ev.Key]
		if !ok || action == ActionNone {
			return false
		}
		d.mu.Lock()
		d.held[ev.Key] = struct{}{}
		d.mu.Unlock()
		if d.fire != nil {
			d.fire(action, ev.Key)
		}
		return true
	case events.KeyRelease:
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.held[ev.Key]; ok {
			delete(d.held, ev.Key)
			return true
		}
		return false
	default:
		return false
	}
}
