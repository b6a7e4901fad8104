// Package events holds the raw input event model recorded by the engine and the
// macro file codec used to persist it.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/offlinefirst/macrorec/pkg/keys"
)

// Kind enumerates raw input event types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KeyPress
	KeyRelease
	MouseMove
	MouseClick
	MouseScroll
)

var kindNames = map[Kind]string{
	KeyPress:    "key_press",
	KeyRelease:  "key_release",
	MouseMove:   "mouse_move",
	MouseClick:  "mouse_click",
	MouseScroll: "mouse_scroll",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a wire name.
func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown event type %q", s)
}

// Button identifies a mouse button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// String returns the canonical "Button.<name>" form.
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "Button.left"
	case ButtonRight:
		return "Button.right"
	case ButtonMiddle:
		return "Button.middle"
	default:
		return "Button.unknown"
	}
}

// ParseButton accepts "Button.left" as well as the bare "left".
func ParseButton(s string) (Button, error) {
	switch strings.TrimPrefix(strings.TrimSpace(s), "Button.") {
	case "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle":
		return ButtonMiddle, nil
	default:
		return ButtonNone, fmt.Errorf("unknown mouse button %q", s)
	}
}

// Event is a single timestamped input occurrence. Which payload fields are
// meaningful depends on Kind.
type Event struct {
	// Time is monotonic seconds relative to the process clock origin.
	Time float64
	Kind Kind

	Key keys.Key

	X, Y    int
	Button  Button
	Pressed bool
	DX, DY  int
}

// KeyDown builds a KeyPress event.
func KeyDown(t float64, k keys.Key) Event {
	return Event{Time: t, Kind: KeyPress, Key: k}
}

// KeyUp builds a KeyRelease event.
func KeyUp(t float64, k keys.Key) Event {
	return Event{Time: t, Kind: KeyRelease, Key: k}
}

// Move builds a MouseMove event.
func Move(t float64, x, y int) Event {
	return Event{Time: t, Kind: MouseMove, X: x, Y: y}
}

// Click builds a MouseClick event for a press (pressed=true) or release.
func Click(t float64, x, y int, b Button, pressed bool) Event {
	return Event{Time: t, Kind: MouseClick, X: x, Y: y, Button: b, Pressed: pressed}
}

// Scroll builds a MouseScroll event.
func Scroll(t float64, x, y, dx, dy int) Event {
	return Event{Time: t, Kind: MouseScroll, X: x, Y: y, DX: dx, DY: dy}
}

// IsKey reports whether the event is a key press or release.
func (e Event) IsKey() bool {
	return e.Kind == KeyPress || e.Kind == KeyRelease
}

// String renders a compact human readable description, used in logs.
func (e Event) String() string {
	switch e.Kind {
	case KeyPress, KeyRelease:
		return fmt.Sprintf("%s %s @%.3f", e.Kind, e.Key, e.Time)
	case MouseMove:
		return fmt.Sprintf("%s (%d, %d) @%.3f", e.Kind, e.X, e.Y, e.Time)
	case MouseClick:
		return fmt.Sprintf("%s (%d, %d) %s pressed=%t @%.3f", e.Kind, e.X, e.Y, e.Button, e.Pressed, e.Time)
	case MouseScroll:
		return fmt.Sprintf("%s (%d, %d) dx=%d dy=%d @%.3f", e.Kind, e.X, e.Y, e.DX, e.DY, e.Time)
	default:
		return e.Kind.String()
	}
}

// Log is an ordered sequence of events.
type Log []Event

// Duration is the span between the first and last event.
func (l Log) Duration() time.Duration {
	if len(l) < 2 {
		return 0
	}
	return Seconds(l[len(l)-1].Time - l[0].Time)
}

// Clone returns an independent copy.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	copy(out, l)
	return out
}

// Seconds converts a float seconds delta into a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
