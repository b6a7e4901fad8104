package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/offlinefirst/macrorec/pkg/keys"
)

// ErrInvalidEvent reports an event record that cannot be decoded.
var ErrInvalidEvent = errors.New("invalid event record")

// File is the on-disk macro document.
type File struct {
	Actions Log `json:"actions"`
}

type wireEvent struct {
	Time float64           `json:"time"`
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// MarshalJSON encodes the event as {"time", "type", "data"}.
func (e Event) MarshalJSON() ([]byte, error) {
	var data []any
	switch e.Kind {
	case KeyPress, KeyRelease:
		data = []any{e.Key.Encode()}
	case MouseMove:
		data = []any{e.X, e.Y}
	case MouseClick:
		data = []any{e.X, e.Y, e.Button.String(), e.Pressed}
	case MouseScroll:
		data = []any{e.X, e.Y, e.DX, e.DY}
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrInvalidEvent, e.Kind)
	}
	return json.Marshal(struct {
		Time float64 `json:"time"`
		Type string  `json:"type"`
		Data []any   `json:"data"`
	}{e.Time, e.Kind.String(), data})
}

// UnmarshalJSON decodes a wire record. Key identifiers that are well formed
// but unknown to this build are kept as unresolved keys so one bad record
// does not make the whole macro unreadable.
func (e *Event) UnmarshalJSON(raw []byte) error {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if math.IsNaN(w.Time) || math.IsInf(w.Time, 0) {
		return fmt.Errorf("%w: non-finite time", ErrInvalidEvent)
	}
	kind, err := ParseKind(w.Type)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	out := Event{Time: w.Time, Kind: kind}
	switch kind {
	case KeyPress, KeyRelease:
		if err := expectLen(w, 1); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(w.Data[0], &s); err != nil {
			return fmt.Errorf("%w: %s key: %v", ErrInvalidEvent, kind, err)
		}
		k, err := keys.Decode(s)
		if err != nil {
			k = keys.Unresolved(s)
		}
		out.Key = k
	case MouseMove:
		if err := expectLen(w, 2); err != nil {
			return err
		}
		if out.X, err = intAt(w, 0); err != nil {
			return err
		}
		if out.Y, err = intAt(w, 1); err != nil {
			return err
		}
	case MouseClick:
		if err := expectLen(w, 4); err != nil {
			return err
		}
		if out.X, err = intAt(w, 0); err != nil {
			return err
		}
		if out.Y, err = intAt(w, 1); err != nil {
			return err
		}
		var name string
		if err := json.Unmarshal(w.Data[2], &name); err != nil {
			return fmt.Errorf("%w: %s button: %v", ErrInvalidEvent, kind, err)
		}
		if out.Button, err = ParseButton(name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if err := json.Unmarshal(w.Data[3], &out.Pressed); err != nil {
			return fmt.Errorf("%w: %s pressed flag: %v", ErrInvalidEvent, kind, err)
		}
	case MouseScroll:
		if err := expectLen(w, 4); err != nil {
			return err
		}
		fields := []*int{&out.X, &out.Y, &out.DX, &out.DY}
		for i, dst := range fields {
			if *dst, err = intAt(w, i); err != nil {
				return err
			}
		}
	}
	*e = out
	return nil
}

func expectLen(w wireEvent, n int) error {
	if len(w.Data) != n {
		return fmt.Errorf("%w: %s expects %d data fields, got %d", ErrInvalidEvent, w.Type, n, len(w.Data))
	}
	return nil
}

// intAt reads an integer coordinate. Some recorders write coordinates as
// floats; those are truncated.
func intAt(w wireEvent, i int) (int, error) {
	var f float64
	if err := json.Unmarshal(w.Data[i], &f); err != nil {
		return 0, fmt.Errorf("%w: %s field %d: %v", ErrInvalidEvent, w.Type, i, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s field %d out of range", ErrInvalidEvent, w.Type, i)
	}
	return int(f), nil
}

// Encode writes log as an indented macro document.
func Encode(w io.Writer, log Log) error {
	if log == nil {
		log = Log{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(File{Actions: log}); err != nil {
		return fmt.Errorf("encode macro: %w", err)
	}
	return nil
}

// Marshal returns the encoded macro document.
func Marshal(log Log) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, log); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a macro document. A document without an "actions" member
// decodes as an empty log.
func Decode(r io.Reader) (Log, error) {
	var f File
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode macro: %w", err)
	}
	if f.Actions == nil {
		return Log{}, nil
	}
	return f.Actions, nil
}

// Unmarshal decodes a macro document held in memory.
func Unmarshal(data []byte) (Log, error) {
	return Decode(bytes.NewReader(data))
}
