// Package keys defines the canonical key identifiers shared by capture, hotkeys,
// playback and the macro file format.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrMalformed reports a key identifier that matches none of the accepted shapes.
	ErrMalformed = errors.New("malformed key identifier")
	// ErrUnknownKey reports a well formed named key that is not part of the enumeration.
	ErrUnknownKey = errors.New("unknown key name")
)

// Code enumerates the named (non printable) keys.
type Code uint8

const (
	None Code = iota
	Alt
	AltL
	AltR
	AltGr
	Backspace
	CapsLock
	Cmd
	CmdL
	CmdR
	Ctrl
	CtrlL
	CtrlR
	Delete
	Down
	End
	Enter
	Esc
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24
	Home
	Insert
	Left
	MediaNext
	MediaPlayPause
	MediaPrevious
	MediaVolumeDown
	MediaVolumeMute
	MediaVolumeUp
	Menu
	NumLock
	PageDown
	PageUp
	Pause
	PrintScreen
	Right
	ScrollLock
	Shift
	ShiftL
	ShiftR
	Space
	Tab
	Up

	codeCount
)

var codeNames = [codeCount]string{
	None:            "",
	Alt:             "alt",
	AltL:            "alt_l",
	AltR:            "alt_r",
	AltGr:           "alt_gr",
	Backspace:       "backspace",
	CapsLock:        "caps_lock",
	Cmd:             "cmd",
	CmdL:            "cmd_l",
	CmdR:            "cmd_r",
	Ctrl:            "ctrl",
	CtrlL:           "ctrl_l",
	CtrlR:           "ctrl_r",
	Delete:          "delete",
	Down:            "down",
	End:             "end",
	Enter:           "enter",
	Esc:             "esc",
	F1:              "f1",
	F2:              "f2",
	F3:              "f3",
	F4:              "f4",
	F5:              "f5",
	F6:              "f6",
	F7:              "f7",
	F8:              "f8",
	F9:              "f9",
	F10:             "f10",
	F11:             "f11",
	F12:             "f12",
	F13:             "f13",
	F14:             "f14",
	F15:             "f15",
	F16:             "f16",
	F17:             "f17",
	F18:             "f18",
	F19:             "f19",
	F20:             "f20",
	F21:             "f21",
	F22:             "f22",
	F23:             "f23",
	F24:             "f24",
	Home:            "home",
	Insert:          "insert",
	Left:            "left",
	MediaNext:       "media_next",
	MediaPlayPause:  "media_play_pause",
	MediaPrevious:   "media_previous",
	MediaVolumeDown: "media_volume_down",
	MediaVolumeMute: "media_volume_mute",
	MediaVolumeUp:   "media_volume_up",
	Menu:            "menu",
	NumLock:         "num_lock",
	PageDown:        "page_down",
	PageUp:          "page_up",
	Pause:           "pause",
	PrintScreen:     "print_screen",
	Right:           "right",
	ScrollLock:      "scroll_lock",
	Shift:           "shift",
	ShiftL:          "shift_l",
	ShiftR:          "shift_r",
	Space:           "space",
	Tab:             "tab",
	Up:              "up",
}

var codesByName = func() map[string]Code {
	m := make(map[string]Code, codeCount)
	for c := Code(1); c < codeCount; c++ {
		m[codeNames[c]] = c
	}
	return m
}()

// String returns the lower-case name used after the "Key." prefix.
func (c Code) String() string {
	if c >= codeCount {
		return "code(" + strconv.Itoa(int(c)) + ")"
	}
	return codeNames[c]
}

// Valid reports whether c names a key of the enumeration.
func (c Code) Valid() bool {
	return c > None && c < codeCount
}

// Codes lists every named key in declaration order.
func Codes() []Code {
	out := make([]Code, 0, codeCount-1)
	for c := Code(1); c < codeCount; c++ {
		out = append(out, c)
	}
	return out
}

// LookupCode resolves a key name such as "f8" or "page_up".
func LookupCode(name string) (Code, bool) {
	c, ok := codesByName[name]
	return c, ok
}

type variant uint8

const (
	variantNone variant = iota
	variantNamed
	variantChar
	variantRaw
	variantUnresolved
)

// Key identifies a physical or logical key. The zero value means "no key".
// Keys are comparable and may be used as map keys.
type Key struct {
	kind variant
	code Code
	char rune
	raw  uint32
	text string
}

// Named returns the key for a member of the enumeration.
func Named(c Code) Key {
	if !c.Valid() {
		return Key{}
	}
	return Key{kind: variantNamed, code: c}
}

// Char returns the key producing the printable character r. Captured runes go
// through FromRune, since only Printable characters survive Decode.
func Char(r rune) Key {
	return Key{kind: variantChar, char: r}
}

// Printable reports whether r can be stored as a character key.
func Printable(r rune) bool {
	return r != utf8.RuneError && unicode.IsPrint(r)
}

// FromRune returns Char(r) when r is Printable and Raw(vk) otherwise, so
// whatever a backend captures decodes back to the same key.
func FromRune(r rune, vk uint32) Key {
	if Printable(r) {
		return Char(r)
	}
	return Raw(vk)
}

// Raw wraps a platform virtual key code that has no character or name mapping.
func Raw(vk uint32) Key {
	return Key{kind: variantRaw, raw: vk}
}

// Unresolved preserves an identifier read from a macro file that this build does
// not recognise. Such keys round-trip through the file format but cannot be played.
func Unresolved(text string) Key {
	return Key{kind: variantUnresolved, text: text}
}

// IsZero reports whether k is the empty key.
func (k Key) IsZero() bool { return k.kind == variantNone }

// IsNamed reports whether k is a member of the named enumeration.
func (k Key) IsNamed() bool { return k.kind == variantNamed }

// IsChar reports whether k carries a printable character.
func (k Key) IsChar() bool { return k.kind == variantChar }

// IsResolved reports whether k can be mapped to a platform key by a synthesizer.
func (k Key) IsResolved() bool {
	return k.kind == variantNamed || k.kind == variantChar || k.kind == variantRaw
}

// Code returns the named key code, or None.
func (k Key) Code() Code {
	if k.kind != variantNamed {
		return None
	}
	return k.code
}

// Rune returns the character of a Char key.
func (k Key) Rune() (rune, bool) {
	if k.kind != variantChar {
		return 0, false
	}
	return k.char, true
}

// RawCode returns the platform virtual key code of a Raw key.
func (k Key) RawCode() (uint32, bool) {
	if k.kind != variantRaw {
		return 0, false
	}
	return k.raw, true
}

// Encode returns the canonical text form: Key.<name>, a quoted character, or <vk>.
func (k Key) Encode() string {
	switch k.kind {
	case variantNamed:
		return "Key." + k.code.String()
	case variantChar:
		if k.char == '\'' {
			return `"'"`
		}
		return "'" + string(k.char) + "'"
	case variantRaw:
		return "<" + strconv.FormatUint(uint64(k.raw), 10) + ">"
	case variantUnresolved:
		return k.text
	default:
		return ""
	}
}

// Label is the display form: named keys keep their prefix, characters lose their quotes.
func (k Key) Label() string {
	if k.kind == variantChar {
		return string(k.char)
	}
	return k.Encode()
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k.kind == variantNone {
		return "<none>"
	}
	return k.Encode()
}

// Decode parses the canonical text form. Nothing outside the accepted shapes is
// interpreted.
func Decode(s string) (Key, error) {
	switch {
	case strings.HasPrefix(s, "Key."):
		name := strings.TrimPrefix(s, "Key.")
		if !isIdentifier(name) {
			return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		c, ok := codesByName[name]
		if !ok {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
		}
		return Named(c), nil
	case len(s) >= 3 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]:
		inner := s[1 : len(s)-1]
		r, size := utf8.DecodeRuneInString(inner)
		if size != len(inner) || !Printable(r) {
			return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return Char(r), nil
	case len(s) >= 3 && s[0] == '<' && s[len(s)-1] == '>':
		vk, err := strconv.ParseUint(s[1:len(s)-1], 10, 32)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return Raw(uint32(vk)), nil
	default:
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
}

// Parse accepts the canonical form as well as the shorthand typed on a command
// line: a bare key name ("f8", "esc") or a single character ("a").
func Parse(s string) (Key, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if k, err := Decode(trimmed); err == nil {
		return k, nil
	} else if errors.Is(err, ErrUnknownKey) {
		return Key{}, err
	}
	if utf8.RuneCountInString(trimmed) == 1 {
		r, _ := utf8.DecodeRuneInString(trimmed)
		if Printable(r) && !unicode.IsSpace(r) {
			return Char(r), nil
		}
	}
	if c, ok := codesByName[strings.ToLower(trimmed)]; ok {
		return Named(c), nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
}

// MarshalJSON encodes the zero key as null and everything else as its canonical string.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(k.Encode())
}

// UnmarshalJSON decodes strictly; unknown identifiers are an error.
func (k *Key) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = Key{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	decoded, err := Decode(s)
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
