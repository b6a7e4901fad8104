//go:build linux || freebsd || openbsd || netbsd

package input

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/offlinefirst/macrorec/pkg/keys"
)

var keysymNamed = map[xproto.Keysym]keys.Code{
	0xff08: keys.Backspace,
	0xff09: keys.Tab,
	0xff0d: keys.Enter,
	0xff13: keys.Pause,
	0xff14: keys.ScrollLock,
	0xff1b: keys.Esc,
	0xff50: keys.Home,
	0xff51: keys.Left,
	0xff52: keys.Up,
	0xff53: keys.Right,
	0xff54: keys.Down,
	0xff55: keys.PageUp,
	0xff56: keys.PageDown,
	0xff57: keys.End,
	0xff61: keys.PrintScreen,
	0xff63: keys.Insert,
	0xff67: keys.Menu,
	0xff7f: keys.NumLock,
	0xffe1: keys.Shift,
	0xffe2: keys.ShiftR,
	0xffe3: keys.Ctrl,
	0xffe4: keys.CtrlR,
	0xffe5: keys.CapsLock,
	0xffe9: keys.Alt,
	0xffea: keys.AltR,
	0xffeb: keys.Cmd,
	0xffec: keys.CmdR,
	0xfe03: keys.AltGr,
	0xffff: keys.Delete,
	0x0020: keys.Space,

	0x1008ff11: keys.MediaVolumeDown,
	0x1008ff12: keys.MediaVolumeMute,
	0x1008ff13: keys.MediaVolumeUp,
	0x1008ff14: keys.MediaPlayPause,
	0x1008ff16: keys.MediaPrevious,
	0x1008ff17: keys.MediaNext,
}

const keysymF1 = 0xffbe

var namedKeysym = func() map[keys.Code]xproto.Keysym {
	m := map[keys.Code]xproto.Keysym{
		keys.ShiftL: 0xffe1,
		keys.CtrlL:  0xffe3,
		keys.AltL:   0xffe9,
		keys.CmdL:   0xffeb,
	}
	for sym, code := range keysymNamed {
		m[code] = sym
	}
	for i := 0; i < 24; i++ {
		m[keys.F1+keys.Code(i)] = xproto.Keysym(keysymF1 + i)
	}
	return m
}()

func keyFromKeysym(sym xproto.Keysym, keycode xproto.Keycode) keys.Key {
	if sym >= keysymF1 && sym < keysymF1+24 {
		return keys.Named(keys.F1 + keys.Code(sym-keysymF1))
	}
	if code, ok := keysymNamed[sym]; ok {
		return keys.Named(code)
	}
	if r, ok := keysymRune(sym); ok {
		return keys.FromRune(r, uint32(keycode))
	}
	return keys.Raw(uint32(keycode))
}

// keysymRune decodes the Latin-1 range, where keysyms equal code points, and
// the 0x01000000 Unicode block.
func keysymRune(sym xproto.Keysym) (rune, bool) {
	switch {
	case sym >= 0x21 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym), true
	case sym >= 0x01000100 && sym <= 0x0110ffff:
		return rune(sym - 0x01000000), true
	}
	return 0, false
}

func runeKeysym(r rune) xproto.Keysym {
	if (r >= 0x21 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return xproto.Keysym(r)
	}
	return xproto.Keysym(0x01000000 + r)
}

// keyboardMap is a snapshot of the server's keycode to keysym table.
type keyboardMap struct {
	min     xproto.Keycode
	perCode int
	syms    []xproto.Keysym
}

func loadKeyboardMap(conn *xgb.Conn) (*keyboardMap, error) {
	setup := xproto.Setup(conn)
	count := byte(int(setup.MaxKeycode) - int(setup.MinKeycode) + 1)
	reply, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return nil, fmt.Errorf("get keyboard mapping: %w", err)
	}
	return &keyboardMap{min: setup.MinKeycode, perCode: int(reply.KeysymsPerKeycode), syms: reply.Keysyms}, nil
}

func (m *keyboardMap) keysym(kc xproto.Keycode, col int) xproto.Keysym {
	if kc < m.min || col >= m.perCode {
		return 0
	}
	i := int(kc-m.min)*m.perCode + col
	if i >= len(m.syms) {
		return 0
	}
	return m.syms[i]
}

func (m *keyboardMap) key(kc xproto.Keycode) keys.Key {
	return keyFromKeysym(m.keysym(kc, 0), kc)
}

// find returns the keycode producing sym and whether Shift is needed for it.
func (m *keyboardMap) find(sym xproto.Keysym) (xproto.Keycode, bool, bool) {
	if m.perCode == 0 {
		return 0, false, false
	}
	for i, s := range m.syms {
		col := i % m.perCode
		if s == sym && col < 2 {
			return m.min + xproto.Keycode(i/m.perCode), col == 1, true
		}
	}
	return 0, false, false
}
