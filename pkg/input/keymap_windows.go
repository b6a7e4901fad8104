//go:build windows && (amd64 || arm64)

package input

import (
	"unicode"

	"github.com/offlinefirst/macrorec/pkg/keys"
)

const mapvkVKToChar = 2

var vkNamed = map[uint32]keys.Code{
	0x08: keys.Backspace,
	0x09: keys.Tab,
	0x0D: keys.Enter,
	0x10: keys.Shift,
	0x11: keys.Ctrl,
	0x12: keys.Alt,
	0x13: keys.Pause,
	0x14: keys.CapsLock,
	0x1B: keys.Esc,
	0x20: keys.Space,
	0x21: keys.PageUp,
	0x22: keys.PageDown,
	0x23: keys.End,
	0x24: keys.Home,
	0x25: keys.Left,
	0x26: keys.Up,
	0x27: keys.Right,
	0x28: keys.Down,
	0x2C: keys.PrintScreen,
	0x2D: keys.Insert,
	0x2E: keys.Delete,
	0x5B: keys.Cmd,
	0x5C: keys.CmdR,
	0x5D: keys.Menu,
	0x90: keys.NumLock,
	0x91: keys.ScrollLock,
	0xA0: keys.Shift,
	0xA1: keys.ShiftR,
	0xA2: keys.Ctrl,
	0xA3: keys.CtrlR,
	0xA4: keys.Alt,
	0xA5: keys.AltGr,
	0xAD: keys.MediaVolumeMute,
	0xAE: keys.MediaVolumeDown,
	0xAF: keys.MediaVolumeUp,
	0xB0: keys.MediaNext,
	0xB1: keys.MediaPrevious,
	0xB3: keys.MediaPlayPause,
}

// namedVK is the reverse table used for synthesis. Generic modifiers map to
// their left-hand virtual keys.
var namedVK = func() map[keys.Code]uint16 {
	m := map[keys.Code]uint16{
		keys.Shift:  0xA0,
		keys.ShiftL: 0xA0,
		keys.Ctrl:   0xA2,
		keys.CtrlL:  0xA2,
		keys.Alt:    0xA4,
		keys.AltL:   0xA4,
		keys.AltR:   0xA5,
		keys.CmdL:   0x5B,
	}
	for vk, code := range vkNamed {
		if _, ok := m[code]; !ok {
			m[code] = uint16(vk)
		}
	}
	for i := 0; i < 24; i++ {
		m[keys.F1+keys.Code(i)] = uint16(0x70 + i)
	}
	return m
}()

func keyFromVK(vk uint32) keys.Key {
	if vk >= 0x70 && vk <= 0x87 {
		return keys.Named(keys.F1 + keys.Code(vk-0x70))
	}
	if code, ok := vkNamed[vk]; ok {
		return keys.Named(code)
	}
	ch, _, _ := procMapVirtualKey.Call(uintptr(vk), mapvkVKToChar)
	// Dead keys set the high bit.
	r := rune(ch & 0x7FFFFFFF)
	if r == 0 {
		return keys.Raw(vk)
	}
	return keys.FromRune(unicode.ToLower(r), vk)
}
