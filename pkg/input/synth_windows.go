//go:build windows && (amd64 || arm64)

package input

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004

	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfWheel      = 0x0800
	mouseeventfHWheel     = 0x1000
)

var (
	procSendInput    = user32.NewProc("SendInput")
	procSetCursorPos = user32.NewProc("SetCursorPos")
	procVkKeyScan    = user32.NewProc("VkKeyScanW")
)

// The INPUT union is 32 bytes on 64-bit Windows and starts at offset 8, so
// both variants below are 40 bytes.
type keyboardInput struct {
	Type  uint32
	_     uint32
	Vk    uint16
	Scan  uint16
	Flags uint32
	Time  uint32
	Extra uintptr
	_     [8]byte
}

type mouseInput struct {
	Type      uint32
	_         uint32
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	Extra     uintptr
}

// Keys that live in the extended block need KEYEVENTF_EXTENDEDKEY or Windows
// reinterprets them as their numpad twins.
var extendedVK = map[uint16]bool{
	0x21: true, 0x22: true, 0x23: true, 0x24: true,
	0x25: true, 0x26: true, 0x27: true, 0x28: true,
	0x2D: true, 0x2E: true, 0x5B: true, 0x5C: true, 0x5D: true,
	0xA3: true, 0xA5: true,
}

type windowsSynthesizer struct {
	logger *slog.Logger
}

func newPlatformSynthesizer(logger *slog.Logger) (Synthesizer, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHookUnavailable, err)
	}
	return &windowsSynthesizer{logger: logger}, nil
}

func sendKeyboard(in keyboardInput) error {
	in.Type = inputKeyboard
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n != 1 {
		return fmt.Errorf("SendInput keyboard: %v", err)
	}
	return nil
}

func sendMouse(in mouseInput) error {
	in.Type = inputMouse
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n != 1 {
		return fmt.Errorf("SendInput mouse: %v", err)
	}
	return nil
}

func (w *windowsSynthesizer) key(k keys.Key, up bool) error {
	var flags uint32
	if up {
		flags |= keyeventfKeyUp
	}
	var vk uint16
	switch {
	case k.IsNamed():
		v, ok := namedVK[k.Code()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		vk = v
	case k.IsChar():
		r, _ := k.Rune()
		scan, _, _ := procVkKeyScan.Call(uintptr(r))
		if int16(scan) == -1 || r > 0xFFFF {
			if r > 0xFFFF {
				return fmt.Errorf("%w: %s outside the basic plane", ErrUnsupportedKey, k)
			}
			return sendKeyboard(keyboardInput{Scan: uint16(r), Flags: flags | keyeventfUnicode})
		}
		vk = uint16(scan & 0xFF)
	default:
		raw, ok := k.RawCode()
		if !ok || raw > 0xFE {
			return fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		vk = uint16(raw)
	}
	if extendedVK[vk] {
		flags |= keyeventfExtendedKey
	}
	return sendKeyboard(keyboardInput{Vk: vk, Flags: flags})
}

func (w *windowsSynthesizer) KeyDown(k keys.Key) error { return w.key(k, false) }

func (w *windowsSynthesizer) KeyUp(k keys.Key) error { return w.key(k, true) }

func (w *windowsSynthesizer) MoveTo(x, y int) error {
	if ok, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y))); ok == 0 {
		return fmt.Errorf("SetCursorPos: %v", err)
	}
	return nil
}

func (w *windowsSynthesizer) button(b events.Button, down bool) error {
	var flags uint32
	switch b {
	case events.ButtonLeft:
		flags = pick(down, mouseeventfLeftDown, mouseeventfLeftUp)
	case events.ButtonRight:
		flags = pick(down, mouseeventfRightDown, mouseeventfRightUp)
	case events.ButtonMiddle:
		flags = pick(down, mouseeventfMiddleDown, mouseeventfMiddleUp)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedButton, b)
	}
	return sendMouse(mouseInput{Flags: flags})
}

func (w *windowsSynthesizer) ButtonDown(b events.Button) error { return w.button(b, true) }

func (w *windowsSynthesizer) ButtonUp(b events.Button) error { return w.button(b, false) }

func (w *windowsSynthesizer) Scroll(dx, dy int) error {
	if dy != 0 {
		if err := sendMouse(mouseInput{Flags: mouseeventfWheel, MouseData: uint32(int32(dy * wheelDelta))}); err != nil {
			return err
		}
	}
	if dx != 0 {
		if err := sendMouse(mouseInput{Flags: mouseeventfHWheel, MouseData: uint32(int32(dx * wheelDelta))}); err != nil {
			return err
		}
	}
	return nil
}

func (w *windowsSynthesizer) Close() error { return nil }

func pick(cond bool, a, b uint32) uint32 {
	if cond {
		return a
	}
	return b
}
