//go:build linux || freebsd || openbsd || netbsd

package input

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

const keysymShiftL = 0xffe1

// x11Synthesizer injects events through the XTEST extension. The connection
// is opened on first use so constructing it never touches the display.
type x11Synthesizer struct {
	logger *slog.Logger

	once    sync.Once
	openErr error
	conn    *xgb.Conn
	root    xproto.Window
	kmap    *keyboardMap
}

func newPlatformSynthesizer(logger *slog.Logger) (Synthesizer, error) {
	return &x11Synthesizer{logger: logger}, nil
}

func (x *x11Synthesizer) open() error {
	x.once.Do(func() {
		conn, err := xgb.NewConn()
		if err != nil {
			x.openErr = fmt.Errorf("%w: connect to X server: %v", ErrHookUnavailable, err)
			return
		}
		if err := xtest.Init(conn); err != nil {
			conn.Close()
			x.openErr = fmt.Errorf("%w: XTEST extension: %v", ErrHookUnavailable, err)
			return
		}
		kmap, err := loadKeyboardMap(conn)
		if err != nil {
			conn.Close()
			x.openErr = err
			return
		}
		x.conn = conn
		x.root = xproto.Setup(conn).DefaultScreen(conn).Root
		x.kmap = kmap
	})
	return x.openErr
}

func (x *x11Synthesizer) fake(eventType byte, detail byte, rootX, rootY int16) error {
	if err := xtest.FakeInputChecked(x.conn, eventType, detail, 0, x.root, rootX, rootY, 0).Check(); err != nil {
		return fmt.Errorf("xtest fake input: %w", err)
	}
	return nil
}

func (x *x11Synthesizer) keycodeFor(k keys.Key) (xproto.Keycode, bool, error) {
	var sym xproto.Keysym
	switch {
	case k.IsNamed():
		s, ok := namedKeysym[k.Code()]
		if !ok {
			return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		sym = s
	case k.IsChar():
		r, _ := k.Rune()
		sym = runeKeysym(r)
	default:
		raw, ok := k.RawCode()
		if !ok || raw < 8 || raw > 255 {
			return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		return xproto.Keycode(raw), false, nil
	}
	kc, shifted, ok := x.kmap.find(sym)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s has no keycode in the current layout", ErrUnsupportedKey, k)
	}
	return kc, shifted, nil
}

func (x *x11Synthesizer) key(k keys.Key, down bool) error {
	if err := x.open(); err != nil {
		return err
	}
	kc, shifted, err := x.keycodeFor(k)
	if err != nil {
		return err
	}
	eventType := byte(xproto.KeyRelease)
	if down {
		eventType = xproto.KeyPress
	}
	// Characters on the shifted level get a Shift press around the key-down.
	if shifted && down {
		if shiftKC, _, ok := x.kmap.find(keysymShiftL); ok {
			if err := x.fake(xproto.KeyPress, byte(shiftKC), 0, 0); err != nil {
				return err
			}
			defer x.fake(xproto.KeyRelease, byte(shiftKC), 0, 0)
		}
	}
	return x.fake(eventType, byte(kc), 0, 0)
}

func (x *x11Synthesizer) KeyDown(k keys.Key) error { return x.key(k, true) }

func (x *x11Synthesizer) KeyUp(k keys.Key) error { return x.key(k, false) }

func (x *x11Synthesizer) MoveTo(px, py int) error {
	if err := x.open(); err != nil {
		return err
	}
	return x.fake(xproto.MotionNotify, 0, int16(px), int16(py))
}

func buttonDetail(b events.Button) (byte, error) {
	switch b {
	case events.ButtonLeft:
		return 1, nil
	case events.ButtonMiddle:
		return 2, nil
	case events.ButtonRight:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedButton, b)
	}
}

func (x *x11Synthesizer) ButtonDown(b events.Button) error {
	if err := x.open(); err != nil {
		return err
	}
	detail, err := buttonDetail(b)
	if err != nil {
		return err
	}
	return x.fake(xproto.ButtonPress, detail, 0, 0)
}

func (x *x11Synthesizer) ButtonUp(b events.Button) error {
	if err := x.open(); err != nil {
		return err
	}
	detail, err := buttonDetail(b)
	if err != nil {
		return err
	}
	return x.fake(xproto.ButtonRelease, detail, 0, 0)
}

// Scroll clicks the wheel buttons: 4/5 vertical, 6/7 horizontal.
func (x *x11Synthesizer) Scroll(dx, dy int) error {
	if err := x.open(); err != nil {
		return err
	}
	click := func(button byte, n int) error {
		for i := 0; i < n; i++ {
			if err := x.fake(xproto.ButtonPress, button, 0, 0); err != nil {
				return err
			}
			if err := x.fake(xproto.ButtonRelease, button, 0, 0); err != nil {
				return err
			}
		}
		return nil
	}
	if dy > 0 {
		if err := click(4, dy); err != nil {
			return err
		}
	} else if dy < 0 {
		if err := click(5, -dy); err != nil {
			return err
		}
	}
	if dx > 0 {
		return click(7, dx)
	}
	if dx < 0 {
		return click(6, -dx)
	}
	return nil
}

func (x *x11Synthesizer) Close() error {
	if x.conn != nil {
		x.conn.Close()
	}
	return nil
}
