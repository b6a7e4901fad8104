//go:build linux || freebsd || openbsd || netbsd

package input

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/offlinefirst/macrorec/pkg/events"
)

// x11Source samples pointer and keymap state. xgb cannot consume the RECORD
// extension's streaming replies, so events are reconstructed from state
// changes between polls. X11 offers no way to swallow events from other
// clients, so Suppress verdicts are ignored.
type x11Source struct {
	interval time.Duration
	logger   *slog.Logger
}

func newPlatformSource(interval time.Duration, logger *slog.Logger) (Source, error) {
	return &x11Source{interval: interval, logger: logger}, nil
}

type x11Buttons struct {
	mask   uint16
	button events.Button
}

var pointerButtons = []x11Buttons{
	{xproto.ButtonMask1, events.ButtonLeft},
	{xproto.ButtonMask2, events.ButtonMiddle},
	{xproto.ButtonMask3, events.ButtonRight},
}

func (s *x11Source) Run(ctx context.Context, ready func(), deliver Deliver) error {
	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("connect to X server: %w", err)
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	kmap, err := loadKeyboardMap(conn)
	if err != nil {
		return err
	}
	pointer, err := xproto.QueryPointer(conn, root).Reply()
	if err != nil {
		return fmt.Errorf("query pointer: %w", err)
	}
	keymap, err := xproto.QueryKeymap(conn).Reply()
	if err != nil {
		return fmt.Errorf("query keymap: %w", err)
	}
	prevX, prevY, prevMask := pointer.RootX, pointer.RootY, pointer.Mask
	prevKeys := append([]byte(nil), keymap.Keys...)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	ready()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		keymap, err := xproto.QueryKeymap(conn).Reply()
		if err != nil {
			return fmt.Errorf("query keymap: %w", err)
		}
		for i := 0; i < len(keymap.Keys) && i < len(prevKeys); i++ {
			changed := keymap.Keys[i] ^ prevKeys[i]
			if changed == 0 {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if changed&(1<<bit) == 0 {
					continue
				}
				kc := xproto.Keycode(i*8 + bit)
				k := kmap.key(kc)
				if keymap.Keys[i]&(1<<bit) != 0 {
					deliver(events.KeyDown(0, k))
				} else {
					deliver(events.KeyUp(0, k))
				}
			}
		}
		copy(prevKeys, keymap.Keys)

		pointer, err := xproto.QueryPointer(conn, root).Reply()
		if err != nil {
			return fmt.Errorf("query pointer: %w", err)
		}
		x, y := int(pointer.RootX), int(pointer.RootY)
		if pointer.RootX != prevX || pointer.RootY != prevY {
			deliver(events.Move(0, x, y))
		}
		for _, b := range pointerButtons {
			was, is := prevMask&b.mask != 0, pointer.Mask&b.mask != 0
			if was != is {
				deliver(events.Click(0, x, y, b.button, is))
			}
		}
		// Wheel buttons 4 and 5 are pressed and released within one server
		// request, so they only show up when a poll lands inside that window.
		if pointer.Mask&xproto.ButtonMask4 != 0 && prevMask&xproto.ButtonMask4 == 0 {
			deliver(events.Scroll(0, x, y, 0, 1))
		}
		if pointer.Mask&xproto.ButtonMask5 != 0 && prevMask&xproto.ButtonMask5 == 0 {
			deliver(events.Scroll(0, x, y, 0, -1))
		}
		prevX, prevY, prevMask = pointer.RootX, pointer.RootY, pointer.Mask
	}
}
