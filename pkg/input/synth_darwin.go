//go:build darwin && cgo

package input

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <stdint.h>

static int postKey(uint16_t keycode, uint32_t ch, int useChar, int down) {
        CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)keycode, down ? true : false);
        if (ev == NULL) {
                return -1;
        }
        if (useChar) {
                UniChar buf[1] = { (UniChar)ch };
                CGEventKeyboardSetUnicodeString(ev, 1, buf);
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}

static CGPoint cursorLocation(void) {
        CGEventRef probe = CGEventCreate(NULL);
        CGPoint p = CGEventGetLocation(probe);
        CFRelease(probe);
        return p;
}

static int postMouse(CGEventType type, CGMouseButton button, int useCursor, double x, double y) {
        CGPoint p = useCursor ? cursorLocation() : CGPointMake(x, y);
        CGEventRef ev = CGEventCreateMouseEvent(NULL, type, p, button);
        if (ev == NULL) {
                return -1;
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}

static int postScroll(int32_t dx, int32_t dy) {
        CGEventRef ev = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 2, dy, dx);
        if (ev == NULL) {
                return -1;
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

var errPostFailed = errors.New("CGEventPost: event creation failed")

type quartzSynthesizer struct {
	logger *slog.Logger
	// held tracks pressed buttons so moves are posted as drags.
	held events.Button
}

func newPlatformSynthesizer(logger *slog.Logger) (Synthesizer, error) {
	return &quartzSynthesizer{logger: logger}, nil
}

func (q *quartzSynthesizer) key(k keys.Key, down bool) error {
	downFlag := C.int(0)
	if down {
		downFlag = 1
	}
	switch {
	case k.IsNamed():
		code, ok := quartzKeycodes[k.Code()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		if C.postKey(C.uint16_t(code), 0, 0, downFlag) != 0 {
			return errPostFailed
		}
	case k.IsChar():
		r, _ := k.Rune()
		if r > 0xFFFF {
			return fmt.Errorf("%w: %s outside the basic plane", ErrUnsupportedKey, k)
		}
		if C.postKey(0, C.uint32_t(r), 1, downFlag) != 0 {
			return errPostFailed
		}
	default:
		raw, ok := k.RawCode()
		if !ok || raw > 0x7F {
			return fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
		}
		if C.postKey(C.uint16_t(raw), 0, 0, downFlag) != 0 {
			return errPostFailed
		}
	}
	return nil
}

func (q *quartzSynthesizer) KeyDown(k keys.Key) error { return q.key(k, true) }

func (q *quartzSynthesizer) KeyUp(k keys.Key) error { return q.key(k, false) }

func (q *quartzSynthesizer) MoveTo(x, y int) error {
	eventType := C.CGEventType(C.kCGEventMouseMoved)
	button := C.CGMouseButton(C.kCGMouseButtonLeft)
	switch q.held {
	case events.ButtonLeft:
		eventType = C.kCGEventLeftMouseDragged
	case events.ButtonRight:
		eventType, button = C.kCGEventRightMouseDragged, C.kCGMouseButtonRight
	case events.ButtonMiddle:
		eventType, button = C.kCGEventOtherMouseDragged, C.kCGMouseButtonCenter
	}
	if C.postMouse(eventType, button, 0, C.double(x), C.double(y)) != 0 {
		return errPostFailed
	}
	return nil
}

func (q *quartzSynthesizer) button(b events.Button, down bool) error {
	var eventType C.CGEventType
	var button C.CGMouseButton
	switch b {
	case events.ButtonLeft:
		button = C.kCGMouseButtonLeft
		eventType = C.kCGEventLeftMouseUp
		if down {
			eventType = C.kCGEventLeftMouseDown
		}
	case events.ButtonRight:
		button = C.kCGMouseButtonRight
		eventType = C.kCGEventRightMouseUp
		if down {
			eventType = C.kCGEventRightMouseDown
		}
	case events.ButtonMiddle:
		button = C.kCGMouseButtonCenter
		eventType = C.kCGEventOtherMouseUp
		if down {
			eventType = C.kCGEventOtherMouseDown
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedButton, b)
	}
	if C.postMouse(eventType, button, 1, 0, 0) != 0 {
		return errPostFailed
	}
	if down {
		q.held = b
	} else if q.held == b {
		q.held = events.ButtonNone
	}
	return nil
}

func (q *quartzSynthesizer) ButtonDown(b events.Button) error { return q.button(b, true) }

func (q *quartzSynthesizer) ButtonUp(b events.Button) error { return q.button(b, false) }

func (q *quartzSynthesizer) Scroll(dx, dy int) error {
	if C.postScroll(C.int32_t(dx), C.int32_t(dy)) != 0 {
		return errPostFailed
	}
	return nil
}

func (q *quartzSynthesizer) Close() error { return nil }
