//go:build darwin && cgo

package input

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices -framework CoreFoundation -framework Carbon
#include <ApplicationServices/ApplicationServices.h>
#include <Carbon/Carbon.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

static Boolean axCheckTrusted(void) {
        const void *keys[] = { kAXTrustedCheckOptionPrompt };
        const void *values[] = { kCFBooleanTrue };
        CFDictionaryRef options = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
                                                     &kCFTypeDictionaryKeyCallBacks,
                                                     &kCFTypeDictionaryValueCallBacks);
        Boolean trusted = AXIsProcessTrustedWithOptions(options);
        CFRelease(options);
        return trusted;
}

extern CGEventRef goHandleInputEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static CFRunLoopSourceRef startEventTap(uintptr_t handle, CGEventMask mask, CFMachPortRef *tapOut) {
        CFMachPortRef tap = CGEventTapCreate(kCGSessionEventTap,
                                             kCGHeadInsertEventTap,
                                             kCGEventTapOptionDefault,
                                             mask,
                                             goHandleInputEvent,
                                             (void *)handle);
        if (tap == NULL) {
                return NULL;
        }
        CGEventTapEnable(tap, true);
        CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
        *tapOut = tap;
        return source;
}

static void reenableTap(CFMachPortRef tap) {
        CGEventTapEnable(tap, true);
}

static CGEventMask cgEventMaskBit(CGEventType type) {
        return ((CGEventMask)1) << type;
}

static void addSourceToRunLoop(CFRunLoopRef loop, CFRunLoopSourceRef source) {
        CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
}

static double cgEventGetX(CGEventRef event) {
        return CGEventGetLocation(event).x;
}

static double cgEventGetY(CGEventRef event) {
        return CGEventGetLocation(event).y;
}

static int64_t cgEventGetKeycode(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static int64_t cgEventGetButton(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGMouseEventButtonNumber);
}

static int64_t cgEventGetScrollY(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGScrollWheelEventDeltaAxis1);
}

static int64_t cgEventGetScrollX(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGScrollWheelEventDeltaAxis2);
}

static uint64_t cgEventGetFlags(CGEventRef event) {
        return (uint64_t)CGEventGetFlags(event);
}

static uint32_t cgEventGetChar(CGEventRef event) {
        UniChar buf[4];
        UniCharCount n = 0;
        CGEventKeyboardGetUnicodeString(event, 4, &n, buf);
        if (n != 1) {
                return 0;
        }
        return (uint32_t)buf[0];
}

static CFDataRef copyKeyboardLayout(void) {
        TISInputSourceRef source = TISCopyCurrentKeyboardLayoutInputSource();
        if (source == NULL) {
                return NULL;
        }
        CFDataRef data = (CFDataRef)TISGetInputSourceProperty(source, kTISPropertyUnicodeKeyLayoutData);
        if (data != NULL) {
                CFRetain(data);
        }
        CFRelease(source);
        return data;
}

// layoutChar translates keycode with no modifiers held.
static uint32_t layoutChar(CFDataRef layout, uint16_t keycode) {
        if (layout == NULL) {
                return 0;
        }
        const UCKeyboardLayout *kl = (const UCKeyboardLayout *)CFDataGetBytePtr(layout);
        UInt32 deadKeyState = 0;
        UniChar buf[4];
        UniCharCount n = 0;
        OSStatus status = UCKeyTranslate(kl, keycode, kUCKeyActionDown, 0, LMGetKbdType(),
                                         kUCKeyTranslateNoDeadKeysMask, &deadKeyState, 4, &n, buf);
        if (status != noErr || n != 1) {
                return 0;
        }
        return (uint32_t)buf[0];
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

type quartzSource struct {
	logger *slog.Logger
}

func newPlatformSource(_ time.Duration, logger *slog.Logger) (Source, error) {
	return &quartzSource{logger: logger}, nil
}

type quartzStream struct {
	deliver Deliver
	logger  *slog.Logger
	tap     C.CFMachPortRef
	// layout is the keyboard layout at tap start, used to name keys
	// independently of the modifiers held.
	layout  C.CFDataRef
	pressed pressedKeys
}

func (s *quartzSource) Run(ctx context.Context, ready func(), deliver Deliver) error {
	if C.axCheckTrusted() == C.Boolean(0) {
		return fmt.Errorf("%w: %w", ErrHookUnavailable, ErrAccessibilityPermission)
	}

	// The tap's run loop source is attached to the current thread's run loop.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	stream := &quartzStream{deliver: deliver, logger: s.logger, layout: C.copyKeyboardLayout()}
	if stream.layout != 0 {
		defer C.CFRelease(C.CFTypeRef(stream.layout))
	} else {
		s.logger.Warn("keyboard layout unavailable, key names follow the modifiers held")
	}
	handle := cgo.NewHandle(stream)
	defer handle.Delete()

	mask := C.cgEventMaskBit(C.kCGEventKeyDown) |
		C.cgEventMaskBit(C.kCGEventKeyUp) |
		C.cgEventMaskBit(C.kCGEventFlagsChanged) |
		C.cgEventMaskBit(C.kCGEventLeftMouseDown) |
		C.cgEventMaskBit(C.kCGEventLeftMouseUp) |
		C.cgEventMaskBit(C.kCGEventRightMouseDown) |
		C.cgEventMaskBit(C.kCGEventRightMouseUp) |
		C.cgEventMaskBit(C.kCGEventOtherMouseDown) |
		C.cgEventMaskBit(C.kCGEventOtherMouseUp) |
		C.cgEventMaskBit(C.kCGEventMouseMoved) |
		C.cgEventMaskBit(C.kCGEventLeftMouseDragged) |
		C.cgEventMaskBit(C.kCGEventRightMouseDragged) |
		C.cgEventMaskBit(C.kCGEventOtherMouseDragged) |
		C.cgEventMaskBit(C.kCGEventScrollWheel)

	var tap C.CFMachPortRef
	source := C.startEventTap(C.uintptr_t(handle), mask, &tap)
	if source == 0 {
		return errors.New("failed to create CGEvent tap")
	}
	defer C.CFRelease(C.CFTypeRef(source))
	defer C.CFRelease(C.CFTypeRef(tap))
	stream.tap = tap

	loop := C.CFRunLoopGetCurrent()
	C.addSourceToRunLoop(loop, source)

	var stopOnce sync.Once
	stopLoop := func() { stopOnce.Do(func() { C.CFRunLoopStop(loop) }) }
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			stopLoop()
		case <-finished:
		}
	}()

	ready()
	C.CFRunLoopRun()
	return ctx.Err()
}

// modifierFlags maps modifier keycodes to the CGEventFlags bit that tells
// whether a FlagsChanged event is a press or a release.
var modifierFlags = map[int]uint64{
	0x38: C.kCGEventFlagMaskShift,
	0x3C: C.kCGEventFlagMaskShift,
	0x3B: C.kCGEventFlagMaskControl,
	0x3E: C.kCGEventFlagMaskControl,
	0x3A: C.kCGEventFlagMaskAlternate,
	0x3D: C.kCGEventFlagMaskAlternate,
	0x37: C.kCGEventFlagMaskCommand,
	0x36: C.kCGEventFlagMaskCommand,
	0x39: C.kCGEventFlagMaskAlphaShift,
}

func (s *quartzStream) translate(eventType C.CGEventType, event C.CGEventRef) (events.Event, bool) {
	x := int(C.cgEventGetX(event))
	y := int(C.cgEventGetY(event))
	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		code := int(C.cgEventGetKeycode(event))
		k := quartzKey(code, s.baseChar(code, event))
		if eventType == C.kCGEventKeyDown {
			return events.KeyDown(0, s.pressed.press(uint32(code), k)), true
		}
		return events.KeyUp(0, s.pressed.release(uint32(code), k)), true
	case C.kCGEventFlagsChanged:
		code := int(C.cgEventGetKeycode(event))
		mask, ok := modifierFlags[code]
		if !ok {
			return events.Event{}, false
		}
		k := quartzKey(code, 0)
		if uint64(C.cgEventGetFlags(event))&mask != 0 {
			return events.KeyDown(0, k), true
		}
		return events.KeyUp(0, k), true
	case C.kCGEventMouseMoved, C.kCGEventLeftMouseDragged,
		C.kCGEventRightMouseDragged, C.kCGEventOtherMouseDragged:
		return events.Move(0, x, y), true
	case C.kCGEventLeftMouseDown, C.kCGEventLeftMouseUp:
		return events.Click(0, x, y, events.ButtonLeft, eventType == C.kCGEventLeftMouseDown), true
	case C.kCGEventRightMouseDown, C.kCGEventRightMouseUp:
		return events.Click(0, x, y, events.ButtonRight, eventType == C.kCGEventRightMouseDown), true
	case C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp:
		if C.cgEventGetButton(event) != 2 {
			return events.Event{}, false
		}
		return events.Click(0, x, y, events.ButtonMiddle, eventType == C.kCGEventOtherMouseDown), true
	case C.kCGEventScrollWheel:
		return events.Scroll(0, x, y, int(C.cgEventGetScrollX(event)), int(C.cgEventGetScrollY(event))), true
	}
	return events.Event{}, false
}

func (s *quartzStream) baseChar(keycode int, event C.CGEventRef) rune {
	if s.layout != 0 {
		if ch := rune(C.layoutChar(s.layout, C.uint16_t(keycode))); ch != 0 {
			return ch
		}
	}
	return rune(C.cgEventGetChar(event))
}

//export goHandleInputEvent
func goHandleInputEvent(_ C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	stream, ok := cgo.Handle(uintptr(userInfo)).Value().(*quartzStream)
	if !ok {
		return event
	}
	if eventType == C.kCGEventTapDisabledByTimeout || eventType == C.kCGEventTapDisabledByUserInput {
		stream.logger.Warn("event tap disabled by the system, re-enabling")
		C.reenableTap(stream.tap)
		return event
	}
	ev, ok := stream.translate(eventType, event)
	if !ok {
		return event
	}
	if stream.deliver(ev) == Suppress {
		return 0
	}
	return event
}

var quartzNamed = map[int]keys.Code{
	0x24: keys.Enter,
	0x30: keys.Tab,
	0x31: keys.Space,
	0x33: keys.Backspace,
	0x35: keys.Esc,
	0x36: keys.CmdR,
	0x37: keys.Cmd,
	0x38: keys.Shift,
	0x39: keys.CapsLock,
	0x3A: keys.Alt,
	0x3B: keys.Ctrl,
	0x3C: keys.ShiftR,
	0x3D: keys.AltR,
	0x3E: keys.CtrlR,
	0x40: keys.F17,
	0x48: keys.MediaVolumeUp,
	0x49: keys.MediaVolumeDown,
	0x4A: keys.MediaVolumeMute,
	0x4F: keys.F18,
	0x50: keys.F19,
	0x5A: keys.F20,
	0x60: keys.F5,
	0x61: keys.F6,
	0x62: keys.F7,
	0x63: keys.F3,
	0x64: keys.F8,
	0x65: keys.F9,
	0x67: keys.F11,
	0x69: keys.F13,
	0x6A: keys.F16,
	0x6B: keys.F14,
	0x6D: keys.F10,
	0x6F: keys.F12,
	0x71: keys.F15,
	0x72: keys.Insert,
	0x73: keys.Home,
	0x74: keys.PageUp,
	0x75: keys.Delete,
	0x76: keys.F4,
	0x77: keys.End,
	0x78: keys.F2,
	0x79: keys.PageDown,
	0x7A: keys.F1,
	0x7B: keys.Left,
	0x7C: keys.Right,
	0x7D: keys.Down,
	0x7E: keys.Up,
}

var quartzKeycodes = func() map[keys.Code]int {
	m := map[keys.Code]int{keys.ShiftL: 0x38, keys.CtrlL: 0x3B, keys.AltL: 0x3A, keys.CmdL: 0x37, keys.AltGr: 0x3D}
	for code, named := range quartzNamed {
		m[named] = code
	}
	return m
}()

func quartzKey(keycode int, ch rune) keys.Key {
	if named, ok := quartzNamed[keycode]; ok {
		return keys.Named(named)
	}
	return keys.FromRune(ch, uint32(keycode))
}
