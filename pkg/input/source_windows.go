//go:build windows && (amd64 || arm64)

package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/offlinefirst/macrorec/pkg/events"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E

	wheelDelta = 120
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procMapVirtualKey       = user32.NewProc("MapVirtualKeyW")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

type point struct {
	X, Y int32
}

type msllHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// Only one hook pair can be active per process; the callbacks are created
// once because Windows callback slots are never released.
var (
	activeHook       atomic.Pointer[hookStream]
	callbacksOnce    sync.Once
	keyboardCallback uintptr
	mouseCallback    uintptr
)

type hookStream struct {
	deliver Deliver
	logger  *slog.Logger
}

type windowsSource struct {
	logger *slog.Logger
}

func newPlatformSource(_ time.Duration, logger *slog.Logger) (Source, error) {
	return &windowsSource{logger: logger}, nil
}

func (s *windowsSource) Run(ctx context.Context, ready func(), deliver Deliver) error {
	callbacksOnce.Do(func() {
		keyboardCallback = windows.NewCallback(keyboardProc)
		mouseCallback = windows.NewCallback(mouseProc)
	})

	stream := &hookStream{deliver: deliver, logger: s.logger}
	if !activeHook.CompareAndSwap(nil, stream) {
		return errors.New("another input hook is already active in this process")
	}
	defer activeHook.Store(nil)

	// Low-level hooks are serviced by the message loop of the installing thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	module, _, _ := procGetModuleHandle.Call(0)
	kbHook, _, err := procSetWindowsHookEx.Call(whKeyboardLL, keyboardCallback, module, 0)
	if kbHook == 0 {
		return fmt.Errorf("install keyboard hook: %v", err)
	}
	defer procUnhookWindowsHookEx.Call(kbHook)
	mouseHook, _, err := procSetWindowsHookEx.Call(whMouseLL, mouseCallback, module, 0)
	if mouseHook == 0 {
		return fmt.Errorf("install mouse hook: %v", err)
	}
	defer procUnhookWindowsHookEx.Call(mouseHook)

	threadID := windows.GetCurrentThreadId()
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			procPostThreadMessage.Call(uintptr(threadID), wmQuit, 0, 0)
		case <-stopped:
		}
	}()

	ready()
	var m msg
	for {
		ret, _, err := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("message loop: %v", err)
		case 0:
			return ctx.Err()
		}
	}
}

func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	stream := activeHook.Load()
	if nCode >= 0 && stream != nil {
		info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		k := keyFromVK(info.VkCode)
		var ev events.Event
		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			ev = events.KeyDown(0, k)
		case wmKeyUp, wmSysKeyUp:
			ev = events.KeyUp(0, k)
		}
		if ev.Kind != events.KindInvalid && stream.deliver(ev) == Suppress {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	stream := activeHook.Load()
	if nCode >= 0 && stream != nil {
		info := (*msllHookStruct)(unsafe.Pointer(lParam))
		x, y := int(info.Pt.X), int(info.Pt.Y)
		var ev events.Event
		switch wParam {
		case wmMouseMove:
			ev = events.Move(0, x, y)
		case wmLButtonDown, wmLButtonUp:
			ev = events.Click(0, x, y, events.ButtonLeft, wParam == wmLButtonDown)
		case wmRButtonDown, wmRButtonUp:
			ev = events.Click(0, x, y, events.ButtonRight, wParam == wmRButtonDown)
		case wmMButtonDown, wmMButtonUp:
			ev = events.Click(0, x, y, events.ButtonMiddle, wParam == wmMButtonDown)
		case wmMouseWheel:
			ev = events.Scroll(0, x, y, 0, wheelSteps(info.MouseData))
		case wmMouseHWheel:
			ev = events.Scroll(0, x, y, wheelSteps(info.MouseData), 0)
		}
		if ev.Kind != events.KindInvalid && stream.deliver(ev) == Suppress {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// wheelSteps converts the wheel delta in the high word of mouseData into
// notches. Sub-notch deltas from precision touchpads still count as one.
func wheelSteps(mouseData uint32) int {
	delta := int(int16(mouseData >> 16))
	steps := delta / wheelDelta
	if steps == 0 && delta != 0 {
		if delta > 0 {
			return 1
		}
		return -1
	}
	return steps
}
