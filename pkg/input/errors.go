package input

import "errors"

var (
	// ErrHookUnavailable reports that the platform input hook could not be installed.
	ErrHookUnavailable = errors.New("input hook unavailable")
	// ErrAccessibilityPermission indicates the host must grant macOS Accessibility trust.
	ErrAccessibilityPermission = errors.New("macOS accessibility permission required for input capture")
	// ErrUnsupportedKey reports a key a synthesizer cannot map to a platform key.
	ErrUnsupportedKey = errors.New("key not supported by synthesizer")
	// ErrUnsupportedButton reports a mouse button a synthesizer cannot press.
	ErrUnsupportedButton = errors.New("button not supported by synthesizer")

	ErrAlreadyRunning = errors.New("input service already running")
	ErrNotRunning     = errors.New("input service not running")
	ErrCaptureBusy    = errors.New("a key capture is already pending")
)
