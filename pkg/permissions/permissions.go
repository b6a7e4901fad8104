package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that the capability can be used.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// Environment variables that override platform probing, mainly for tests and CI.
const (
	EnvAccessibility = "MACROREC_ACCESSIBILITY"
	EnvInputHook     = "MACROREC_INPUT_HOOK"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

var lookupEnv = os.LookupEnv

var goos = runtime.GOOS

// ProbeAccessibility inspects environment flags for macOS accessibility trust,
// which both the event tap and event posting require.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(EnvAccessibility); ok {
		return interpretPermissionFlag("accessibility", value)
	}
	if goos == "darwin" {
		return ProbeResult{
			Status:   StatusPromptRequired,
			Message:  "accessibility trust required",
			Guidance: "enable the terminal under System Settings > Privacy & Security > Accessibility",
		}
	}
	return ProbeResult{Status: StatusUnavailable, Message: "accessibility prompts unavailable"}
}

// ProbeInputHook reports whether a global keyboard and mouse hook can be
// installed on this host.
func ProbeInputHook(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup(EnvInputHook); ok {
		return interpretPermissionFlag("input hook", value)
	}
	switch goos {
	case "darwin":
		return ProbeAccessibility(lookup)
	case "windows":
		return ProbeResult{Status: StatusGranted, Message: "low-level keyboard and mouse hooks need no permission"}
	case "linux", "freebsd", "openbsd", "netbsd":
		display, hasDisplay := lookup("DISPLAY")
		if hasDisplay && strings.TrimSpace(display) != "" {
			return ProbeResult{Status: StatusGranted, Message: "X11 display " + display}
		}
		if wayland, ok := lookup("WAYLAND_DISPLAY"); ok && strings.TrimSpace(wayland) != "" {
			return ProbeResult{
				Status:   StatusUnavailable,
				Message:  "Wayland session without an X11 display",
				Guidance: "start an X11 session or run under XWayland with DISPLAY set",
			}
		}
		return ProbeResult{
			Status:   StatusUnavailable,
			Message:  "no X11 display",
			Guidance: "set DISPLAY or use --backend=scripted",
		}
	default:
		return ProbeResult{Status: StatusUnavailable, Message: "input hooks unsupported on " + goos}
	}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "use 'tccutil reset Accessibility' or update MACROREC_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// Usable reports whether the capability may work, possibly after a prompt.
func (p ProbeResult) Usable() bool {
	return p.Status == StatusGranted || p.Status == StatusPromptRequired || p.Status == StatusUnknown
}

// StatusString returns the string representation used in reports.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
