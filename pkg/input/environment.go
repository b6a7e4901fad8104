package input

import (
	"runtime"

	"github.com/offlinefirst/macrorec/pkg/permissions"
)

// Environment summarises input backend support on this host.
type Environment struct {
	Provider    string
	Available   bool
	Suppression bool
	Permission  string
	Message     string
	Guidance    string
}

const (
	ProviderWindowsHook = "windows_ll_hook"
	ProviderQuartz      = "quartz_event_tap"
	ProviderX11         = "x11_poll"
	ProviderScripted    = "scripted"
	ProviderNone        = "none"
)

var hostOS = runtime.GOOS

// DetectEnvironment reports which platform backend "auto" resolves to and
// whether it is expected to work.
func DetectEnvironment() Environment {
	return detectEnvironment(nil)
}

func detectEnvironment(lookup permissions.LookupEnvFunc) Environment {
	probe := permissions.ProbeInputHook(lookup)
	env := Environment{
		Provider:   ProviderNone,
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
		Available:  probe.Usable(),
	}

	switch hostOS {
	case "windows":
		env.Provider = ProviderWindowsHook
		env.Suppression = true
	case "darwin":
		env.Provider = ProviderQuartz
		env.Suppression = true
		if !env.Available && env.Message == "" {
			env.Message = "accessibility permission missing"
		}
	case "linux", "freebsd", "openbsd", "netbsd":
		env.Provider = ProviderX11
		if env.Available && env.Guidance == "" {
			env.Guidance = "hotkeys are observed but not swallowed under X11 polling"
		}
	default:
		env.Available = false
		if env.Message == "" {
			env.Message = "no input backend for " + hostOS
		}
	}

	if !env.Available {
		env.Suppression = false
		if env.Guidance == "" {
			env.Guidance = "use --backend=scripted to exercise the CLI without a hook"
		}
	}
	return env
}
