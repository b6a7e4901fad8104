package input

import (
	"testing"

	"github.com/offlinefirst/macrorec/pkg/permissions"
)

func TestDetectEnvironmentSetsFields(t *testing.T) {
	env := DetectEnvironment()
	if env.Provider == "" {
		t.Fatalf("expected provider")
	}
	if env.Permission == "" {
		t.Fatalf("expected permission status")
	}
	if env.Message == "" {
		t.Fatalf("expected message")
	}
}

func TestDetectEnvironmentDeniedDisablesBackend(t *testing.T) {
	prev := hostOS
	hostOS = "darwin"
	t.Cleanup(func() { hostOS = prev })

	lookup := func(key string) (string, bool) {
		if key == permissions.EnvInputHook {
			return "denied", true
		}
		return "", false
	}
	env := detectEnvironment(lookup)
	if env.Available || env.Suppression {
		t.Fatalf("expected unavailable backend, got %+v", env)
	}
	if env.Provider != ProviderQuartz || env.Guidance == "" {
		t.Fatalf("unexpected environment %+v", env)
	}
}

func TestDetectEnvironmentUnsupportedOS(t *testing.T) {
	prev := hostOS
	hostOS = "plan9"
	t.Cleanup(func() { hostOS = prev })

	env := detectEnvironment(func(string) (string, bool) { return "granted", true })
	if env.Available || env.Provider != ProviderNone {
		t.Fatalf("expected no backend, got %+v", env)
	}
}
