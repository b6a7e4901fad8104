package buildinfo

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	origRead := readBuildInfo
	origOverride := override
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	override = ""
	t.Cleanup(func() {
		readBuildInfo = origRead
		override = origOverride
	})
}

func TestVersionFallsBackToDev(t *testing.T) {
	withBuildInfo(t, nil)
	if got := Version(); got != "dev" {
		t.Fatalf("expected dev, got %q", got)
	}
}

func TestVersionPrefersOverride(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}})
	SetVersion("")
	if got := Version(); got != "v0.3.0" {
		t.Fatalf("empty SetVersion must not override module version, got %q", got)
	}
	SetVersion("v9.9.9")
	if got := Version(); got != "v9.9.9" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestVersionUsesVCSRevision(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if got := Version(); got != "dev-0123456789ab+dirty" {
		t.Fatalf("unexpected version: %q", got)
	}
}
