// Package buildinfo reports which build of macrorec is running.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

var (
	mu       sync.RWMutex
	override string

	// readBuildInfo is extracted for testability.
	readBuildInfo = debug.ReadBuildInfo
)

// SetVersion pins the reported version, typically from a linker flag. An
// empty string leaves the module metadata in charge.
func SetVersion(v string) {
	if v == "" {
		return
	}
	mu.Lock()
	override = v
	mu.Unlock()
}

// Version returns the pinned version, else the module version, else the VCS
// revision (shortened, with a "+dirty" mark for modified trees), else "dev".
func Version() string {
	mu.RLock()
	v := override
	mu.RUnlock()
	if v != "" {
		return v
	}

	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if revision == "" {
		return "dev"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "+dirty"
	}
	return "dev-" + revision
}
