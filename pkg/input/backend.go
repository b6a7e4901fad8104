package input

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Backend names accepted by OpenSource and OpenSynthesizer.
const (
	BackendAuto     = "auto"
	BackendScripted = "scripted"
)

// DefaultPollInterval is the sampling period of polling backends.
const DefaultPollInterval = 8 * time.Millisecond

// BackendOptions tunes platform backends.
type BackendOptions struct {
	// PollInterval is used by backends that sample device state (X11).
	PollInterval time.Duration
	// Script overrides DemoScript for the scripted backend.
	Script []Step
	Logger *slog.Logger
}

func (o BackendOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// OpenSource resolves a backend name into a capture source. Platform sources
// connect lazily; connection problems surface from Service.Start.
func OpenSource(backend string, opts BackendOptions) (Source, error) {
	switch backend {
	case BackendScripted:
		script := opts.Script
		if script == nil {
			script = DemoScript()
		}
		return NewScriptedSource(script), nil
	case "", BackendAuto:
		interval := opts.PollInterval
		if interval <= 0 {
			interval = DefaultPollInterval
		}
		return newPlatformSource(interval, opts.logger())
	default:
		return nil, fmt.Errorf("unknown input backend %q", backend)
	}
}

// OpenSynthesizer resolves a backend name into a synthesizer.
func OpenSynthesizer(backend string, opts BackendOptions) (Synthesizer, error) {
	switch backend {
	case BackendScripted:
		return NewMemorySynthesizer(opts.logger()), nil
	case "", BackendAuto:
		return newPlatformSynthesizer(opts.logger())
	default:
		return nil, fmt.Errorf("unknown input backend %q", backend)
	}
}
