//go:build !(windows && (amd64 || arm64)) && !(darwin && cgo) && !linux && !freebsd && !openbsd && !netbsd

package input

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

func newPlatformSource(time.Duration, *slog.Logger) (Source, error) {
	return nil, fmt.Errorf("%w: no input backend for %s/%s", ErrHookUnavailable, runtime.GOOS, runtime.GOARCH)
}

func newPlatformSynthesizer(*slog.Logger) (Synthesizer, error) {
	return nil, fmt.Errorf("%w: no synthesizer for %s/%s", ErrHookUnavailable, runtime.GOOS, runtime.GOARCH)
}
