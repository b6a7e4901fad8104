// Package playback replays an event log through a synthesizer with the
// original inter-event timing.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/input"
)

var (
	ErrAlreadyPlaying = errors.New("playback already in progress")
	ErrUnknownEvent   = errors.New("unknown event kind")
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Player.
type Options struct {
	Synth  input.Synthesizer
	Logger *slog.Logger
	Sleep  SleepFunc
	Now    func() time.Time
}

// Result summarises one playback run.
type Result struct {
	Played     int
	Failed     int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Player runs at most one playback at a time.
type Player struct {
	synth   input.Synthesizer
	logger  *slog.Logger
	sleep   SleepFunc
	now     func() time.Time
	playing atomic.Bool
}

// New validates options and returns a Player.
func New(opts Options) (*Player, error) {
	if opts.Synth == nil {
		return nil, errors.New("synthesizer must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Player{synth: opts.Synth, logger: logger, sleep: sleep, now: now}, nil
}

// IsPlaying reports whether a playback is running.
func (p *Player) IsPlaying() bool { return p.playing.Load() }

// Start replays log on a new goroutine. The returned channel yields exactly
// one Result and is then closed.
func (p *Player) Start(ctx context.Context, log events.Log) (<-chan Result, error) {
	if !p.playing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyPlaying
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		res := p.run(ctx, log)
		p.playing.Store(false)
		done <- res
	}()
	return done, nil
}

func (p *Player) run(ctx context.Context, log events.Log) Result {
	res := Result{StartedAt: p.now()}
	p.logger.Info("playback started", "events", len(log))
	if len(log) > 0 {
		prev := log[0].Time
		for i, ev := range log {
			if err := p.sleep(ctx, events.Seconds(max(0, ev.Time-prev))); err != nil {
				res.Err = err
				break
			}
			prev = ev.Time
			if err := p.apply(ev); err != nil {
				res.Failed++
				p.logger.Warn("playback event failed", "index", i, "event", ev.String(), "error", err)
				continue
			}
			res.Played++
		}
	}
	res.FinishedAt = p.now()
	if res.Err != nil {
		p.logger.Info("playback interrupted", "played", res.Played, "failed", res.Failed, "error", res.Err)
	} else {
		p.logger.Info("playback finished", "played", res.Played, "failed", res.Failed)
	}
	return res
}

func (p *Player) apply(ev events.Event) error {
	switch ev.Kind {
	case events.KeyPress:
		return p.synth.KeyDown(ev.Key)
	case events.KeyRelease:
		return p.synth.KeyUp(ev.Key)
	case events.MouseMove:
		return p.synth.MoveTo(ev.X, ev.Y)
	case events.MouseClick:
		if err := p.synth.MoveTo(ev.X, ev.Y); err != nil {
			return err
		}
		if ev.Pressed {
			return p.synth.ButtonDown(ev.Button)
		}
		return p.synth.ButtonUp(ev.Button)
	case events.MouseScroll:
		if err := p.synth.MoveTo(ev.X, ev.Y); err != nil {
			return err
		}
		return p.synth.Scroll(ev.DX, ev.DY)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}
}
