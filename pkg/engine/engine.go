// Package engine wires the input source, hotkey dispatcher, recorder and
// player into the operations a front-end calls. Background goroutines never
// call into the front-end; they post Notifications instead.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/offlinefirst/macrorec/pkg/compact"
	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/hotkey"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/keys"
	"github.com/offlinefirst/macrorec/pkg/playback"
	"github.com/offlinefirst/macrorec/pkg/recorder"
)

// DefaultQueueSize is the notification buffer used when Options.QueueSize is zero.
const DefaultQueueSize = 64

var (
	ErrRecording     = errors.New("a recording is in progress")
	ErrPlaying       = errors.New("a playback is in progress")
	ErrNoSource      = errors.New("no input source configured")
	ErrNoSynthesizer = errors.New("no synthesizer configured")
	ErrNoPlaySource  = errors.New("no macro selected for playback")
	ErrClosed        = errors.New("engine closed")
)

// Kind identifies a notification.
type Kind uint8

const (
	RecordingStarted Kind = iota + 1
	RecordingStopped
	PlaybackStarted
	PlaybackFinished
	HotkeyTriggered
	Error
)

func (k Kind) String() string {
	switch k {
	case RecordingStarted:
		return "recording_started"
	case RecordingStopped:
		return "recording_stopped"
	case PlaybackStarted:
		return "playback_started"
	case PlaybackFinished:
		return "playback_finished"
	case HotkeyTriggered:
		return "hotkey_triggered"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Notification is posted to the queue returned by Notifications. Only the
// fields relevant to Kind are set.
type Notification struct {
	Kind   Kind
	Log    events.Log
	Result playback.Result
	Action hotkey.Action
	Key    keys.Key
	Err    error
}

// Options configures an Engine. Source and Synth are optional; operations
// that need a missing one fail with ErrNoSource or ErrNoSynthesizer.
type Options struct {
	Source     input.Source
	Synth      input.Synthesizer
	Clock      events.Clock
	Logger     *slog.Logger
	Delay      float64
	Bindings   hotkey.Bindings
	PlaySource func() (events.Log, error)
	QueueSize  int
	Sleep      playback.SleepFunc
}

// Engine owns one recording/playback session at a time.
type Engine struct {
	logger     *slog.Logger
	service    *input.Service
	dispatcher *hotkey.Dispatcher
	recorder   *recorder.Recorder
	player     *playback.Player
	synth      input.Synthesizer
	gate       *Gate
	playSource func() (events.Log, error)
	notes      chan Notification

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New builds an engine. Nothing touches the OS until Start or the first
// synthesized event.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = events.Monotonic
	}
	rec, err := recorder.New(recorder.Options{Delay: opts.Delay, Clock: clock, Logger: logger.With("component", "recorder")})
	if err != nil {
		return nil, err
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		logger:     logger,
		recorder:   rec,
		synth:      opts.Synth,
		gate:       NewGate(),
		playSource: opts.PlaySource,
		notes:      make(chan Notification, size),
		ctx:        ctx,
		cancel:     cancel,
	}
	e.dispatcher = hotkey.NewDispatcher(e.fire)
	e.dispatcher.SetGate(e.gate.Dispatching)
	e.dispatcher.SetBindings(opts.Bindings)
	if opts.Source != nil {
		svc, err := input.NewService(input.Options{Source: opts.Source, Clock: clock, Logger: logger.With("component", "input")})
		if err != nil {
			cancel()
			return nil, err
		}
		e.service = svc
	}
	if opts.Synth != nil {
		player, err := playback.New(playback.Options{Synth: opts.Synth, Sleep: opts.Sleep, Logger: logger.With("component", "playback")})
		if err != nil {
			cancel()
			return nil, err
		}
		e.player = player
	}
	return e, nil
}

// Start installs the input hook. Hook failures are returned as is so callers
// can match input.ErrHookUnavailable.
func (e *Engine) Start(ctx context.Context) error {
	if e.service == nil {
		return ErrNoSource
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := e.service.Start(ctx, e.handle); err != nil {
		return err
	}
	done := e.service.Done()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-done:
			e.gate.Kill(e.service.Err())
		case <-e.gate.Done():
		}
	}()
	e.logger.Info("input dispatch started")
	return nil
}

// Close stops input delivery and any running playback, then releases the
// synthesizer.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.gate.Kill(nil)
	e.cancel()
	var errs []error
	if e.service != nil {
		if err := e.service.Stop(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	e.wg.Wait()
	if e.synth != nil {
		if err := e.synth.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close synthesizer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Done is closed once input delivery has ended, either because the source
// exited or because the engine was closed.
func (e *Engine) Done() <-chan struct{} { return e.gate.Done() }

// Err returns the error the input source exited with, if any.
func (e *Engine) Err() error { return e.gate.Err() }

// Notifications returns the queue the front-end drains.
func (e *Engine) Notifications() <-chan Notification { return e.notes }

// StartRecording arms the recorder.
func (e *Engine) StartRecording() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	if e.closed {
		return ErrClosed
	}
	if e.player != nil && e.player.IsPlaying() {
		return ErrPlaying
	}
	if err := e.recorder.Start(); err != nil {
		return err
	}
	e.logger.Info("recording started", "delay", e.recorder.Delay())
	e.post(Notification{Kind: RecordingStarted})
	return nil
}

// StopRecording disarms the recorder and returns the captured log.
func (e *Engine) StopRecording() (events.Log, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() (events.Log, error) {
	log, err := e.recorder.Stop()
	if err != nil {
		return nil, err
	}
	e.logger.Info("recording stopped", "events", len(log))
	e.post(Notification{Kind: RecordingStopped, Log: log.Clone()})
	return log, nil
}

// ToggleRecording starts a recording when idle and stops it otherwise. The
// returned log is nil when a recording was started.
func (e *Engine) ToggleRecording() (events.Log, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recorder.IsRecording() {
		return e.stopLocked()
	}
	return nil, e.startLocked()
}

// IsRecording reports whether the recorder is armed.
func (e *Engine) IsRecording() bool { return e.recorder.IsRecording() }

// IsPlaying reports whether a playback is running.
func (e *Engine) IsPlaying() bool { return e.player != nil && e.player.IsPlaying() }

// Play replays log asynchronously. The returned channel yields the Result
// once and is closed; a PlaybackFinished notification is posted as well.
func (e *Engine) Play(log events.Log) (<-chan playback.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.player == nil {
		return nil, ErrNoSynthesizer
	}
	if e.recorder.IsRecording() {
		return nil, ErrRecording
	}
	results, err := e.player.Start(e.ctx, log.Clone())
	if err != nil {
		if errors.Is(err, playback.ErrAlreadyPlaying) {
			return nil, fmt.Errorf("%w: %w", ErrPlaying, err)
		}
		return nil, err
	}
	e.post(Notification{Kind: PlaybackStarted})

	out := make(chan playback.Result, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)
		res := <-results
		e.post(Notification{Kind: PlaybackFinished, Result: res})
		out <- res
	}()
	return out, nil
}

// PlaySelected replays whatever the configured PlaySource returns.
func (e *Engine) PlaySelected() (<-chan playback.Result, error) {
	if e.playSource == nil {
		return nil, ErrNoPlaySource
	}
	log, err := e.playSource()
	if err != nil {
		return nil, fmt.Errorf("load selected macro: %w", err)
	}
	return e.Play(log)
}

// SetHotkeyBindings replaces the binding table wholesale.
func (e *Engine) SetHotkeyBindings(b hotkey.Bindings) {
	e.dispatcher.SetBindings(b)
	e.logger.Debug("hotkey bindings replaced", "count", len(b))
}

// HotkeyBindings returns a copy of the active table.
func (e *Engine) HotkeyBindings() hotkey.Bindings { return e.dispatcher.Bindings() }

// SetRecordingDelay changes the arming delay for the next recording.
func (e *Engine) SetRecordingDelay(seconds float64) error {
	return e.recorder.SetDelay(seconds)
}

// PauseInputDispatch makes hotkeys inert. Events still reach the recorder.
// Pauses nest.
func (e *Engine) PauseInputDispatch() { e.gate.Pause() }

// ResumeInputDispatch undoes one PauseInputDispatch.
func (e *Engine) ResumeInputDispatch() { e.gate.Resume() }

// DispatchState reports running, paused or stopping.
func (e *Engine) DispatchState() string { return e.gate.State() }

// CaptureNextKeyPress waits for one key-down and returns it. Hotkeys are
// paused for the duration so the captured key never fires a binding.
func (e *Engine) CaptureNextKeyPress(ctx context.Context) (keys.Key, error) {
	if e.service == nil {
		return keys.Key{}, ErrNoSource
	}
	e.PauseInputDispatch()
	defer e.ResumeInputDispatch()
	return e.service.CaptureNextKey(ctx)
}

// Compact summarises log for display.
func (e *Engine) Compact(log events.Log) []compact.Action {
	return compact.Compact(log)
}

func (e *Engine) handle(ev events.Event) input.Verdict {
	if e.gate.Stopped() {
		return input.Pass
	}
	if e.dispatcher.Dispatch(ev) {
		return input.Suppress
	}
	e.recorder.Record(ev)
	return input.Pass
}

func (e *Engine) fire(action hotkey.Action, key keys.Key) {
	e.logger.Debug("hotkey triggered", "action", action.String(), "key", key.String())
	e.post(Notification{Kind: HotkeyTriggered, Action: action, Key: key})

	var err error
	switch action {
	case hotkey.ActionStart:
		err = e.StartRecording()
	case hotkey.ActionStop:
		_, err = e.StopRecording()
	case hotkey.ActionToggle:
		_, err = e.ToggleRecording()
	case hotkey.ActionPlay:
		_, err = e.PlaySelected()
	}
	if err != nil {
		e.logger.Warn("hotkey action failed", "action", action.String(), "error", err)
		e.post(Notification{Kind: Error, Action: action, Key: key, Err: err})
	}
}

func (e *Engine) post(n Notification) {
	select {
	case e.notes <- n:
	default:
		e.logger.Warn("notification queue full; dropping", "kind", n.Kind.String())
	}
}
