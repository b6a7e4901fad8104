package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

// Options configures a Service.
type Options struct {
	Source Source
	Clock  events.Clock
	Logger *slog.Logger
}

// Service runs one Source at a time and routes its events. Every delivered
// event is stamped with the service clock before the handler sees it.
type Service struct {
	source Source
	clock  events.Clock
	logger *slog.Logger

	mu      sync.Mutex
	handler Handler
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	capture  chan keys.Key
	captured map[keys.Key]struct{}
}

// NewService validates options and returns an idle service.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("input source must not be nil")
	}
	clock := opts.Clock
	if clock == nil {
		clock = events.Monotonic
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		source:   opts.Source,
		clock:    clock,
		logger:   logger,
		captured: make(map[keys.Key]struct{}),
	}, nil
}

// Start installs the hook and begins delivering events to h. It blocks until
// the source reports ready or fails; installation failures wrap ErrHookUnavailable.
func (s *Service) Start(ctx context.Context, h Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.handler = h
	s.cancel = cancel
	s.done = make(chan struct{})
	s.err = nil
	done := s.done
	s.mu.Unlock()

	ready := make(chan struct{})
	var readyOnce sync.Once
	markReady := func() { readyOnce.Do(func() { close(ready) }) }

	exited := make(chan error, 1)
	go func() {
		exited <- s.source.Run(runCtx, markReady, s.deliver)
	}()

	select {
	case <-ready:
	case err := <-exited:
		cancel()
		if err == nil {
			err = errors.New("source exited before the hook was installed")
		}
		if !errors.Is(err, ErrHookUnavailable) {
			err = fmt.Errorf("%w: %w", ErrHookUnavailable, err)
		}
		s.finish(done, err)
		return err
	case <-ctx.Done():
		cancel()
		err := <-exited
		s.finish(done, err)
		return ctx.Err()
	}

	s.logger.Debug("input hook installed")
	go func() {
		err := <-exited
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			s.logger.Error("input source stopped", "error", err)
		} else {
			s.logger.Debug("input source stopped")
		}
		s.finish(done, err)
	}()
	return nil
}

func (s *Service) finish(done chan struct{}, err error) {
	s.mu.Lock()
	if s.done == done {
		s.running = false
		s.err = err
		s.handler = nil
		s.cancel = nil
		if s.capture != nil {
			close(s.capture)
			s.capture = nil
		}
	}
	s.mu.Unlock()
	close(done)
}

// Stop cancels the source and waits for it to exit.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	cancel()
	<-done
	return s.Err()
}

// Done is closed when the current source exits. It is nil before Start.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error the last source exited with, if any.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Running reports whether a source is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CaptureNextKey consumes exactly one key-down, ahead of the handler, and
// returns its identifier. The release of that key is swallowed too.
func (s *Service) CaptureNextKey(ctx context.Context) (keys.Key, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return keys.Key{}, ErrNotRunning
	}
	if s.capture != nil {
		s.mu.Unlock()
		return keys.Key{}, ErrCaptureBusy
	}
	ch := make(chan keys.Key, 1)
	s.capture = ch
	s.mu.Unlock()

	select {
	case k, ok := <-ch:
		if !ok {
			return keys.Key{}, ErrNotRunning
		}
		return k, nil
	case <-ctx.Done():
		s.mu.Lock()
		if s.capture == ch {
			s.capture = nil
		}
		s.mu.Unlock()
		return keys.Key{}, ctx.Err()
	}
}

func (s *Service) deliver(ev events.Event) Verdict {
	ev.Time = s.clock()

	s.mu.Lock()
	switch ev.Kind {
	case events.KeyPress:
		if s.capture != nil {
			s.capture <- ev.Key
			s.capture = nil
			s.captured[ev.Key] = struct{}{}
			s.mu.Unlock()
			return Suppress
		}
	case events.KeyRelease:
		if _, ok := s.captured[ev.Key]; ok {
			delete(s.captured, ev.Key)
			s.mu.Unlock()
			return Suppress
		}
	}
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		return Pass
	}
	return h(ev)
}
