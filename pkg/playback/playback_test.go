package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	gate  chan struct{}
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func newPlayer(t *testing.T, synth input.Synthesizer, sleeper *sleepRecorder) *Player {
	t.Helper()
	p, err := New(Options{Synth: synth, Sleep: sleeper.sleep})
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	return p
}

// playToEnd starts log and waits for its Result.
func playToEnd(t *testing.T, p *Player, log events.Log) (Result, error) {
	t.Helper()
	done, err := p.Start(context.Background(), log)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-done:
		return res, nil
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
		return Result{}, nil
	}
}

func TestPlaybackHonoursRecordedDelays(t *testing.T) {
	synth := input.NewMemorySynthesizer(nil)
	var sleeper sleepRecorder
	p := newPlayer(t, synth, &sleeper)

	res, err := playToEnd(t, p, events.Log{
		events.KeyDown(5.0, keys.Char('a')),
		events.KeyUp(5.25, keys.Char('a')),
		events.Move(5.75, 10, 10),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []time.Duration{0, 250 * time.Millisecond, 500 * time.Millisecond}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), sleeper.waits)
	}
	for i := range want {
		if diff := sleeper.waits[i] - want[i]; diff > time.Microsecond || diff < -time.Microsecond {
			t.Fatalf("wait %d: expected %v, got %v", i, want[i], sleeper.waits[i])
		}
	}
	if res.Played != 3 || res.Failed != 0 || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPlaybackMovesBeforeClickAndScroll(t *testing.T) {
	synth := input.NewMemorySynthesizer(nil)
	p := newPlayer(t, synth, &sleepRecorder{})

	if _, err := playToEnd(t, p, events.Log{
		events.Click(1, 10, 20, events.ButtonLeft, true),
		events.Click(1.1, 10, 20, events.ButtonLeft, false),
		events.Scroll(1.2, 30, 40, 0, -2),
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []string
	for _, c := range synth.Calls() {
		got = append(got, c.String())
	}
	want := []string{
		"move(10, 20)", "button_down(Button.left)",
		"move(10, 20)", "button_up(Button.left)",
		"move(30, 40)", "scroll(0, -2)",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPlaybackSkipsFailingEvents(t *testing.T) {
	synth := input.NewMemorySynthesizer(nil)
	p := newPlayer(t, synth, &sleepRecorder{})

	res, err := playToEnd(t, p, events.Log{
		events.KeyDown(0, keys.Char('a')),
		events.KeyDown(0.1, keys.Unresolved("Key.hyper")),
		{Time: 0.2},
		events.KeyUp(0.3, keys.Char('a')),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Played != 2 || res.Failed != 2 {
		t.Fatalf("expected 2 played and 2 failed, got %+v", res)
	}
	calls := synth.Calls()
	if len(calls) != 2 || calls[1].Op != "key_up" {
		t.Fatalf("expected events after the failures to play, got %v", calls)
	}
}

func TestEmptyLogCompletesImmediately(t *testing.T) {
	p := newPlayer(t, input.NewMemorySynthesizer(nil), &sleepRecorder{})
	done, err := p.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case res := <-done:
		if res.Played != 0 || res.Err != nil {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("empty playback did not finish")
	}
	if _, ok := <-done; ok {
		t.Fatalf("expected result channel to be closed")
	}
}

func TestSecondPlaybackRefused(t *testing.T) {
	sleeper := &sleepRecorder{gate: make(chan struct{})}
	p := newPlayer(t, input.NewMemorySynthesizer(nil), sleeper)

	done, err := p.Start(context.Background(), events.Log{events.Move(0, 1, 1)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.IsPlaying() {
		t.Fatalf("expected playing state")
	}
	if _, err := p.Start(context.Background(), events.Log{}); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("expected ErrAlreadyPlaying, got %v", err)
	}
	close(sleeper.gate)
	<-done
	if p.IsPlaying() {
		t.Fatalf("expected idle after completion")
	}
}

func TestCancellationStopsPlayback(t *testing.T) {
	sleeper := &sleepRecorder{gate: make(chan struct{})}
	p := newPlayer(t, input.NewMemorySynthesizer(nil), sleeper)
	ctx, cancel := context.WithCancel(context.Background())

	done, err := p.Start(ctx, events.Log{events.Move(0, 1, 1), events.Move(1, 2, 2)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	res := <-done
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", res)
	}
}
