package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/offlinefirst/macrorec/pkg/engine"
	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/history"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/macro"
	"github.com/offlinefirst/macrorec/pkg/playback"
	"github.com/offlinefirst/macrorec/pkg/recorder"
)

func newRecordCommand() command {
	return command{
		name:        "record",
		usage:       "<name>",
		description: "Record input into a macro until the stop hotkey, Ctrl-C or --duration",
		configure: func(fs *flag.FlagSet) {
			fs.Duration("duration", 0, "Stop automatically after this long (0 = no limit)")
			fs.String("delay", "", "Arming delay in seconds (default: from settings)")
		},
		run: runRecord,
	}
}

func runRecord(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if err := requireArgs(args, 1, "macrorec record <name>"); err != nil {
		return err
	}
	name := args[0]
	if err := macro.ValidateName(name); err != nil {
		return err
	}

	prefs := ctx.loadSettings()
	delay := prefs.RecordingDelay
	if flagWasSet(fs, "delay") {
		v, err := strconv.ParseFloat(stringFlag(fs, "delay"), 64)
		if err != nil {
			return fmt.Errorf("invalid --delay: %w", err)
		}
		delay = v
	}

	store, err := ctx.store()
	if err != nil {
		return err
	}
	if !store.Exists(name) {
		if err := store.CreateNamed(name); err != nil {
			return err
		}
	}

	source, err := ctx.openSource()
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Options{
		Source:   source,
		Delay:    delay,
		Bindings: prefs.Bindings(),
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	runCtx, cancel := interruptContext()
	defer cancel()

	entry := history.NewEntry(history.KindRecord, name, timeNow())
	if err := eng.StartRecording(); err != nil {
		return err
	}
	if err := eng.Start(runCtx); err != nil {
		if errors.Is(err, input.ErrHookUnavailable) {
			return ctx.hookFailure(err)
		}
		return err
	}

	fmt.Fprintf(stdout, "Recording %s (delay %.2fs)", name, delay)
	if key := prefs.StopKey; !key.IsZero() {
		fmt.Fprintf(stdout, "; press %s to stop", key.Label())
	}
	fmt.Fprintln(stdout, "; Ctrl-C to stop")

	log, sessionErr := awaitRecording(runCtx, eng, durationFlag(fs, "duration"), ctx)

	if err := store.Save(name, log); err != nil {
		entry.Finish(timeNow(), err)
		ctx.appendHistory(entry)
		return err
	}
	entry.Events = len(log)
	entry.Finish(timeNow(), sessionErr)
	ctx.appendHistory(entry)

	ctx.Logger.Info("macro recorded", "name", name, "events", len(log), "session", entry.ID)
	fmt.Fprintf(stdout, "Saved %d events to %s (%.3fs)\n", len(log), name, log.Duration().Seconds())
	return sessionErr
}

// awaitRecording blocks until the recording ends and returns its log. A
// recording ends on the stop/toggle hotkey, on interrupt, when limit elapses
// or when the input source exits.
func awaitRecording(runCtx context.Context, eng *engine.Engine, limit time.Duration, ctx *AppContext) (events.Log, error) {
	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}

	var sessionErr error
wait:
	for {
		select {
		case n := <-eng.Notifications():
			switch n.Kind {
			case engine.RecordingStopped:
				return n.Log, nil
			case engine.Error:
				ctx.Logger.Warn("hotkey ignored", "action", n.Action.String(), "error", n.Err)
			}
		case <-eng.Done():
			sessionErr = eng.Err()
			break wait
		case <-runCtx.Done():
			break wait
		case <-timeout:
			break wait
		}
	}

	log, err := eng.StopRecording()
	if errors.Is(err, recorder.ErrNotRecording) {
		// A hotkey stop raced the exit path; its log is still queued.
		for {
			select {
			case n := <-eng.Notifications():
				if n.Kind == engine.RecordingStopped {
					return n.Log, sessionErr
				}
			default:
				return events.Log{}, sessionErr
			}
		}
	}
	if err != nil {
		return events.Log{}, err
	}
	return log, sessionErr
}

func newPlayCommand() command {
	return command{
		name:        "play",
		usage:       "<name>",
		description: "Replay a macro with its original timing",
		run:         runPlay,
	}
}

func runPlay(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if err := requireArgs(args, 1, "macrorec play <name>"); err != nil {
		return err
	}
	name := args[0]
	store, err := ctx.store()
	if err != nil {
		return err
	}
	log, err := store.Load(name)
	if err != nil {
		return err
	}

	synth, err := ctx.openSynthesizer()
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Options{Synth: synth, Logger: ctx.Logger})
	if err != nil {
		synth.Close()
		return err
	}
	defer eng.Close()

	runCtx, cancel := interruptContext()
	defer cancel()

	entry := history.NewEntry(history.KindPlay, name, timeNow())
	results, err := eng.Play(log)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Playing %s (%d events, %.3fs)\n", name, len(log), log.Duration().Seconds())

	var res playback.Result
	select {
	case res = <-results:
	case <-runCtx.Done():
		eng.Close()
		res = <-results
	}

	sessionErr := res.Err
	if errors.Is(sessionErr, context.Canceled) {
		sessionErr = history.Interrupted(sessionErr)
	}
	entry.Events = res.Played
	entry.Failed = res.Failed
	entry.Finish(timeNow(), sessionErr)
	ctx.appendHistory(entry)

	fmt.Fprintf(stdout, "Played %d events from %s", res.Played, name)
	if res.Failed > 0 {
		fmt.Fprintf(stdout, " (%d failed)", res.Failed)
	}
	if entry.State == history.StateInterrupted {
		fmt.Fprintln(stdout, "; interrupted")
		return nil
	}
	fmt.Fprintln(stdout)
	return sessionErr
}
