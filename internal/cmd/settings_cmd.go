package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/offlinefirst/macrorec/pkg/engine"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/keys"
	"github.com/offlinefirst/macrorec/pkg/settings"
)

var (
	errUnresolvedKey      = errors.New("captured key cannot be bound")
	errSettingsUnreadable = errors.New("settings file is unreadable")
)

// refuseOverwrite keeps a settings file that failed to load from being
// replaced by defaults plus one change.
func refuseOverwrite(path string, loadErr error) error {
	return fmt.Errorf("%w (%v): fix %s or pass --clear all to reset it", errSettingsUnreadable, loadErr, path)
}

func newSettingsCommand() command {
	return command{
		name:        "settings",
		description: "Show or update hotkeys and the recording delay",
		configure: func(fs *flag.FlagSet) {
			fs.String("start-key", "", "Key that starts recording (e.g. Key.f9, a)")
			fs.String("stop-key", "", "Key that stops recording; same as start-key for a toggle")
			fs.String("play-key", "", "Key that plays the selected macro")
			fs.String("delay", "", "Seconds ignored after recording starts")
			fs.String("clear", "", "Unbind a hotkey: start, stop, play or all")
		},
		run: runSettings,
	}
}

func runSettings(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: macrorec settings [flags]")
	}
	path := ctx.Config.Paths.SettingsFile
	current, loadErr := settings.Load(path)
	if loadErr != nil {
		fmt.Fprintf(stderr, "warning: %v; showing defaults\n", loadErr)
	}
	updated := current
	resetAll := false

	if flagWasSet(fs, "clear") {
		resetAll = strings.EqualFold(strings.TrimSpace(stringFlag(fs, "clear")), "all")
		if err := clearBinding(&updated, stringFlag(fs, "clear")); err != nil {
			return err
		}
	}
	for _, slot := range []struct {
		flag string
		key  *keys.Key
	}{
		{"start-key", &updated.StartKey},
		{"stop-key", &updated.StopKey},
		{"play-key", &updated.PlayKey},
	} {
		if !flagWasSet(fs, slot.flag) {
			continue
		}
		k, err := keys.Parse(stringFlag(fs, slot.flag))
		if err != nil {
			return fmt.Errorf("--%s: %w", slot.flag, err)
		}
		*slot.key = k
	}
	if flagWasSet(fs, "delay") {
		v, err := strconv.ParseFloat(stringFlag(fs, "delay"), 64)
		if err != nil {
			return fmt.Errorf("--delay: %w", err)
		}
		updated.RecordingDelay = v
	}

	if updated != current || (loadErr != nil && resetAll) {
		if loadErr != nil && !resetAll {
			return refuseOverwrite(path, loadErr)
		}
		if err := settings.Save(path, updated); err != nil {
			return err
		}
		ctx.Logger.Info("settings saved", "path", path)
	}
	printSettings(stdout, path, updated)
	return nil
}

func clearBinding(s *settings.Settings, which string) error {
	switch strings.ToLower(strings.TrimSpace(which)) {
	case "start":
		s.StartKey = keys.Key{}
	case "stop":
		s.StopKey = keys.Key{}
	case "play":
		s.PlayKey = keys.Key{}
	case "all":
		s.StartKey, s.StopKey, s.PlayKey = keys.Key{}, keys.Key{}, keys.Key{}
	default:
		return fmt.Errorf("--clear: expected start, stop, play or all, got %q", which)
	}
	return nil
}

func printSettings(w io.Writer, path string, s settings.Settings) {
	label := func(k keys.Key) string {
		if k.IsZero() {
			return "(unbound)"
		}
		return k.Encode()
	}
	fmt.Fprintf(w, "Settings (%s)\n", path)
	fmt.Fprintf(w, "  start key:       %s\n", label(s.StartKey))
	fmt.Fprintf(w, "  stop key:        %s\n", label(s.StopKey))
	fmt.Fprintf(w, "  play key:        %s\n", label(s.PlayKey))
	fmt.Fprintf(w, "  recording delay: %gs\n", s.RecordingDelay)
	if !s.StartKey.IsZero() && s.StartKey == s.StopKey {
		fmt.Fprintln(w, "  start and stop share a key: it toggles recording")
	}
}

func newBindCommand() command {
	return command{
		name:        "bind",
		usage:       "<start|stop|play>",
		description: "Press a key to bind it to a hotkey action",
		configure: func(fs *flag.FlagSet) {
			fs.Duration("timeout", 30*time.Second, "Give up if no key is pressed in time")
		},
		run: runBind,
	}
}

func runBind(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if err := requireArgs(args, 1, "macrorec bind <start|stop|play>"); err != nil {
		return err
	}
	which := strings.ToLower(args[0])
	if which != "start" && which != "stop" && which != "play" {
		return fmt.Errorf("unknown hotkey %q: expected start, stop or play", args[0])
	}
	path := ctx.Config.Paths.SettingsFile
	prefs, err := settings.Load(path)
	if err != nil {
		return refuseOverwrite(path, err)
	}

	source, err := ctx.openSource()
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Options{Source: source, Logger: ctx.Logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	runCtx, cancel := interruptContext()
	defer cancel()
	if timeout := durationFlag(fs, "timeout"); timeout > 0 {
		var stop context.CancelFunc
		runCtx, stop = context.WithTimeout(runCtx, timeout)
		defer stop()
	}

	if err := eng.Start(runCtx); err != nil {
		if errors.Is(err, input.ErrHookUnavailable) {
			return ctx.hookFailure(err)
		}
		return err
	}
	fmt.Fprintf(stdout, "Press the key to use for %s...\n", which)

	key, err := eng.CaptureNextKeyPress(runCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no key pressed within %s", durationFlag(fs, "timeout"))
		}
		return err
	}
	if !key.IsResolved() {
		return fmt.Errorf("%w: %s", errUnresolvedKey, key)
	}

	switch which {
	case "start":
		prefs.StartKey = key
	case "stop":
		prefs.StopKey = key
	case "play":
		prefs.PlayKey = key
	}
	if err := settings.Save(path, prefs); err != nil {
		return err
	}
	ctx.Logger.Info("hotkey bound", "action", which, "key", key.String())
	fmt.Fprintf(stdout, "Bound %s to %s\n", which, key.Encode())
	return nil
}
