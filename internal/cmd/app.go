package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/offlinefirst/macrorec/pkg/config"
	"github.com/offlinefirst/macrorec/pkg/history"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/logging"
	"github.com/offlinefirst/macrorec/pkg/macro"
	"github.com/offlinefirst/macrorec/pkg/settings"
)

var (
	timeNow = time.Now
	// demoScript feeds the scripted backend.
	demoScript = input.DemoScript
	// interruptContext is cancelled on Ctrl-C.
	interruptContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), os.Interrupt)
	}
)

func (ctx *AppContext) store() (*macro.Store, error) {
	return macro.Open(ctx.Config.Paths.MacrosDir, logging.Component(ctx.Logger, "macro"))
}

func (ctx *AppContext) journal() (*history.Journal, error) {
	return history.Open(ctx.Config.Paths.HistoryFile, logging.Component(ctx.Logger, "history"))
}

// loadSettings never fails: problems are logged and defaults are used.
func (ctx *AppContext) loadSettings() settings.Settings {
	s, err := settings.Load(ctx.Config.Paths.SettingsFile)
	if err != nil {
		ctx.Logger.Warn("settings unreadable; using defaults", "path", ctx.Config.Paths.SettingsFile, "error", err)
	}
	return s
}

func (ctx *AppContext) backendOptions() input.BackendOptions {
	opts := input.BackendOptions{
		PollInterval: ctx.Config.Input.PollInterval(),
		Logger:       logging.Component(ctx.Logger, "input"),
	}
	if ctx.Config.Input.Backend == config.BackendScripted {
		opts.Script = demoScript()
	}
	return opts
}

func (ctx *AppContext) openSource() (input.Source, error) {
	return input.OpenSource(ctx.Config.Input.Backend, ctx.backendOptions())
}

func (ctx *AppContext) openSynthesizer() (input.Synthesizer, error) {
	return input.OpenSynthesizer(ctx.Config.Input.Backend, ctx.backendOptions())
}

// hookFailure decorates a hook installation error with platform guidance.
func (ctx *AppContext) hookFailure(err error) error {
	if ctx.Config.Input.Backend == config.BackendScripted {
		return err
	}
	env := detectEnvironment()
	if env.Guidance == "" {
		return err
	}
	return fmt.Errorf("%w\n  hint: %s", err, env.Guidance)
}

func (ctx *AppContext) appendHistory(entry history.Entry) {
	journal, err := ctx.journal()
	if err == nil {
		err = journal.Append(entry)
	}
	if err != nil {
		ctx.Logger.Warn("history not recorded", "error", err)
	}
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	value, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return false
	}
	return value
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func intFlag(fs *flag.FlagSet, name string) int {
	value, err := strconv.Atoi(stringFlag(fs, name))
	if err != nil {
		return 0
	}
	return value
}

func durationFlag(fs *flag.FlagSet, name string) time.Duration {
	value, err := time.ParseDuration(stringFlag(fs, name))
	if err != nil {
		return 0
	}
	return value
}

// flagWasSet reports whether name appeared on the command line.
func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
