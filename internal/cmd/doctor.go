package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/offlinefirst/macrorec/pkg/config"
	"github.com/offlinefirst/macrorec/pkg/history"
	"github.com/offlinefirst/macrorec/pkg/input"
	"github.com/offlinefirst/macrorec/pkg/permissions"
	"github.com/offlinefirst/macrorec/pkg/settings"
)

// detectEnvironment is extracted for testability.
var detectEnvironment = input.DetectEnvironment

var (
	good = color.New(color.FgGreen).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
)

func flagged(ok bool) string {
	if ok {
		return good(strconv.FormatBool(ok))
	}
	return bad(strconv.FormatBool(ok))
}

func newDoctorCommand() command {
	return command{
		name:        "doctor",
		description: "Report input backend support, permissions and file locations",
		run:         runDoctor,
	}
}

func runDoctor(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	cfg := ctx.Config
	fmt.Fprintf(stdout, "macrorec %s\n", versionString())
	fmt.Fprintf(stdout, "config:       %s\n", cfg.Source)

	fmt.Fprintf(stdout, "backend:      %s\n", cfg.Input.Backend)
	if cfg.Input.Backend == config.BackendScripted {
		fmt.Fprintf(stdout, "  provider:   %s (demo script, in-memory synthesizer)\n", input.ProviderScripted)
	} else {
		env := detectEnvironment()
		fmt.Fprintf(stdout, "  provider:   %s\n", env.Provider)
		fmt.Fprintf(stdout, "  available:  %s\n", flagged(env.Available))
		fmt.Fprintf(stdout, "  suppresses: %s\n", flagged(env.Suppression))
		fmt.Fprintf(stdout, "  permission: %s\n", env.Permission)
		if env.Message != "" {
			fmt.Fprintf(stdout, "  status:     %s\n", env.Message)
		}
		if env.Guidance != "" {
			fmt.Fprintf(stdout, "  hint:       %s\n", warn(env.Guidance))
		}
		if access := permissions.ProbeAccessibility(nil); access.Status != permissions.StatusUnavailable {
			fmt.Fprintf(stdout, "  accessibility: %s\n", access.StatusString())
		}
	}

	store, err := ctx.store()
	if err != nil {
		fmt.Fprintf(stdout, "macros:       %s (%s)\n", cfg.Paths.MacrosDir, bad(err))
	} else if names, err := store.List(); err != nil {
		fmt.Fprintf(stdout, "macros:       %s (%s)\n", store.Dir(), bad(err))
	} else {
		fmt.Fprintf(stdout, "macros:       %s (%d)\n", store.Dir(), len(names))
	}

	if _, err := settings.Load(cfg.Paths.SettingsFile); err != nil {
		fmt.Fprintf(stdout, "settings:     %s (%s)\n", cfg.Paths.SettingsFile, warn("unreadable, defaults in use: ", err))
	} else if _, err := os.Stat(cfg.Paths.SettingsFile); err != nil {
		fmt.Fprintf(stdout, "settings:     %s (not created yet)\n", cfg.Paths.SettingsFile)
	} else {
		fmt.Fprintf(stdout, "settings:     %s\n", cfg.Paths.SettingsFile)
	}

	journal, err := ctx.journal()
	if err == nil {
		var entries []history.Entry
		if entries, err = journal.Load(); err == nil {
			fmt.Fprintf(stdout, "history:      %s (%d sessions)\n", journal.Path(), len(entries))
		}
	}
	if err != nil {
		fmt.Fprintf(stdout, "history:      %s (%s)\n", cfg.Paths.HistoryFile, bad(err))
	}
	return nil
}
