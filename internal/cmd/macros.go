package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/offlinefirst/macrorec/pkg/compact"
	"github.com/offlinefirst/macrorec/pkg/macro"
)

func newListCommand() command {
	return command{
		name:        "list",
		description: "List saved macros",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("watch", false, "Keep running and report macros created, changed or removed")
		},
		run: runList,
	}
}

func runList(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	store, err := ctx.store()
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(stdout, "No macros in %s\n", store.Dir())
	}
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	if !boolFlag(fs, "watch") {
		return nil
	}

	runCtx, cancel := interruptContext()
	defer cancel()
	fmt.Fprintf(stdout, "Watching %s (Ctrl-C to stop)\n", store.Dir())
	err = store.Watch(runCtx, func(c macro.Change) {
		fmt.Fprintf(stdout, "%s %s\n", c.Op, c.Name)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newNewCommand() command {
	return command{
		name:        "new",
		usage:       "[name]",
		description: "Create an empty macro, named macroN unless a name is given",
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: macrorec new [name]")
			}
			store, err := ctx.store()
			if err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
				err = store.CreateNamed(name)
			} else {
				name, err = store.Create()
			}
			if err != nil {
				return err
			}
			ctx.Logger.Info("macro created", "name", name)
			fmt.Fprintf(stdout, "Created %s\n", name)
			return nil
		},
	}
}

func newRenameCommand() command {
	return command{
		name:        "rename",
		usage:       "<old> <new>",
		description: "Rename a macro",
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if err := requireArgs(args, 2, "macrorec rename <old> <new>"); err != nil {
				return err
			}
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if err := store.Rename(args[0], args[1]); err != nil {
				return err
			}
			ctx.Logger.Info("macro renamed", "from", args[0], "to", args[1])
			fmt.Fprintf(stdout, "Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newDeleteCommand() command {
	return command{
		name:        "delete",
		usage:       "<name>",
		description: "Delete a macro",
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if err := requireArgs(args, 1, "macrorec delete <name>"); err != nil {
				return err
			}
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			ctx.Logger.Info("macro deleted", "name", args[0])
			fmt.Fprintf(stdout, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newShowCommand() command {
	return command{
		name:        "show",
		usage:       "<name>",
		description: "Show a macro as a compact action table",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("summary", false, "Print only per-action counts")
		},
		run: runShow,
	}
}

func runShow(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if err := requireArgs(args, 1, "macrorec show <name>"); err != nil {
		return err
	}
	store, err := ctx.store()
	if err != nil {
		return err
	}
	log, err := store.Load(args[0])
	if err != nil {
		if !errors.Is(err, macro.ErrMalformed) {
			return err
		}
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	actions := compact.Compact(log)
	fmt.Fprintf(stdout, "%s: %d events, %d actions, %.3fs\n", args[0], len(log), len(actions), log.Duration().Seconds())
	if len(actions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	if boolFlag(fs, "summary") {
		fmt.Fprintln(tw, "Action\tCount")
		for _, lc := range compact.Summarize(actions) {
			fmt.Fprintf(tw, "%s\t%d\n", lc.Label, lc.Count)
		}
		return tw.Flush()
	}
	fmt.Fprintln(tw, "#\tAction\tValue\tDuration")
	for i, a := range actions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, a.Label, a.Detail, a.DurationString())
	}
	return tw.Flush()
}
