package cmd

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

func newHistoryCommand() command {
	return command{
		name:        "history",
		description: "Show recent recording and playback sessions",
		configure: func(fs *flag.FlagSet) {
			fs.Int("n", 10, "Number of sessions to show (0 = all)")
		},
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			journal, err := ctx.journal()
			if err != nil {
				return err
			}
			entries, err := journal.Recent(intFlag(fs, "n"))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(stdout, "No sessions in %s\n", journal.Path())
				return nil
			}

			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Started\tKind\tMacro\tEvents\tDuration\tState")
			for _, e := range entries {
				count := fmt.Sprintf("%d", e.Events)
				if e.Failed > 0 {
					count = fmt.Sprintf("%d (%d failed)", e.Events, e.Failed)
				}
				state := e.State
				if e.Error != "" {
					state += ": " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.StartedAt.Local().Format(time.DateTime),
					e.Kind,
					e.Macro,
					count,
					e.Duration().Round(time.Millisecond),
					state,
				)
			}
			return tw.Flush()
		},
	}
}
