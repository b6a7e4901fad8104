package cmd

import (
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/macrorec/internal/buildinfo"
)

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print the macrorec build and Go runtime",
		skipInit:    true,
		configure: func(fs *flag.FlagSet) {
			fs.Bool("short", false, "Print only the macrorec version")
		},
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			v := versionString()
			if boolFlag(fs, "short") {
				v = buildinfo.Version()
			}
			_, err := fmt.Fprintln(stdout, v)
			return err
		},
	}
}
