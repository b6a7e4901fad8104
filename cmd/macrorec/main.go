package main

import (
	"os"

	"github.com/offlinefirst/macrorec/internal/buildinfo"
	"github.com/offlinefirst/macrorec/internal/cmd"
)

// version is stamped by release builds: -ldflags "-X main.version=v1.2.3".
var version string

func main() {
	buildinfo.SetVersion(version)
	root := cmd.NewRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
