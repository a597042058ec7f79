// Package main is the entry point for the meshup binary.
package main

import (
	"os"

	"github.com/oxidrift/meshup/cmd/meshup/cmd"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
