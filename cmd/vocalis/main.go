/*
Package main is the entry point for the vocalis CLI and API server.

Usage:

	vocalis [command]

Available Commands:

	serve       Run the HTTP API
	synth       Render a tone that follows the pitch of a recording
	analyze     Describe the energy, tempo, pitch and sound class of a recording
	recommend   Suggest a task and music for a mood and activity
	predict     Run a model on named inputs
	models      List model artifacts and their input schemas
	history     Show recent recommendations
*/
package main

import (
	"fmt"
	"os"

	"github.com/ewilliams-labs/vocalis/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := cli.NewRootCmd(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
