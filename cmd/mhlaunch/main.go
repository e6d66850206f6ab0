package main

import (
	"os"

	"github.com/makehuman/mhlaunch/cmd/mhlaunch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
