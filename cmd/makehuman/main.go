// Command makehuman is the bootstrap launcher. It starts the configured
// script runtime, hands it the command line untouched and runs the main
// application script.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/makehuman/mhlaunch/internal/launcher"
	"github.com/makehuman/mhlaunch/internal/runtime/builtin"
)

func main() {
	os.Exit(execute(os.Args))
}

// execute runs one launch. The command line is never parsed here: every
// argument, including ones a CLI framework would claim such as --help or
// __complete, belongs to the script.
func execute(argv []string) int {
	if len(argv) == 0 {
		argv = []string{"makehuman"}
	}
	return launch(context.Background(), argv)
}

func launch(ctx context.Context, argv []string) int {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintln(os.Stderr, launcher.MsgInitFailure)
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return launcher.ExitFailure
	}

	logger, err := launcher.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		logger = nil
	} else {
		defer logger.Close()
	}

	l, err := launcher.FromConfig(cfg, builtin.Registry(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, launcher.MsgInitFailure)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return launcher.ExitFailure
	}
	return l.Run(ctx, argv)
}
