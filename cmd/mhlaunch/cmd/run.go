package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/makehuman/mhlaunch/internal/launcher"
	"github.com/makehuman/mhlaunch/internal/report"
	"github.com/spf13/cobra"
)

var (
	runRuntime     string
	runScript      string
	runWorkDir     string
	runInterpreter string
	jsonOutput     bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- script args...]",
	Short: "Launch the main script and print the launch report",
	Long: `Run performs one launch exactly as the makehuman binary does, then prints
the launch report. Arguments after -- are handed to the script; the script
sees "mhlaunch" as its program name.

Example:
  mhlaunch run
  mhlaunch run --runtime starlark --script ./makehuman.star -- --debug
  mhlaunch run --runtime process --interpreter python3.11 --json -- model.mhm`,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runRuntime, "runtime", "", "Script runtime (see 'mhlaunch runtimes')")
	runCmd.Flags().StringVar(&runScript, "script", "", "Main script (default depends on runtime)")
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "Working directory policy (auto|executable|inherit)")
	runCmd.Flags().StringVar(&runInterpreter, "interpreter", "", "Interpreter executable for the process runtime")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output report as JSON")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	overrides := map[string]string{
		"runtime":     runRuntime,
		"script":      runScript,
		"workdir":     runWorkDir,
		"interpreter": runInterpreter,
	}
	for key, value := range overrides {
		if value != "" {
			configViper().Set(key, value)
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := launcher.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	l, err := launcher.FromConfig(cfg, registry, logger)
	if err != nil {
		return err
	}

	argv := append([]string{"mhlaunch"}, args...)
	res := l.Launch(context.Background(), argv)

	if jsonOutput || IsJSONOutput() {
		err = report.WriteJSON(os.Stdout, res)
	} else {
		err = report.WriteText(os.Stdout, res)
	}
	if err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if res.ExitCode != launcher.ExitSuccess {
		return &exitError{code: res.ExitCode}
	}
	return nil
}
