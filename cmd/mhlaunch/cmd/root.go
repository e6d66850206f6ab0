package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/makehuman/mhlaunch/internal/launcher"
	"github.com/makehuman/mhlaunch/internal/runtime/builtin"
	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string

	v        *viper.Viper
	registry *scriptrt.Registry
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mhlaunch",
	Short: "Operator CLI for the MakeHuman launcher",
	Long: `mhlaunch inspects and exercises the MakeHuman bootstrap launcher: it runs
the main script through any registered runtime, lists runtimes, shows the
resolved configuration and checks the host.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)
	registry = builtin.Registry()

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is mhlaunch.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		os.Setenv(config.EnvPrefix+"_CONFIG", cfgFile)
	}

	dir := ""
	if exe, err := os.Executable(); err == nil {
		dir = launcher.ExecutableDir(exe)
	}
	v = config.New(dir)
}

func configViper() *viper.Viper {
	if v == nil {
		initConfig()
	}
	return v
}

// loadConfig resolves configuration after flags bound to v have been applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// exitError carries a launch exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("launch exited with code %d", e.code)
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 1
	}
	return 0
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
