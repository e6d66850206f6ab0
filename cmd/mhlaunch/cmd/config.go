package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration inspection",
	Long:  `Commands for inspecting the launcher configuration resolved from mhlaunch.yaml and MHLAUNCH_* variables.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Prints the configuration the makehuman binary would use, after defaults,
the config file and environment overrides have been applied.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml",
		"Output format: yaml, json, env")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return outputConfig(cmd.OutOrStdout(), cfg, configOutput)
}

func outputConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)

	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()

	case "env":
		source := cfg.Source
		if source == "" {
			source = "defaults"
		}
		fmt.Fprintf(w, "# Launcher configuration (%s)\n", source)
		for _, kv := range [][2]string{
			{"runtime", cfg.Runtime},
			{"script", cfg.Script},
			{"interpreter", cfg.Interpreter},
			{"workdir", cfg.WorkDir},
			{"pause_on_error", cfg.PauseOnError},
			{"log_level", cfg.LogLevel},
			{"log_format", cfg.LogFormat},
			{"log_file", cfg.LogFile},
			{"metrics_textfile", cfg.MetricsTextfile},
			{"report_file", cfg.ReportFile},
		} {
			fmt.Fprintf(w, "export %s_%s=%q\n", config.EnvPrefix, strings.ToUpper(kv[0]), kv[1])
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q (yaml|json|env)", format)
	}
}
