package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/makehuman/mhlaunch/internal/config"
	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List registered script runtimes",
	Long: `Lists every script runtime the launcher can embed, its default main script
and whether it initializes on this host.`,
	RunE: runRuntimes,
}

func init() {
	rootCmd.AddCommand(runtimesCmd)
}

// RuntimeStatus describes one registered runtime.
type RuntimeStatus struct {
	Name          string `json:"name"`
	DefaultScript string `json:"default_script"`
	Available     bool   `json:"available"`
	Selected      bool   `json:"selected"`
	Error         string `json:"error,omitempty"`
}

func runRuntimes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	statuses := probeRuntimes(ctx, registry, cfg)
	return outputRuntimes(cmd.OutOrStdout(), statuses)
}

// probeRuntimes initializes and immediately tears down each runtime.
func probeRuntimes(ctx context.Context, reg *scriptrt.Registry, cfg *config.Config) []RuntimeStatus {
	var statuses []RuntimeStatus
	for _, name := range reg.Names() {
		status := RuntimeStatus{
			Name:          name,
			DefaultScript: reg.DefaultScript(name),
			Selected:      name == cfg.Runtime,
		}

		rt, err := reg.New(name, scriptrt.Options{Interpreter: cfg.Interpreter})
		if err == nil {
			var handle *scriptrt.Handle
			handle, err = scriptrt.Acquire(ctx, rt, "mhlaunch")
			if err == nil {
				err = handle.Release()
			}
		}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func outputRuntimes(w io.Writer, statuses []RuntimeStatus) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Runtime", "Default Script", "Available", "Selected", "Error")
	for _, s := range statuses {
		selected := ""
		if s.Selected {
			selected = "*"
		}
		table.Append(s.Name, s.DefaultScript, boolToYesNo(s.Available), selected, s.Error)
	}
	return table.Render()
}

func boolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
