package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/makehuman/mhlaunch/internal/hostinfo"
	"github.com/makehuman/mhlaunch/internal/launcher"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host and the launcher installation",
	Long: `Doctor reports host facts (CPU, memory, platform), the directory the
launcher would run from and whether the configured main script is present.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// DoctorReport is the doctor command output.
type DoctorReport struct {
	Host         *hostinfo.Info `json:"host"`
	Runtime      string         `json:"runtime"`
	Script       string         `json:"script"`
	ScriptPath   string         `json:"script_path"`
	ScriptFound  bool           `json:"script_found"`
	FixesWorkDir bool           `json:"fixes_workdir"`
	ConfigSource string         `json:"config_source,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rep := buildDoctorReport(hostinfo.Collect(), cfg, registry.DefaultScript(cfg.Runtime))
	return outputDoctor(cmd.OutOrStdout(), rep)
}

func buildDoctorReport(host *hostinfo.Info, cfg *config.Config, defaultScript string) *DoctorReport {
	rep := &DoctorReport{
		Host:         host,
		Runtime:      cfg.Runtime,
		Script:       cfg.ScriptFor(defaultScript),
		FixesWorkDir: launcher.ShouldFixWorkDir(cfg.WorkDir, host.OS),
		ConfigSource: cfg.Source,
	}

	// Relative scripts resolve against the directory the script will run in.
	base := host.WorkDir
	if rep.FixesWorkDir && host.Executable != "" {
		base = launcher.ExecutableDir(host.Executable)
	}
	rep.ScriptPath = rep.Script
	if !filepath.IsAbs(rep.ScriptPath) {
		rep.ScriptPath = filepath.Join(base, rep.ScriptPath)
	}
	if _, err := os.Stat(rep.ScriptPath); err == nil {
		rep.ScriptFound = true
	}
	return rep
}

func outputDoctor(w io.Writer, rep *DoctorReport) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	configSource := rep.ConfigSource
	if configSource == "" {
		configSource = "(defaults)"
	}

	table := tablewriter.NewWriter(w)
	table.Header("Check", "Value")
	table.Append("Platform", rep.Host.OS+"/"+rep.Host.Arch)
	table.Append("CPU", fmt.Sprintf("%s (%d threads)", rep.Host.CPUModel, rep.Host.CPUThreads))
	table.Append("Memory", fmt.Sprintf("%s total, %s available",
		hostinfo.FormatBytes(rep.Host.RAMTotalBytes), hostinfo.FormatBytes(rep.Host.RAMFreeBytes)))
	table.Append("Executable", rep.Host.Executable)
	table.Append("Working directory", rep.Host.WorkDir)
	table.Append("Moves to executable dir", boolToYesNo(rep.FixesWorkDir))
	table.Append("Config", configSource)
	table.Append("Runtime", rep.Runtime)
	table.Append("Main script", rep.ScriptPath)
	table.Append("Main script found", boolToYesNo(rep.ScriptFound))
	if err := table.Render(); err != nil {
		return err
	}

	if !rep.ScriptFound {
		fmt.Fprintf(w, "\nWarning: %s not found; the launcher will exit with %q\n",
			rep.ScriptPath, launcher.MsgScriptFailure)
	}
	return nil
}
