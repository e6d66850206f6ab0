package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// WriteFile writes r to path as YAML (.yaml, .yml) or indented JSON.
func WriteFile(path string, r *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = WriteYAML(f, r)
	default:
		err = WriteJSON(f, r)
	}
	if err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return f.Close()
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText writes a human-readable summary followed by the event table.
func WriteText(w io.Writer, r *Result) error {
	fmt.Fprintf(w, "=== Launch Report ===\n")
	fmt.Fprintf(w, "Launch ID: %s\n", r.LaunchID)
	fmt.Fprintf(w, "Runtime: %s\n", r.Runtime)
	fmt.Fprintf(w, "Script: %s\n", r.Script)
	fmt.Fprintf(w, "Args: %q\n", r.Args)
	fmt.Fprintf(w, "Workdir: %s\n", r.WorkDir)
	fmt.Fprintf(w, "Duration: %.2fs\n", r.DurationSeconds)
	fmt.Fprintf(w, "Runtime Initialized: %v\n", r.Initialized)
	fmt.Fprintf(w, "Outcome: %s\n", r.Outcome)
	fmt.Fprintf(w, "Exit Code: %d\n", r.ExitCode)
	fmt.Fprintf(w, "Torn Down: %v\n", r.TornDown)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	fmt.Fprintf(w, "\nLifecycle Events:\n")

	table := tablewriter.NewWriter(w)
	table.Header("Time", "Phase", "Message")
	for _, e := range r.Events {
		table.Append(e.Timestamp.Format("15:04:05.000"), string(e.Phase), e.Message)
	}
	return table.Render()
}
