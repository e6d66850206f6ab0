package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeConfig(t *testing.T, script string, extra ...string) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "mhlaunch.yaml")
	content := "runtime: starlark\n" +
		"script: " + script + "\n" +
		"workdir: inherit\n" +
		"pause_on_error: never\n"
	for _, line := range extra {
		content += line + "\n"
	}
	if err := os.WriteFile(cfg, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MHLAUNCH_CONFIG", cfg)
}

func TestExecutePassesFlagsThrough(t *testing.T) {
	script := filepath.Join(t.TempDir(), "makehuman.star")
	body := `
expected = ["makehuman", "--help", "-v", "model.mhm"]
if sys.argv != expected:
    fail("argv = %s" % sys.argv)
`
	if err := os.WriteFile(script, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, script)

	if code := execute([]string{"makehuman", "--help", "-v", "model.mhm"}); code != 0 {
		t.Errorf("exit code = %d, expected 0", code)
	}
}

func TestExecutePassesReservedWords(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{"completion request", []string{"makehuman", "__complete", "x"}},
		{"completion without descriptions", []string{"makehuman", "__completeNoDesc"}},
		{"help subcommand", []string{"makehuman", "help"}},
		{"completion subcommand", []string{"makehuman", "completion", "bash"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			reportFile := filepath.Join(dir, "report.json")
			script := filepath.Join(dir, "makehuman.star")
			body := "if sys.argv != " + starlarkList(tt.argv) + ":\n" +
				"    fail(\"argv = %s\" % sys.argv)\n" +
				"sys.exit(7)\n"
			if err := os.WriteFile(script, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			writeConfig(t, script, "report_file: "+reportFile)

			if code := execute(tt.argv); code != 1 {
				t.Errorf("exit code = %d, expected 1", code)
			}

			// Status 7 is only reachable when the script saw the exact vector.
			data, err := os.ReadFile(reportFile)
			if err != nil {
				t.Fatalf("report not written: %v", err)
			}
			var res struct {
				ScriptStatus int `json:"script_status"`
			}
			if err := json.Unmarshal(data, &res); err != nil {
				t.Fatal(err)
			}
			if res.ScriptStatus != 7 {
				t.Errorf("script_status = %d, expected 7", res.ScriptStatus)
			}
		})
	}
}

func starlarkList(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += strconv.Quote(item)
	}
	return out + "]"
}

func TestExecuteScriptFailure(t *testing.T) {
	script := filepath.Join(t.TempDir(), "makehuman.star")
	if err := os.WriteFile(script, []byte("sys.exit(4)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, script)

	if code := execute([]string{"makehuman"}); code != 1 {
		t.Errorf("exit code = %d, expected 1", code)
	}
}

func TestExecuteBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "mhlaunch.yaml")
	if err := os.WriteFile(cfg, []byte("workdir: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MHLAUNCH_CONFIG", cfg)

	if code := execute([]string{"makehuman"}); code != 1 {
		t.Errorf("exit code = %d, expected 1", code)
	}
}
