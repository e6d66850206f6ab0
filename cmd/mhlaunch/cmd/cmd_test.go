package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/makehuman/mhlaunch/internal/hostinfo"
	"github.com/makehuman/mhlaunch/internal/runtime/builtin"
	"gopkg.in/yaml.v3"
)

func testConfig() *config.Config {
	return &config.Config{
		Runtime:      "starlark",
		WorkDir:      config.WorkDirInherit,
		PauseOnError: config.PauseNever,
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

func TestOutputConfig(t *testing.T) {
	cfg := testConfig()

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := outputConfig(&buf, cfg, "yaml"); err != nil {
			t.Fatal(err)
		}
		var decoded config.Config
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid yaml: %v", err)
		}
		if decoded.Runtime != "starlark" || decoded.WorkDir != config.WorkDirInherit {
			t.Errorf("decoded %+v", decoded)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := outputConfig(&buf, cfg, "json"); err != nil {
			t.Fatal(err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if decoded["pause_on_error"] != config.PauseNever {
			t.Errorf("pause_on_error = %v", decoded["pause_on_error"])
		}
	})

	t.Run("env", func(t *testing.T) {
		var buf bytes.Buffer
		if err := outputConfig(&buf, cfg, "env"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `export MHLAUNCH_RUNTIME="starlark"`) {
			t.Errorf("env output:\n%s", buf.String())
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := outputConfig(&bytes.Buffer{}, cfg, "toml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestProbeRuntimes(t *testing.T) {
	cfg := testConfig()
	cfg.Interpreter = filepath.Join(t.TempDir(), "no-such-python")

	statuses := probeRuntimes(context.Background(), builtin.Registry(), cfg)

	byName := make(map[string]RuntimeStatus)
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if len(byName) != 3 {
		t.Fatalf("expected 3 runtimes, got %v", statuses)
	}
	if !byName["starlark"].Available || !byName["starlark"].Selected {
		t.Errorf("starlark status %+v", byName["starlark"])
	}
	if !byName["lua"].Available || byName["lua"].Selected {
		t.Errorf("lua status %+v", byName["lua"])
	}
	if byName["process"].Available || byName["process"].Error == "" {
		t.Errorf("process runtime with missing interpreter reported %+v", byName["process"])
	}

	var buf bytes.Buffer
	if err := outputRuntimes(&buf, statuses); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "makehuman.lua") {
		t.Errorf("table missing default script:\n%s", buf.String())
	}
}

func TestBuildDoctorReport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "makehuman.star"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		policy  string
		workDir string
		found   bool
	}{
		{"script in working directory", config.WorkDirInherit, dir, true},
		{"script next to executable", config.WorkDirExecutable, t.TempDir(), true},
		{"script missing", config.WorkDirInherit, t.TempDir(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &hostinfo.Info{
				OS:         "linux",
				Executable: filepath.Join(dir, "makehuman"),
				WorkDir:    tt.workDir,
			}
			cfg := testConfig()
			cfg.WorkDir = tt.policy

			rep := buildDoctorReport(host, cfg, "makehuman.star")
			if rep.ScriptFound != tt.found {
				t.Errorf("ScriptFound = %v (path %s)", rep.ScriptFound, rep.ScriptPath)
			}

			var buf bytes.Buffer
			if err := outputDoctor(&buf, rep); err != nil {
				t.Fatal(err)
			}
			if tt.found == strings.Contains(buf.String(), "Warning:") {
				t.Errorf("unexpected warning state in:\n%s", buf.String())
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, 0},
		{errors.New("bad flag"), 1},
		{&exitError{code: 1}, 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.expected {
			t.Errorf("ExitCode(%v) = %d, expected %d", tt.err, got, tt.expected)
		}
	}
}
