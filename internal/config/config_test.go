package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Setenv("MHLAUNCH_CONFIG", "")

	cfg, err := Load(New(t.TempDir()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Runtime != "process" {
		t.Errorf("Runtime = %q, expected process", cfg.Runtime)
	}
	if cfg.WorkDir != WorkDirAuto || cfg.PauseOnError != PauseAuto {
		t.Errorf("policies = %q/%q, expected auto/auto", cfg.WorkDir, cfg.PauseOnError)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "text" {
		t.Errorf("logging = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, expected none", cfg.Source)
	}
	if got := cfg.ScriptFor("makehuman.py"); got != "makehuman.py" {
		t.Errorf("ScriptFor = %q", got)
	}
}

func TestFileAndEnv(t *testing.T) {
	t.Setenv("MHLAUNCH_CONFIG", "")
	dir := t.TempDir()
	content := "runtime: lua\nscript: main.lua\nworkdir: executable\npause_on_error: never\n"
	if err := os.WriteFile(filepath.Join(dir, "mhlaunch.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MHLAUNCH_PAUSE_ON_ERROR", "always")

	cfg, err := Load(New(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Runtime != "lua" || cfg.Script != "main.lua" || cfg.WorkDir != WorkDirExecutable {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.PauseOnError != PauseAlways {
		t.Errorf("env override not applied: pause_on_error = %q", cfg.PauseOnError)
	}
	if cfg.Source != filepath.Join(dir, "mhlaunch.yaml") {
		t.Errorf("Source = %q", cfg.Source)
	}
	if got := cfg.ScriptFor("makehuman.lua"); got != "main.lua" {
		t.Errorf("ScriptFor = %q, expected main.lua", got)
	}
}

func TestExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("runtime: starlark\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MHLAUNCH_CONFIG", path)

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runtime != "starlark" {
		t.Errorf("Runtime = %q, expected starlark", cfg.Runtime)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{Runtime: "lua", WorkDir: "auto", PauseOnError: "never", LogFormat: "json"}, true},
		{"normalizes case", Config{Runtime: " Lua ", WorkDir: "INHERIT", PauseOnError: "Always", LogFormat: "TEXT"}, true},
		{"empty runtime", Config{WorkDir: "auto", PauseOnError: "auto", LogFormat: "text"}, false},
		{"bad workdir", Config{Runtime: "lua", WorkDir: "home", PauseOnError: "auto", LogFormat: "text"}, false},
		{"bad pause", Config{Runtime: "lua", WorkDir: "auto", PauseOnError: "sometimes", LogFormat: "text"}, false},
		{"bad format", Config{Runtime: "lua", WorkDir: "auto", PauseOnError: "auto", LogFormat: "xml"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, expected ok=%v", err, tt.ok)
			}
		})
	}
}
