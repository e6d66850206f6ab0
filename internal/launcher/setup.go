package launcher

import (
	"fmt"

	"github.com/makehuman/mhlaunch/internal/config"
	"github.com/makehuman/mhlaunch/internal/console"
	"github.com/makehuman/mhlaunch/internal/logging"
	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
)

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	jsonFormat := cfg.LogFormat == "json"
	if cfg.LogFile != "" {
		return logging.NewFileLogger("launcher", cfg.LogFile, level, jsonFormat)
	}
	return logging.NewLogger(level, jsonFormat), nil
}

// FromConfig builds a launcher for the runtime cfg selects from reg.
func FromConfig(cfg *config.Config, reg *scriptrt.Registry, logger *logging.Logger) (*Launcher, error) {
	rt, err := reg.New(cfg.Runtime, scriptrt.Options{Interpreter: cfg.Interpreter})
	if err != nil {
		return nil, fmt.Errorf("failed to select runtime: %w", err)
	}

	l := New(rt, cfg.ScriptFor(reg.DefaultScript(cfg.Runtime)))
	l.WorkDirPolicy = cfg.WorkDir
	l.Gate = console.NewGate(cfg.PauseOnError)
	l.MetricsTextfile = cfg.MetricsTextfile
	l.ReportFile = cfg.ReportFile
	if logger != nil {
		l.Logger = logger
	}
	return l, nil
}
