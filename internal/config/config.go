// Package config resolves launcher settings from an optional mhlaunch.yaml
// next to the executable and MHLAUNCH_* environment variables. The launcher
// never parses flags of its own: every command-line argument belongs to the
// script.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MHLAUNCH"

// FileName is the config file searched for next to the executable.
const FileName = "mhlaunch"

// Working-directory policies.
const (
	WorkDirAuto       = "auto"
	WorkDirExecutable = "executable"
	WorkDirInherit    = "inherit"
)

// Pause-on-error policies.
const (
	PauseAuto   = "auto"
	PauseAlways = "always"
	PauseNever  = "never"
)

// Config is the resolved launcher configuration.
type Config struct {
	Runtime         string `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
	Script          string `mapstructure:"script" yaml:"script" json:"script"`
	Interpreter     string `mapstructure:"interpreter" yaml:"interpreter" json:"interpreter"`
	WorkDir         string `mapstructure:"workdir" yaml:"workdir" json:"workdir"`
	PauseOnError    string `mapstructure:"pause_on_error" yaml:"pause_on_error" json:"pause_on_error"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	LogFile         string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile" json:"metrics_textfile"`
	ReportFile      string `mapstructure:"report_file" yaml:"report_file" json:"report_file"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-" yaml:"source,omitempty" json:"source,omitempty"`
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("runtime", "process")
	v.SetDefault("script", "")
	v.SetDefault("interpreter", "")
	v.SetDefault("workdir", WorkDirAuto)
	v.SetDefault("pause_on_error", PauseAuto)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("report_file", "")
}

// New returns a viper instance wired for launcher configuration. searchDirs
// are consulted in order for mhlaunch.{yaml,yml,json,toml}; MHLAUNCH_CONFIG
// names an explicit file instead.
func New(searchDirs ...string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
		return v
	}

	v.SetConfigName(FileName)
	for _, dir := range searchDirs {
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}
	return v
}

// Load reads configuration into a Config. A missing config file is not an
// error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration searching the executable's directory.
func LoadDefault() (*Config, error) {
	dir := ""
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return Load(New(dir))
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	c.Runtime = strings.ToLower(strings.TrimSpace(c.Runtime))
	c.WorkDir = strings.ToLower(strings.TrimSpace(c.WorkDir))
	c.PauseOnError = strings.ToLower(strings.TrimSpace(c.PauseOnError))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if c.Runtime == "" {
		return fmt.Errorf("runtime must not be empty")
	}

	switch c.WorkDir {
	case WorkDirAuto, WorkDirExecutable, WorkDirInherit:
	default:
		return fmt.Errorf("invalid workdir policy %q (auto|executable|inherit)", c.WorkDir)
	}

	switch c.PauseOnError {
	case PauseAuto, PauseAlways, PauseNever:
	default:
		return fmt.Errorf("invalid pause_on_error policy %q (auto|always|never)", c.PauseOnError)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (text|json)", c.LogFormat)
	}

	return nil
}

// ScriptFor returns the configured script, or fallback when none is set.
func (c *Config) ScriptFor(fallback string) string {
	if c.Script != "" {
		return c.Script
	}
	return fallback
}
