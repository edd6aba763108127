// Package config loads termdbg settings from files and the environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TERMDBG"

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format" json:"format"`
	Quiet   bool   `mapstructure:"quiet" json:"quiet"`
	Verbose bool   `mapstructure:"verbose" json:"verbose"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults" json:"defaults"`
}

// DefaultsConfig holds default values for session commands
type DefaultsConfig struct {
	// Transport target, e.g. tcp://board.local:23 or /dev/ttyUSB0
	Transport string `mapstructure:"transport" json:"transport"`
	Baud      int    `mapstructure:"baud" json:"baud"`

	// Prompt recognition
	Prompts     []string `mapstructure:"prompts" json:"prompts"`
	DebugPrompt string   `mapstructure:"debug_prompt" json:"debug_prompt"`

	QueryTimeout string `mapstructure:"query_timeout" json:"query_timeout"`
	History      int    `mapstructure:"history" json:"history"`

	// Source file shown next to the session
	Source string `mapstructure:"source" json:"source,omitempty"`
	// Watch store location
	Watches string `mapstructure:"watches" json:"watches,omitempty"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "ndjson",
		Defaults: DefaultsConfig{
			Baud:         9600,
			Prompts:      []string{">", "debug>"},
			DebugPrompt:  "debug>",
			QueryTimeout: "3s",
			History:      16,
		},
	}
}

// QueryTimeoutDuration parses the configured query timeout, falling back to
// three seconds when it is unset or invalid.
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Defaults.QueryTimeout))
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// Load loads configuration from the first config file found and the
// environment
func Load() (*Config, error) {
	if path := findConfigFile(); path != "" {
		return load(path)
	}
	return load("")
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		// .termdbgrc has no extension
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("format", EnvPrefix+"_FORMAT")
	_ = v.BindEnv("quiet", EnvPrefix+"_QUIET")
	_ = v.BindEnv("verbose", EnvPrefix+"_VERBOSE")
	_ = v.BindEnv("defaults.transport", EnvPrefix+"_TRANSPORT")
	_ = v.BindEnv("defaults.baud", EnvPrefix+"_BAUD")
	_ = v.BindEnv("defaults.debug_prompt", EnvPrefix+"_DEBUG_PROMPT")
	_ = v.BindEnv("defaults.query_timeout", EnvPrefix+"_QUERY_TIMEOUT")
	_ = v.BindEnv("defaults.source", EnvPrefix+"_SOURCE")

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("defaults.baud", cfg.Defaults.Baud)
	v.SetDefault("defaults.prompts", cfg.Defaults.Prompts)
	v.SetDefault("defaults.debug_prompt", cfg.Defaults.DebugPrompt)
	v.SetDefault("defaults.query_timeout", cfg.Defaults.QueryTimeout)
	v.SetDefault("defaults.history", cfg.Defaults.History)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides handles flag-like values viper does not coerce the way
// the CLI does (quiet accepts "1").
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvPrefix + "_QUIET"); v != "" {
		cfg.Quiet = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "_TRANSPORT"); v != "" {
		cfg.Defaults.Transport = v
	}
	if v := os.Getenv(EnvPrefix + "_PROMPTS"); v != "" {
		cfg.Defaults.Prompts = strings.Split(v, ",")
	}
}

// ConfigFile returns the path of the config file Load would use, or ""
func ConfigFile() string {
	return findConfigFile()
}

// SearchPaths lists the candidate config files in precedence order
func SearchPaths() []string {
	names := []string{".termdbg.yaml", ".termdbg.yml", "termdbg.yaml", ".termdbgrc"}
	var dirs []string
	dirs = append(dirs, ".")
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "termdbg"))
	}
	dirs = append(dirs, "/etc/termdbg")

	var paths []string
	for _, d := range dirs {
		for _, n := range names {
			paths = append(paths, filepath.Join(d, n))
		}
	}
	return paths
}

func findConfigFile() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// Sample is the commented config written by `config generate`
const Sample = `# termdbg configuration file
# Place at ./.termdbg.yaml, ~/.termdbg.yaml or ~/.config/termdbg/termdbg.yaml

# Output format: ndjson or text
format: ndjson
quiet: false
verbose: false

defaults:
  # tcp://host:port, serial:///dev/ttyUSB0?baud=115200, exec://node?arg=app.js, ws://host/path
  transport: ""
  baud: 9600
  prompts:
    - ">"
    - "debug>"
  debug_prompt: "debug>"
  query_timeout: 3s
  history: 16
  source: ""
`
