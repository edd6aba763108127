// Package cli implements the termdbg command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/termdbg/internal/config"
	"github.com/vburojevic/termdbg/internal/output"
)

// Build information, set with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the root command
type CLI struct {
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format (ndjson or text)"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`
	Verbose bool   `short:"v" help:"Write debug logs to stderr"`

	Attach     AttachCmd     `cmd:"" help:"Interactive terminal with the debug overlay"`
	Watch      WatchCmd      `cmd:"" help:"Stream session events as NDJSON"`
	Replay     ReplayCmd     `cmd:"" help:"Run a recorded transcript through the debugger"`
	Eval       EvalCmd       `cmd:"" help:"Evaluate one expression at the debug prompt"`
	TUI        TUICmd        `cmd:"" name:"tui" help:"Source view with value tooltips and debug controls"`
	DAP        DAPCmd        `cmd:"" name:"dap" help:"Serve the Debug Adapter Protocol"`
	MCP        MCPCmd        `cmd:"" name:"mcp" help:"Serve debug tools over MCP (stdio)"`
	Watches    WatchesCmd    `cmd:"" help:"Inspect remembered expression values"`
	Schema     SchemaCmd     `cmd:"" help:"Print JSON Schema for NDJSON records"`
	Config     ConfigCmd     `cmd:"" help:"Show or generate configuration"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`
	Update     UpdateCmd     `cmd:"" help:"Show how to upgrade termdbg"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
}

// Globals carries global flags and output streams into every command
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
}

// NewGlobalsWithConfig merges parsed flags with the loaded configuration
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
}

// Debug prints a debug line to stderr when verbose
func (g *Globals) Debug(format string, args ...any) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// Info prints an informational line to stderr unless quiet
func (g *Globals) Info(format string, args ...any) {
	if !g.Quiet {
		fmt.Fprintf(g.Stderr, format+"\n", args...)
	}
}

// KongVars exposes configuration defaults to flag definitions
func KongVars(cfg *config.Config) kong.Vars {
	if cfg == nil {
		cfg = config.Default()
	}
	d := cfg.Defaults
	return kong.Vars{
		"config_format":        cfg.Format,
		"config_transport":     d.Transport,
		"config_baud":          strconv.Itoa(d.Baud),
		"config_prompts":       strings.Join(d.Prompts, ","),
		"config_debug_prompt":  d.DebugPrompt,
		"config_query_timeout": cfg.QueryTimeoutDuration().String(),
		"config_history":       strconv.Itoa(d.History),
		"config_source":        d.Source,
		"config_watches":       d.Watches,
	}
}

// VersionCmd shows version information
type VersionCmd struct{}

// VersionOutput is the NDJSON version record
type VersionOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
}

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(VersionOutput{
			Type:          "version",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
		})
	}
	fmt.Fprintf(globals.Stdout, "termdbg version %s (%s)\n", Version, Commit)
	return nil
}

// ConfigCmd groups configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is used"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample config file"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

type configOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	*config.Config
	File string `json:"file,omitempty"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(configOutput{
			Type:          "config",
			SchemaVersion: output.SchemaVersion,
			Config:        cfg,
			File:          config.ConfigFile(),
		})
	}

	w := globals.Stdout
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintf(w, "  format: %s\n", cfg.Format)
	fmt.Fprintf(w, "  quiet: %t\n", cfg.Quiet)
	fmt.Fprintf(w, "  verbose: %t\n", cfg.Verbose)
	fmt.Fprintln(w, "Defaults:")
	fmt.Fprintf(w, "  transport: %s\n", cfg.Defaults.Transport)
	fmt.Fprintf(w, "  baud: %d\n", cfg.Defaults.Baud)
	fmt.Fprintf(w, "  prompts: %s\n", strings.Join(cfg.Defaults.Prompts, ", "))
	fmt.Fprintf(w, "  debug_prompt: %s\n", cfg.Defaults.DebugPrompt)
	fmt.Fprintf(w, "  query_timeout: %s\n", cfg.QueryTimeoutDuration())
	fmt.Fprintf(w, "  history: %d\n", cfg.Defaults.History)
	if cfg.Defaults.Source != "" {
		fmt.Fprintf(w, "  source: %s\n", cfg.Defaults.Source)
	}
	if cfg.Defaults.Watches != "" {
		fmt.Fprintf(w, "  watches: %s\n", cfg.Defaults.Watches)
	}
	return nil
}

// ConfigPathCmd prints the config file in use
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]any{
			"type":          "config_path",
			"schemaVersion": output.SchemaVersion,
			"path":          path,
			"search_paths":  config.SearchPaths(),
		})
	}
	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found. Searched:")
		for _, p := range config.SearchPaths() {
			fmt.Fprintf(globals.Stdout, "  %s\n", p)
		}
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

// ConfigGenerateCmd prints a sample config file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	_, err := fmt.Fprint(globals.Stdout, config.Sample)
	return err
}
