package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/termdbg/internal/cli"
	"github.com/vburojevic/termdbg/internal/config"
)

const quickStart = `termdbg - debug overlay for line-stepping runtimes on a serial or network console

Quick start:
  termdbg attach -t /dev/ttyUSB0             Interactive console with debug events
  termdbg watch -t tcp://board.local:23      Stream events as NDJSON
  termdbg tui -t /dev/ttyACM0 -S app.js      Source view with value tooltips
  termdbg eval -t /dev/ttyUSB0 counter       Print one value at the debug prompt

For help:
  termdbg --help                             All commands and flags
  termdbg schema --list                      NDJSON record types
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win.
	ctx := kong.Parse(&c,
		kong.Name("termdbg"),
		kong.Description("termdbg: debug overlay for runtimes that print a debug> prompt\n\nAgents: use --format ndjson and 'termdbg schema' for the record formats"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		cli.KongVars(cfg),
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}
