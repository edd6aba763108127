package cli

import (
	"github.com/vburojevic/termdbg/internal/mcpserver"
)

// MCPCmd serves debug tools to MCP clients over stdio
type MCPCmd struct {
	SessionFlags
}

// Run executes the mcp command
func (c *MCPCmd) Run(globals *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger(globals)
	defer log.Sync()

	sess, err := c.connect(ctx, globals, log, "")
	if err != nil {
		return err
	}
	done := runSession(ctx, sess)
	defer func() {
		cancel()
		<-done
	}()

	return mcpserver.NewServer(sess, Version, log.Named("mcp")).Serve(ctx, globals.Stdin, globals.Stdout)
}
