// Package mcpserver exposes a live debug session to MCP clients.
//
// Tools:
//   - debug_status: mode, marked line, pending query and statistics
//   - debug_control: continue, quit, step, next or finish
//   - debug_evaluate: print the value of an identifier
//   - debug_send: write a raw command line to the runtime
//   - debug_wait: block until the runtime reaches the debug prompt
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/session"
)

// DefaultWaitTimeout bounds debug_wait when the caller gives no timeout
const DefaultWaitTimeout = 30 * time.Second

// Debugger is the part of a session the tools drive.
type Debugger interface {
	Status(ctx context.Context) (session.Status, error)
	Activate(ctx context.Context, name string) error
	Evaluate(ctx context.Context, expr string) (string, error)
	Send(ctx context.Context, line string) error
	WaitMode(ctx context.Context, mode domain.Mode) error
}

// Server wraps the MCP server around one session
type Server struct {
	mcpServer *server.MCPServer
	sess      Debugger
	log       *zap.Logger
}

// NewServer creates a server with all tools registered
func NewServer(sess Debugger, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"termdbg",
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
			server.WithInstructions("Drives a line-stepping debugger over a terminal connection. Call debug_wait until the runtime is paused, then debug_status, debug_evaluate and debug_control."),
		),
		sess: sess,
		log:  log,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// Serve answers requests on in/out until ctx is done or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("debug_status",
		mcp.WithDescription("Current debug state: mode (normal or debugging), the zero-based marked source line, the expression of a pending value query, the available controls and session statistics."),
	), s.handleStatus)

	names := lo.Map(debugger.Controls, func(c debugger.Control, _ int) string { return c.Command })
	s.mcpServer.AddTool(mcp.NewTool("debug_control",
		mcp.WithDescription("Run a debug control. Only available while the runtime is at the debug prompt."),
		mcp.WithString("control",
			mcp.Required(),
			mcp.Description("Control to run"),
			mcp.Enum(names...),
		),
	), s.handleControl)

	s.mcpServer.AddTool(mcp.NewTool("debug_evaluate",
		mcp.WithDescription("Print the value of an identifier with the runtime's `p` command and wait for the reply. Fails when not paused, when another query is pending, or when the runtime reports an error."),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Identifier to evaluate, e.g. counter"),
		),
	), s.handleEvaluate)

	s.mcpServer.AddTool(mcp.NewTool("debug_send",
		mcp.WithDescription("Write a raw command line to the runtime. Output arrives in the event stream, not in the result."),
		mcp.WithString("line",
			mcp.Required(),
			mcp.Description("Command line without trailing newline"),
		),
	), s.handleSend)

	s.mcpServer.AddTool(mcp.NewTool("debug_wait",
		mcp.WithDescription("Block until the runtime is at the debug prompt, then return the status."),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Give up after this many seconds (default 30)"),
		),
	), s.handleWait)
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.sess.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (s *Server) handleControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("control")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.Activate(ctx, name); err != nil {
		return mcp.NewToolResultError(explain(err)), nil
	}
	s.log.Debug("control activated", zap.String("control", name))
	ctl, _ := debugger.LookupControl(name)
	return jsonResult(map[string]any{
		"control": ctl.ID,
		"command": ctl.Command,
	})
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := s.sess.Evaluate(ctx, expr)
	if err != nil {
		return mcp.NewToolResultError(explain(err)), nil
	}
	return jsonResult(map[string]any{
		"expression": expr,
		"value":      value,
		"tooltip":    domain.Tooltip(expr, value),
	})
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := request.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.Send(ctx, line); err != nil {
		return mcp.NewToolResultError(explain(err)), nil
	}
	return jsonResult(map[string]any{"sent": line})
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := DefaultWaitTimeout
	if secs := request.GetFloat("timeout_seconds", 0); secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.sess.WaitMode(waitCtx, domain.ModeDebugging); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return mcp.NewToolResultError(fmt.Sprintf("runtime did not reach the debug prompt within %s", timeout)), nil
		}
		return mcp.NewToolResultError(explain(err)), nil
	}
	return s.handleStatus(ctx, request)
}

// explain adds a next step to the errors an agent can act on
func explain(err error) string {
	switch {
	case errors.Is(err, debugger.ErrNotDebugging):
		return err.Error() + "; call debug_wait first"
	case errors.Is(err, debugger.ErrQueryBusy):
		return err.Error() + "; retry when the pending query finished"
	case errors.Is(err, debugger.ErrUnknownControl):
		return err.Error() + "; see debug_status for controls"
	case errors.Is(err, session.ErrClosed):
		return err.Error() + "; the runtime disconnected"
	}
	return err.Error()
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
