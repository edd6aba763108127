package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/session"
	"github.com/vburojevic/termdbg/internal/transport"
)

// SessionFlags are shared by every command that talks to a runtime
type SessionFlags struct {
	Target       string        `short:"t" default:"${config_transport}" help:"Connection target: tcp://host:port, host:port, /dev/ttyUSB0, serial:///dev/ttyACM0?baud=115200, exec://program?arg=x, ws://host/path. Defaults to the last target used"`
	Baud         int           `default:"${config_baud}" help:"Serial baud rate"`
	Prompts      []string      `default:"${config_prompts}" help:"Prompt strings printed by the runtime"`
	DebugPrompt  string        `default:"${config_debug_prompt}" help:"Prompt printed while the runtime is paused"`
	QueryTimeout time.Duration `default:"${config_query_timeout}" help:"How long a value query waits for its reply"`
	History      int           `default:"${config_history}" help:"Terminal lines kept for source line lookup"`
	Record       string        `help:"Write every byte received from the runtime to this transcript file"`
}

// sessionOptions converts the flags into session options
func (f *SessionFlags) sessionOptions(log *zap.Logger) session.Options {
	return session.Options{
		Prompts:      f.Prompts,
		DebugPrompt:  f.DebugPrompt,
		History:      f.History,
		QueryTimeout: f.QueryTimeout,
		Logger:       log,
	}
}

// connect opens the target and wraps it in a session. It does not start
// the session.
func (f *SessionFlags) connect(ctx context.Context, globals *Globals, log *zap.Logger, source string) (*session.Session, error) {
	target := f.Target
	if target == "" {
		target = lastTarget()
		if target != "" {
			globals.Debug("Using last target: %s", target)
		}
	}
	if target == "" {
		return nil, outputErrorCommon(globals, codeNoTarget, "no connection target given",
			"pass --target, set defaults.transport in the config file or TERMDBG_TRANSPORT")
	}

	globals.Debug("Connecting to %s", target)
	conn, err := transport.Open(ctx, target, transport.Options{Baud: f.Baud, Logger: log})
	if err != nil {
		return nil, outputErrorCommon(globals, codeConnectFailed, err.Error(), "check the target address and that nothing else holds the port")
	}
	if f.Record != "" {
		rec, err := newRecordingConn(conn, f.Record)
		if err != nil {
			conn.Close()
			return nil, outputErrorCommon(globals, codeConnectFailed, err.Error())
		}
		conn = rec
	}

	sess := session.New(conn, conn.Name(), f.sessionOptions(log))
	if err := rememberTarget(target, sess.ID(), source); err != nil {
		log.Debug("failed to remember target", zap.Error(err))
	}
	return sess, nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runSession starts sess in the background. The returned channel yields
// the result of Run.
func runSession(ctx context.Context, sess *session.Session) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx)
	}()
	return done
}
