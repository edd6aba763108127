package cli

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/dapserver"
	"github.com/vburojevic/termdbg/internal/session"
)

// DAPCmd serves the Debug Adapter Protocol for editors
type DAPCmd struct {
	SessionFlags

	Listen string `short:"l" help:"Listen on this address (e.g. 127.0.0.1:4711) instead of stdio"`
	Source string `short:"S" default:"${config_source}" help:"Source file the runtime executes, reported in stack frames"`
}

// Run executes the dap command
func (c *DAPCmd) Run(globals *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger(globals)
	defer log.Sync()

	sess, err := c.connect(ctx, globals, log, c.Source)
	if err != nil {
		return err
	}
	done := runSession(ctx, sess)
	defer func() {
		cancel()
		<-done
	}()

	opts := dapserver.Options{Source: c.Source, Logger: log.Named("dap")}
	if c.Listen == "" {
		// stdout carries the protocol, so nothing else may write there
		rw := struct {
			io.Reader
			io.Writer
		}{globals.Stdin, globals.Stdout}
		return dapserver.NewServer(sess, opts).Serve(ctx, rw)
	}
	return c.listen(ctx, globals, sess, opts, log)
}

// listen serves one client at a time until ctx is done or the session ends.
func (c *DAPCmd) listen(ctx context.Context, globals *Globals, sess *session.Session, opts dapserver.Options, log *zap.Logger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.Listen)
	if err != nil {
		return outputErrorCommon(globals, codeConnectFailed, err.Error(), "choose a free address with --listen")
	}
	defer ln.Close()
	go func() {
		select {
		case <-ctx.Done():
		case <-sess.Done():
		}
		ln.Close()
	}()
	globals.Info("DAP server listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		log.Debug("dap client connected", zap.String("remote", conn.RemoteAddr().String()))
		// Serve closes conn
		err = dapserver.NewServer(sess, opts).Serve(ctx, conn)
		if err != nil {
			log.Debug("dap client failed", zap.Error(err))
		}
	}
}
