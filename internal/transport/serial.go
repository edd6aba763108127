//go:build !windows

package transport

import (
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// serialConn is a tty device in raw mode.
type serialConn struct {
	*os.File
	state *term.State
	name  string
}

func (c *serialConn) Name() string { return c.name }

func (c *serialConn) Close() error {
	if c.state != nil {
		_ = term.Restore(int(c.Fd()), c.state)
	}
	return c.File.Close()
}

func openSerial(t Target, opts Options) (Conn, error) {
	f, err := os.OpenFile(t.Addr, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial device: %w", err)
	}
	fd := int(f.Fd())

	var state *term.State
	if term.IsTerminal(fd) {
		state, err = term.MakeRaw(fd)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("raw mode on %s: %w", t.Addr, err)
		}
		if err := setBaud(fd, t.Baud); err != nil {
			_ = term.Restore(fd, state)
			_ = f.Close()
			return nil, err
		}
	} else {
		opts.Logger.Debug("serial target is not a tty, using it as a plain file", zap.String("path", t.Addr))
	}
	return &serialConn{File: f, state: state, name: fmt.Sprintf("%s@%d", t.String(), t.Baud)}, nil
}
