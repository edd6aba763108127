//go:build !windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/kr/pty"
	"go.uber.org/zap"
)

// ptyConn runs a local runtime under a pseudo terminal.
type ptyConn struct {
	f    *os.File
	cmd  *exec.Cmd
	name string
	log  *zap.Logger
}

func (c *ptyConn) Name() string { return c.name }

func (c *ptyConn) Read(p []byte) (int, error) {
	n, err := c.f.Read(p)
	// Linux reports EIO on the master once the child side is gone.
	if errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (c *ptyConn) Write(p []byte) (int, error) {
	return c.f.Write(p)
}

func (c *ptyConn) Close() error {
	err := c.f.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
	}
	if werr := c.cmd.Wait(); werr != nil {
		c.log.Debug("exec target exited", zap.Error(werr))
	}
	return err
}

func startExec(ctx context.Context, t Target, opts Options) (Conn, error) {
	path, err := exec.LookPath(t.Addr)
	if err != nil {
		return nil, fmt.Errorf("exec target: %w", err)
	}
	cmd := exec.CommandContext(ctx, path, t.Args...)
	cmd.Env = append(os.Environ(), "TERM=dumb")

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start %s under pty: %w", t.Addr, err)
	}
	return &ptyConn{f: f, cmd: cmd, name: t.String(), log: opts.Logger}, nil
}
