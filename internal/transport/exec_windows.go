package transport

import (
	"context"
	"errors"
)

func startExec(context.Context, Target, Options) (Conn, error) {
	return nil, errors.New("exec targets need a pty and are not supported on windows")
}
