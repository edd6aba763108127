package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/coder/websocket"
)

// wsConn carries the console over text frames of a websocket relay.
type wsConn struct {
	net.Conn
	ws   *websocket.Conn
	name string
}

func (c *wsConn) Name() string { return c.name }

func (c *wsConn) Close() error {
	err := c.Conn.Close()
	_ = c.ws.CloseNow()
	return err
}

func dialWebsocket(ctx context.Context, t Target, opts Options) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(dialCtx, t.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	ws.SetReadLimit(1 << 20)
	return &wsConn{
		Conn: websocket.NetConn(context.Background(), ws, websocket.MessageText),
		ws:   ws,
		name: t.String(),
	}, nil
}
