// Package transport opens the byte stream to a remote runtime console.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnsupportedScheme is returned for targets no transport can open.
var ErrUnsupportedScheme = errors.New("unsupported transport scheme")

// DefaultBaud is used for serial targets without an explicit rate.
const DefaultBaud = 9600

// DefaultDialTimeout bounds connection setup for network transports.
const DefaultDialTimeout = 10 * time.Second

// Conn is an open console connection.
type Conn interface {
	io.ReadWriteCloser
	// Name describes the connection for events and logs.
	Name() string
}

// Options tune how targets are opened.
type Options struct {
	Baud        int
	DialTimeout time.Duration
	Logger      *zap.Logger
}

// Target is a parsed connection target.
type Target struct {
	Scheme string
	Addr   string   // host:port, device path, or websocket URL
	Args   []string // exec arguments
	Baud   int
}

// String renders the target in canonical form.
func (t Target) String() string {
	switch t.Scheme {
	case "exec":
		return "exec://" + strings.Join(append([]string{t.Addr}, t.Args...), " ")
	case "ws", "wss":
		return t.Addr
	default:
		return t.Scheme + "://" + t.Addr
	}
}

// ParseTarget accepts `tcp://host:port`, `serial:///dev/ttyX?baud=115200`,
// `exec://program?arg=a&arg=b`, `ws://` and `wss://` URLs, as well as the
// shorthands `/dev/ttyX` (serial) and `host:port` (tcp).
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, errors.New("empty target")
	}
	if strings.HasPrefix(raw, "/dev/") || strings.HasPrefix(raw, "COM") {
		return Target{Scheme: "serial", Addr: raw}, nil
	}
	if !strings.Contains(raw, "://") {
		if _, _, err := net.SplitHostPort(raw); err != nil {
			return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
		}
		return Target{Scheme: "tcp", Addr: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse target: %w", err)
	}
	t := Target{Scheme: strings.ToLower(u.Scheme)}
	q := u.Query()
	switch t.Scheme {
	case "tcp", "telnet":
		t.Scheme = "tcp"
		t.Addr = u.Host
		if _, _, err := net.SplitHostPort(t.Addr); err != nil {
			return Target{}, fmt.Errorf("tcp target needs host:port: %w", err)
		}
	case "serial":
		t.Addr = u.Path
		if t.Addr == "" {
			t.Addr = u.Host
		}
		if b := q.Get("baud"); b != "" {
			t.Baud, err = strconv.Atoi(b)
			if err != nil || t.Baud <= 0 {
				return Target{}, fmt.Errorf("invalid baud rate %q", b)
			}
		}
	case "exec":
		t.Addr = u.Host + u.Path
		t.Args = q["arg"]
	case "ws", "wss":
		t.Addr = raw
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if t.Addr == "" {
		return Target{}, fmt.Errorf("target %q has no address", raw)
	}
	return t, nil
}

// Open connects to target.
func Open(ctx context.Context, raw string, opts Options) (Conn, error) {
	t, err := ParseTarget(raw)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if t.Baud == 0 {
		t.Baud = opts.Baud
	}
	if t.Baud == 0 {
		t.Baud = DefaultBaud
	}
	opts.Logger.Debug("opening transport", zap.String("target", t.String()))

	switch t.Scheme {
	case "tcp":
		return dialTCP(ctx, t, opts)
	case "serial":
		return openSerial(t, opts)
	case "exec":
		return startExec(ctx, t, opts)
	case "ws", "wss":
		return dialWebsocket(ctx, t, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, t.Scheme)
}

type namedConn struct {
	io.ReadWriteCloser
	name string
}

func (c *namedConn) Name() string { return c.name }

func dialTCP(ctx context.Context, t Target, opts Options) (Conn, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	c, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.Addr, err)
	}
	return &namedConn{ReadWriteCloser: c, name: t.String()}, nil
}
