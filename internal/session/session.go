package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

// End reasons reported in the session_end event.
const (
	EndEOF       = "eof"
	EndCanceled  = "canceled"
	EndTransport = "transport_error"
)

// ErrClosed is returned by requests made after the session stopped.
var ErrClosed = errors.New("session closed")

const readSize = 4096

// Session drives an Engine from one event loop goroutine. Transport bytes,
// requests from other goroutines and ticks are serialized through the loop,
// so lines reach the controller strictly in order.
type Session struct {
	engine *Engine
	conn   io.ReadWriteCloser
	clock  clock.Clock
	tick   time.Duration
	log    *zap.Logger

	reqs chan func()
	done chan struct{}

	mu      sync.Mutex
	subs    map[int]*subscriber
	nextSub int
	running bool
}

type subscriber struct {
	ch   chan domain.Event
	quit chan struct{}
	once sync.Once
}

// New creates a session over conn. name identifies the transport in the
// ready event.
func New(conn io.ReadWriteCloser, name string, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	s := &Session{
		conn:  conn,
		clock: opts.Clock,
		tick:  opts.TickInterval,
		log:   opts.Logger,
		reqs:  make(chan func()),
		done:  make(chan struct{}),
		subs:  make(map[int]*subscriber),
	}
	s.engine = NewEngine(conn, name, opts, s.broadcast)
	return s
}

// ID returns the session ID.
func (s *Session) ID() string { return s.engine.ID() }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Subscribe returns a channel receiving every event published after the
// call. The channel is closed when the session ends. Call cancel to stop
// receiving; a subscriber that stops reading without cancelling stalls the
// session.
func (s *Session) Subscribe(buffer int) (<-chan domain.Event, func()) {
	sub := &subscriber{
		ch:   make(chan domain.Event, buffer),
		quit: make(chan struct{}),
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	select {
	case <-s.done:
		close(sub.ch)
	default:
		s.subs[id] = sub
	}
	s.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() { close(sub.quit) })
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// Run pumps the transport until ctx is done or the transport fails. It
// always publishes session_end before returning.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("session already running")
	}
	s.running = true
	s.mu.Unlock()

	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go s.read(chunks, readErr)

	ticker := s.clock.Ticker(s.tick)
	defer ticker.Stop()

	s.engine.Start()

	reason, err := s.loop(ctx, chunks, readErr, ticker.C)
	s.log.Debug("session ended", zap.String("session_id", s.ID()), zap.String("reason", reason))

	s.engine.Close(reason)
	_ = s.conn.Close()
	s.shutdown()
	return err
}

func (s *Session) loop(ctx context.Context, chunks <-chan []byte, readErr <-chan error, tick <-chan time.Time) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return EndCanceled, nil
		case p := <-chunks:
			s.engine.Feed(p)
		case err := <-readErr:
			if isEOF(err) {
				return EndEOF, nil
			}
			return EndTransport, fmt.Errorf("read transport: %w", err)
		case fn := <-s.reqs:
			fn()
		case <-tick:
			s.engine.Tick()
		}
	}
}

func (s *Session) read(chunks chan<- []byte, readErr chan<- error) {
	buf := make([]byte, readSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			p := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- p:
			case <-s.done:
				return
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.done)
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
}

// broadcast runs on the loop goroutine.
func (s *Session) broadcast(ev domain.Event) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		case <-sub.quit:
		}
	}
}

// do runs fn on the loop goroutine and waits for its result.
func do[T any](ctx context.Context, s *Session, fn func(e *Engine) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	ch := make(chan result, 1)
	req := func() {
		v, err := fn(s.engine)
		ch <- result{v, err}
	}

	select {
	case s.reqs <- req:
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	// The loop runs fn without blocking once it accepted the request.
	r := <-ch
	return r.v, r.err
}

// Hover starts a value query for a hovered token. Reveal and Alive run on
// the session goroutine.
func (s *Session) Hover(ctx context.Context, h debugger.Hover) (*debugger.Query, error) {
	return do(ctx, s, func(e *Engine) (*debugger.Query, error) {
		return e.Hover(h)
	})
}

// Query starts a value query for expr without waiting for the reply.
func (s *Session) Query(ctx context.Context, expr string) (*debugger.Query, error) {
	return do(ctx, s, func(e *Engine) (*debugger.Query, error) {
		return e.Evaluate(expr)
	})
}

// Evaluate queries expr and waits for its value.
func (s *Session) Evaluate(ctx context.Context, expr string) (string, error) {
	q, err := s.Query(ctx, expr)
	if err != nil {
		return "", err
	}
	return q.Wait(ctx)
}

// Activate runs one of the debug controls.
func (s *Session) Activate(ctx context.Context, name string) error {
	_, err := do(ctx, s, func(e *Engine) (struct{}, error) {
		return struct{}{}, e.Activate(name)
	})
	return err
}

// Send writes a raw command line to the runtime.
func (s *Session) Send(ctx context.Context, line string) error {
	_, err := do(ctx, s, func(e *Engine) (struct{}, error) {
		return struct{}{}, e.Send(line)
	})
	return err
}

// Status returns a snapshot of the session state.
func (s *Session) Status(ctx context.Context) (Status, error) {
	return do(ctx, s, func(e *Engine) (Status, error) {
		return e.Status(), nil
	})
}

// Summary returns the statistics collected so far. It is safe to call
// after the session ended.
func (s *Session) Summary() domain.SessionSummary {
	return s.engine.Summary()
}

// WaitMode blocks until the session is in mode.
func (s *Session) WaitMode(ctx context.Context, mode domain.Mode) error {
	type watch struct {
		events <-chan domain.Event
		cancel func()
		now    string
	}
	// Subscribing on the loop goroutine guarantees no mode event falls
	// between the status check and the subscription.
	w, err := do(ctx, s, func(e *Engine) (watch, error) {
		events, cancel := s.Subscribe(16)
		return watch{events, cancel, e.Status().Mode}, nil
	})
	if err != nil {
		return err
	}
	defer w.cancel()

	if w.now == mode.String() {
		return nil
	}
	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return ErrClosed
			}
			if ev.Type == domain.EventMode && ev.Mode == mode.String() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}
