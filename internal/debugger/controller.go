// Package debugger overlays a line-stepping debug session on a plain
// terminal conversation with a remote runtime. The Controller classifies
// prompts, tracks the current source line and correlates value queries with
// their replies. It has no framing or request IDs to rely on, only the
// order in which lines arrive.
package debugger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/domain"
)

// DefaultQueryTimeout bounds how long a value query waits for its reply.
const DefaultQueryTimeout = 3 * time.Second

// Handler consumes terminal and editor events. The Controller is a Handler
// and forwards every event to the next Handler after processing it.
type Handler interface {
	HandlePrompt(prompt string)
	HandleLine(line string)
	HandleHover(h Hover)
}

// TokenClass is the syntactic class of a hovered token.
type TokenClass string

const (
	ClassVariable TokenClass = "variable"
	ClassLocal    TokenClass = "variable-2"
	ClassProperty TokenClass = "property"
	ClassKeyword  TokenClass = "keyword"
)

// Identifier reports whether tokens of this class may be evaluated.
func (c TokenClass) Identifier() bool {
	return c == ClassVariable || c == ClassLocal
}

// Hover is a request to show the value of the token under the pointer.
type Hover struct {
	Class TokenClass
	Text  string
	// Alive reports whether the pointer is still over the token. Nil means
	// always alive.
	Alive func() bool
	// Reveal shows the tooltip text. It is called at most once, from the
	// goroutine driving the Controller.
	Reveal func(tooltip string)
}

// Hooks are optional notifications about controller side effects.
type Hooks struct {
	OnCommand    func(command string)
	OnQueryStart func(q *Query)
	OnQueryDone  func(q *Query)
}

// Options configure a Controller.
type Options struct {
	// Writer receives command lines for the runtime.
	Writer io.Writer
	// Lookback gives access to the lines printed above a prompt.
	Lookback     Lookback
	Editor       Editor
	Host         AffordanceHost
	Next         Handler
	Hooks        Hooks
	Clock        clock.Clock
	DebugPrompt  string
	QueryTimeout time.Duration
	Logger       *zap.Logger
}

// Controller is the debug session state machine. It is not safe for
// concurrent use: a single goroutine must deliver all events.
type Controller struct {
	w         io.Writer
	lookback  Lookback
	host      AffordanceHost
	next      Handler
	hooks     Hooks
	clock     clock.Clock
	prompt    string
	timeout   time.Duration
	log       *zap.Logger
	marker    *Marker
	mode      domain.Mode
	query     *Query
	hover     *Hover
	listeners []func(debugging bool)
}

// New creates a Controller in normal mode.
func New(opts Options) *Controller {
	c := &Controller{
		w:        opts.Writer,
		lookback: opts.Lookback,
		host:     opts.Host,
		next:     opts.Next,
		hooks:    opts.Hooks,
		clock:    opts.Clock,
		prompt:   opts.DebugPrompt,
		timeout:  opts.QueryTimeout,
		log:      opts.Logger,
		marker:   NewMarker(opts.Editor),
	}
	if c.w == nil {
		c.w = io.Discard
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.prompt == "" {
		c.prompt = DebugPrompt
	}
	if c.timeout == 0 {
		c.timeout = DefaultQueryTimeout
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// AddModeListener registers fn to be called with the new mode on every
// transition.
func (c *Controller) AddModeListener(fn func(debugging bool)) {
	c.listeners = append(c.listeners, fn)
}

// SetLookback replaces the lookback source.
func (c *Controller) SetLookback(lb Lookback) {
	c.lookback = lb
}

// Mode returns the current mode.
func (c *Controller) Mode() domain.Mode { return c.mode }

// Marker returns the marked source line.
func (c *Controller) Marker() (int, bool) { return c.marker.Current() }

// Pending returns the pending query, or nil.
func (c *Controller) Pending() *Query { return c.query }

// HandlePrompt processes a prompt detected on the terminal.
func (c *Controller) HandlePrompt(prompt string) {
	c.expire()
	mode := Classify(prompt, c.prompt)
	c.setMode(mode)
	if mode.Debugging() {
		if line, ok := LocateLine(c.lookback); ok {
			c.log.Debug("current line", zap.Int("line", line))
			c.marker.Set(line)
		}
	}
	if c.next != nil {
		c.next.HandlePrompt(prompt)
	}
}

// HandleLine processes a completed terminal line.
func (c *Controller) HandleLine(line string) {
	c.expire()
	if c.mode.Debugging() {
		if c.query != nil {
			if c.query.feed(line, c.prompt) {
				c.finish()
			}
		} else {
			c.marker.Clear()
		}
	}
	if c.next != nil {
		c.next.HandleLine(line)
	}
}

// HandleHover starts a value query for the hovered token when possible.
// Rejected hovers are dropped.
func (c *Controller) HandleHover(h Hover) {
	if _, err := c.Hover(h); err != nil {
		c.log.Debug("hover ignored", zap.String("token", h.Text), zap.Error(err))
	}
	if c.next != nil {
		c.next.HandleHover(h)
	}
}

// Hover starts a value query for the hovered token.
func (c *Controller) Hover(h Hover) (*Query, error) {
	c.expire()
	if !h.Class.Identifier() {
		return nil, ErrNotIdentifier
	}
	q, err := c.Query(h.Text)
	if err != nil {
		return nil, err
	}
	c.hover = &h
	return q, nil
}

// Query writes `p <expr>` to the runtime and returns the pending query.
func (c *Controller) Query(expr string) (*Query, error) {
	c.expire()
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.ContainsAny(expr, "\r\n") {
		return nil, ErrNotIdentifier
	}
	if !c.mode.Debugging() {
		return nil, ErrNotDebugging
	}
	if c.query != nil {
		return nil, ErrQueryBusy
	}

	now := c.clock.Now()
	q := newQuery(expr, now, now.Add(c.timeout))
	if err := c.write(q.Command()); err != nil {
		return nil, err
	}
	c.query = q
	c.hover = nil
	c.log.Debug("query started", zap.String("expr", expr))
	if c.hooks.OnQueryStart != nil {
		c.hooks.OnQueryStart(q)
	}
	return q, nil
}

// Activate writes the command of the named control. Controls only exist
// while debugging.
func (c *Controller) Activate(name string) error {
	c.expire()
	ctl, ok := LookupControl(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, name)
	}
	if !c.mode.Debugging() {
		return ErrNotDebugging
	}
	return c.write(ctl.Command)
}

// Send writes a raw command line to the runtime.
func (c *Controller) Send(line string) error {
	c.expire()
	return c.write(strings.TrimRight(line, "\r\n"))
}

// Tick checks the pending query deadline.
func (c *Controller) Tick() {
	c.expire()
}

// Reset returns to normal mode, e.g. after the transport went away. A
// pending query is aborted with reason.
func (c *Controller) Reset(reason string) {
	if c.query != nil {
		c.query.abort(reason)
		c.finish()
	}
	c.setMode(domain.ModeNormal)
}

func (c *Controller) setMode(mode domain.Mode) {
	if c.mode == mode {
		return
	}
	c.mode = mode
	c.log.Debug("mode changed", zap.Stringer("mode", mode))

	if mode.Debugging() {
		if c.host != nil {
			for _, ctl := range Controls {
				c.host.Attach(ctl)
			}
		}
	} else {
		if c.host != nil {
			for _, ctl := range Controls {
				c.host.Detach(ctl)
			}
		}
		c.marker.Clear()
		if c.query != nil {
			c.query.abort(ReasonModeExit)
			c.finish()
		}
	}

	for _, fn := range c.listeners {
		fn(mode.Debugging())
	}
}

func (c *Controller) expire() {
	if c.query != nil && c.query.expired(c.clock.Now()) {
		c.query.abort(ReasonTimeout)
		c.finish()
	}
}

// finish detaches the completed query and delivers its result.
func (c *Controller) finish() {
	q, h := c.query, c.hover
	c.query, c.hover = nil, nil

	if v, ok := q.Value(); ok {
		c.log.Debug("query resolved", zap.String("expr", q.Expr()), zap.String("value", v))
		if h != nil && h.Reveal != nil && (h.Alive == nil || h.Alive()) {
			h.Reveal(q.Tooltip())
		}
	} else {
		c.log.Debug("query aborted", zap.String("expr", q.Expr()), zap.String("reason", q.Reason()))
	}
	if c.hooks.OnQueryDone != nil {
		c.hooks.OnQueryDone(q)
	}
}

func (c *Controller) write(command string) error {
	if _, err := io.WriteString(c.w, command+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", command, err)
	}
	if c.hooks.OnCommand != nil {
		c.hooks.OnCommand(command)
	}
	return nil
}
