// Package session runs a debug overlay over one terminal connection and
// publishes what happens on it as a stream of domain events.
package session

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/terminal"
)

// DefaultTickInterval is how often pending query deadlines are checked
// while the runtime is silent.
const DefaultTickInterval = 250 * time.Millisecond

// Options configure an Engine or Session.
type Options struct {
	SessionID    string
	Prompts      []string
	DebugPrompt  string
	History      int
	QueryTimeout time.Duration
	TickInterval time.Duration
	Clock        clock.Clock
	Logger       *zap.Logger
	// Editor and Host receive marker and affordance updates in addition
	// to the event stream.
	Editor debugger.Editor
	Host   debugger.AffordanceHost
}

// Status is a snapshot of the session state.
type Status struct {
	SessionID string                `json:"session_id"`
	Transport string                `json:"transport"`
	Mode      string                `json:"mode"`
	Line      *int                  `json:"line,omitempty"`
	Pending   string                `json:"pending,omitempty"`
	Controls  []debugger.Control    `json:"controls"`
	Stops     int                   `json:"stops"`
	Summary   domain.SessionSummary `json:"summary"`
}

// Engine wires a terminal buffer to a debugger controller and turns their
// activity into events. It is synchronous and not safe for concurrent use;
// Session drives it from a single goroutine.
type Engine struct {
	id        string
	transport string
	clock     clock.Clock
	log       *zap.Logger
	buf       *terminal.Buffer
	ctl       *debugger.Controller
	tracker   *Tracker
	editor    debugger.Editor
	host      debugger.AffordanceHost
	emit      func(domain.Event)
	attached  []debugger.Control
	marker    int
	closed    bool
}

// NewEngine creates an engine that writes commands to w and hands every
// event to emit.
func NewEngine(w io.Writer, transport string, opts Options, emit func(domain.Event)) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if emit == nil {
		emit = func(domain.Event) {}
	}

	e := &Engine{
		id:        id,
		transport: transport,
		clock:     clk,
		log:       log.With(zap.String("session_id", id)),
		buf:       terminal.NewBuffer(opts.Prompts, opts.History),
		tracker:   NewTracker(clk),
		editor:    opts.Editor,
		host:      opts.Host,
		emit:      emit,
		marker:    -1,
	}
	e.ctl = debugger.New(debugger.Options{
		Writer:   w,
		Lookback: e.buf,
		Editor:   e.editor,
		Host:     e,
		Next:     e,
		Hooks: debugger.Hooks{
			OnCommand:    e.onCommand,
			OnQueryStart: e.onQueryStart,
			OnQueryDone:  e.onQueryDone,
		},
		Clock:        clk,
		DebugPrompt:  opts.DebugPrompt,
		QueryTimeout: opts.QueryTimeout,
		Logger:       e.log,
	})
	e.ctl.AddModeListener(e.onMode)
	return e
}

// ID returns the session ID stamped on every event.
func (e *Engine) ID() string { return e.id }

// Start publishes the ready event.
func (e *Engine) Start() {
	e.publish(domain.NewSessionReady(e.id, e.transport, e.clock.Now()))
}

// Feed processes raw transport bytes.
func (e *Engine) Feed(p []byte) {
	for _, tok := range e.buf.Feed(p) {
		switch tok.Kind {
		case terminal.TokenPrompt:
			e.ctl.HandlePrompt(tok.Text)
		default:
			e.ctl.HandleLine(tok.Text)
		}
	}
}

// Hover starts a value query for a hovered token.
func (e *Engine) Hover(h debugger.Hover) (*debugger.Query, error) {
	return e.ctl.Hover(h)
}

// Evaluate starts a value query for an expression.
func (e *Engine) Evaluate(expr string) (*debugger.Query, error) {
	return e.ctl.Query(expr)
}

// Activate runs one of the debug controls.
func (e *Engine) Activate(name string) error {
	return e.ctl.Activate(name)
}

// Send writes a raw command line.
func (e *Engine) Send(line string) error {
	return e.ctl.Send(line)
}

// Tick expires overdue queries.
func (e *Engine) Tick() {
	e.ctl.Tick()
}

// Close leaves debugging mode, aborts a pending query and publishes the
// session_end event. Later calls do nothing.
func (e *Engine) Close(reason string) {
	if e.closed {
		return
	}
	e.ctl.Reset(debugger.ReasonClosed)
	e.syncMarker()
	e.publish(domain.NewSessionEnd(e.id, reason, e.tracker.Summary(), e.clock.Now()))
	e.closed = true
}

// Status returns a snapshot of the current state.
func (e *Engine) Status() Status {
	st := Status{
		SessionID: e.id,
		Transport: e.transport,
		Mode:      e.ctl.Mode().String(),
		Controls:  append([]debugger.Control{}, e.attached...),
		Stops:     e.tracker.Stops(),
		Summary:   e.tracker.Summary(),
	}
	if line, ok := e.ctl.Marker(); ok {
		st.Line = &line
	}
	if q := e.ctl.Pending(); q != nil {
		st.Pending = q.Expr()
	}
	return st
}

// Summary returns the statistics collected so far.
func (e *Engine) Summary() domain.SessionSummary {
	return e.tracker.Summary()
}

// HandlePrompt publishes a prompt after the controller processed it.
func (e *Engine) HandlePrompt(prompt string) {
	e.syncMarker()
	e.publish(domain.NewPromptEvent(e.id, prompt, e.clock.Now()))
}

// HandleLine publishes a terminal line after the controller processed it.
func (e *Engine) HandleLine(line string) {
	e.syncMarker()
	e.publish(domain.NewLineEvent(e.id, line, e.clock.Now()))
}

// HandleHover is a no-op; hovers are not part of the event stream.
func (e *Engine) HandleHover(debugger.Hover) {}

// Attach records an affordance offered while debugging.
func (e *Engine) Attach(c debugger.Control) {
	e.attached = append(e.attached, c)
	if e.host != nil {
		e.host.Attach(c)
	}
}

// Detach removes an affordance.
func (e *Engine) Detach(c debugger.Control) {
	e.attached = lo.Filter(e.attached, func(a debugger.Control, _ int) bool {
		return a.ID != c.ID
	})
	if e.host != nil {
		e.host.Detach(c)
	}
}

func (e *Engine) onMode(debugging bool) {
	mode := lo.Ternary(debugging, domain.ModeDebugging, domain.ModeNormal)
	e.syncMarker()
	e.publish(domain.NewModeEvent(e.id, mode, e.clock.Now()))
}

func (e *Engine) onCommand(command string) {
	e.publish(domain.NewCommandEvent(e.id, command, e.clock.Now()))
}

func (e *Engine) onQueryStart(*debugger.Query) {
	e.tracker.QueryStarted()
}

func (e *Engine) onQueryDone(q *debugger.Query) {
	now := e.clock.Now()
	if v, ok := q.Value(); ok {
		e.publish(domain.NewValueEvent(e.id, q.Expr(), v, now))
		return
	}
	e.publish(domain.NewQueryAbortedEvent(e.id, q.Expr(), q.Reason(), now))
}

// syncMarker publishes a marker event when the marked line changed.
func (e *Engine) syncMarker() {
	line, ok := e.ctl.Marker()
	if !ok {
		line = -1
	}
	if line == e.marker {
		return
	}
	e.marker = line
	e.publish(domain.NewMarkerEvent(e.id, line, e.clock.Now()))
}

func (e *Engine) publish(ev domain.Event) {
	if e.closed {
		return
	}
	if change := e.tracker.Observe(ev); change != nil {
		e.log.Debug("debug stop",
			zap.Int("stop", change.Stop),
			zap.Bool("entered", change.Entered),
			zap.Duration("paused", change.Duration))
	}
	e.emit(ev)
}
