// Package dapserver lets Debug Adapter Protocol clients drive a session.
//
// The runtime has a single thread of control and no stack introspection, so
// the adapter reports one thread and at most one stack frame: the marked
// source line. Stepping requests map to the runtime's control commands and
// evaluate requests become value queries.
package dapserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"

	"github.com/google/go-dap"
	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/session"
)

// ThreadID is the only thread the adapter reports
const ThreadID = 1

const (
	errUnsupported = 1000 + iota
	errControl
	errEvaluate
	errStatus
)

// Debugger is the part of a session the adapter drives.
type Debugger interface {
	Status(ctx context.Context) (session.Status, error)
	Activate(ctx context.Context, name string) error
	Evaluate(ctx context.Context, expr string) (string, error)
	Subscribe(buffer int) (<-chan domain.Event, func())
}

// Options configure a Server
type Options struct {
	// Source is the file the runtime executes, shown in stack frames
	Source string
	Logger *zap.Logger
}

// Server speaks DAP on one connection
type Server struct {
	sess   Debugger
	source string
	log    *zap.Logger

	mu     sync.Mutex
	writer *bufio.Writer
	seq    int

	// event state, owned by the forward goroutine
	debugging   bool
	pendingStop string
}

// NewServer creates an adapter for sess
func NewServer(sess Debugger, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{sess: sess, source: opts.Source, log: log, seq: 1}
}

// Serve handles requests from rw until the client disconnects, rw is
// closed or ctx is done. Serve closes rw before returning when it is an
// io.Closer, which also ends the pending read. Callers passing a plain
// io.ReadWriter must close the underlying reader themselves.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	if c, ok := rw.(io.Closer); ok {
		defer c.Close()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.writer = bufio.NewWriter(rw)
	s.mu.Unlock()

	events, unsubscribe := s.sess.Subscribe(64)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.forward(ctx, events)
	}()
	defer func() {
		cancel()
		<-done
	}()

	reader := bufio.NewReader(rw)
	msgs := make(chan dap.Message)
	readErr := make(chan error, 1)
	go func() {
		for {
			msg, err := dap.ReadProtocolMessage(reader)
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) {
				s.log.Debug("skipping undecodable DAP message", zap.Error(err))
				continue
			}
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read DAP message: %w", err)
		case msg := <-msgs:
			if stop := s.dispatch(ctx, msg); stop {
				return nil
			}
		}
	}
}

// dispatch handles one request and reports whether the client disconnected
func (s *Server) dispatch(ctx context.Context, msg dap.Message) bool {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		s.send(&dap.InitializeResponse{
			Response: s.response(req.Request),
			Body: dap.Capabilities{
				SupportsConfigurationDoneRequest: true,
				SupportsEvaluateForHovers:        true,
				SupportsTerminateRequest:         true,
			},
		})
		s.send(&dap.InitializedEvent{Event: s.event("initialized")})
	case *dap.LaunchRequest:
		s.send(&dap.LaunchResponse{Response: s.response(req.Request)})
	case *dap.AttachRequest:
		s.send(&dap.AttachResponse{Response: s.response(req.Request)})
	case *dap.SetBreakpointsRequest:
		// Breakpoints live in the runtime's source as debugger statements.
		bps := make([]dap.Breakpoint, 0, len(req.Arguments.Breakpoints))
		for _, b := range req.Arguments.Breakpoints {
			bps = append(bps, dap.Breakpoint{Verified: false, Line: b.Line, Message: "set breakpoints in the program source"})
		}
		s.send(&dap.SetBreakpointsResponse{
			Response: s.response(req.Request),
			Body:     dap.SetBreakpointsResponseBody{Breakpoints: bps},
		})
	case *dap.SetExceptionBreakpointsRequest:
		s.send(&dap.SetExceptionBreakpointsResponse{Response: s.response(req.Request)})
	case *dap.ConfigurationDoneRequest:
		s.send(&dap.ConfigurationDoneResponse{Response: s.response(req.Request)})
		if st, err := s.sess.Status(ctx); err == nil && st.Mode == domain.ModeDebugging.String() {
			s.sendStopped("entry")
		}
	case *dap.ThreadsRequest:
		s.send(&dap.ThreadsResponse{
			Response: s.response(req.Request),
			Body:     dap.ThreadsResponseBody{Threads: []dap.Thread{{Id: ThreadID, Name: "main"}}},
		})
	case *dap.StackTraceRequest:
		s.stackTrace(ctx, req)
	case *dap.ScopesRequest:
		s.send(&dap.ScopesResponse{Response: s.response(req.Request), Body: dap.ScopesResponseBody{Scopes: []dap.Scope{}}})
	case *dap.VariablesRequest:
		s.send(&dap.VariablesResponse{Response: s.response(req.Request), Body: dap.VariablesResponseBody{Variables: []dap.Variable{}}})
	case *dap.ContinueRequest:
		if s.control(ctx, req.Request, "continue") {
			s.send(&dap.ContinueResponse{Response: s.response(req.Request), Body: dap.ContinueResponseBody{AllThreadsContinued: true}})
		}
	case *dap.NextRequest:
		if s.control(ctx, req.Request, "next") {
			s.send(&dap.NextResponse{Response: s.response(req.Request)})
		}
	case *dap.StepInRequest:
		if s.control(ctx, req.Request, "step") {
			s.send(&dap.StepInResponse{Response: s.response(req.Request)})
		}
	case *dap.StepOutRequest:
		if s.control(ctx, req.Request, "finish") {
			s.send(&dap.StepOutResponse{Response: s.response(req.Request)})
		}
	case *dap.EvaluateRequest:
		value, err := s.sess.Evaluate(ctx, req.Arguments.Expression)
		if err != nil {
			s.sendError(req.Request, errEvaluate, err.Error())
			return false
		}
		s.send(&dap.EvaluateResponse{
			Response: s.response(req.Request),
			Body:     dap.EvaluateResponseBody{Result: value},
		})
	case *dap.DisconnectRequest:
		s.quit(ctx)
		s.send(&dap.DisconnectResponse{Response: s.response(req.Request)})
		return true
	case *dap.TerminateRequest:
		s.quit(ctx)
		s.send(&dap.TerminateResponse{Response: s.response(req.Request)})
		s.send(&dap.TerminatedEvent{Event: s.event("terminated")})
	default:
		if r, ok := msg.(dap.RequestMessage); ok {
			s.sendError(*r.GetRequest(), errUnsupported, fmt.Sprintf("%s is not supported", r.GetRequest().Command))
		}
	}
	return false
}

func (s *Server) stackTrace(ctx context.Context, req *dap.StackTraceRequest) {
	st, err := s.sess.Status(ctx)
	if err != nil {
		s.sendError(req.Request, errStatus, err.Error())
		return
	}
	frames := []dap.StackFrame{}
	if st.Line != nil {
		frame := dap.StackFrame{Id: 1, Name: "debug", Line: *st.Line + 1, Column: 1}
		if s.source != "" {
			frame.Source = &dap.Source{Name: filepath.Base(s.source), Path: s.source}
		}
		frames = append(frames, frame)
	}
	s.send(&dap.StackTraceResponse{
		Response: s.response(req.Request),
		Body:     dap.StackTraceResponseBody{StackFrames: frames, TotalFrames: len(frames)},
	})
}

// control runs a debug control and answers with an error response on failure
func (s *Server) control(ctx context.Context, req dap.Request, name string) bool {
	if err := s.sess.Activate(ctx, name); err != nil {
		s.sendError(req, errControl, err.Error())
		return false
	}
	return true
}

func (s *Server) quit(ctx context.Context) {
	if err := s.sess.Activate(ctx, "quit"); err != nil && !errors.Is(err, debugger.ErrNotDebugging) {
		s.log.Debug("quit on disconnect failed", zap.Error(err))
	}
}

// forward turns session events into DAP events. A stop is reported on
// the first debug prompt after entering debugging or after a control ran.
func (s *Server) forward(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Server) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventMode:
		s.debugging = domain.ParseMode(ev.Mode).Debugging()
		if s.debugging {
			s.pendingStop = "breakpoint"
			return
		}
		s.pendingStop = ""
		s.send(&dap.ContinuedEvent{
			Event: s.event("continued"),
			Body:  dap.ContinuedEventBody{ThreadId: ThreadID, AllThreadsContinued: true},
		})
	case domain.EventCommand:
		if ctl, ok := debugger.LookupControl(ev.Text); ok && ctl.Command == ev.Text && s.debugging {
			s.pendingStop = stopReason(ctl)
		}
	case domain.EventPrompt:
		if s.debugging && s.pendingStop != "" {
			s.sendStopped(s.pendingStop)
			s.pendingStop = ""
		}
	case domain.EventLine:
		s.send(&dap.OutputEvent{
			Event: s.event("output"),
			Body:  dap.OutputEventBody{Category: "stdout", Output: ev.Text + "\n"},
		})
	case domain.EventSessionEnd:
		s.send(&dap.TerminatedEvent{Event: s.event("terminated")})
	}
}

func stopReason(c debugger.Control) string {
	if c.Command == "continue" {
		return "breakpoint"
	}
	return "step"
}

func (s *Server) sendStopped(reason string) {
	s.send(&dap.StoppedEvent{
		Event: s.event("stopped"),
		Body:  dap.StoppedEventBody{Reason: reason, ThreadId: ThreadID, AllThreadsStopped: true},
	})
}

func (s *Server) response(req dap.Request) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
	}
}

func (s *Server) event(name string) dap.Event {
	return dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: name}
}

func (s *Server) sendError(req dap.Request, id int, message string) {
	resp := s.response(req)
	resp.Success = false
	resp.Message = message
	s.send(&dap.ErrorResponse{
		Response: resp,
		Body:     dap.ErrorResponseBody{Error: &dap.ErrorMessage{Id: id, Format: message, ShowUser: true}},
	})
}

// send stamps the sequence number and writes msg
func (s *Server) send(msg dap.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case dap.ResponseMessage:
		m.GetResponse().Seq = s.seq
	case dap.EventMessage:
		m.GetEvent().Seq = s.seq
	}
	s.seq++

	if err := dap.WriteProtocolMessage(s.writer, msg); err != nil {
		s.log.Debug("write DAP message failed", zap.Error(err))
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.log.Debug("flush DAP message failed", zap.Error(err))
	}
}
