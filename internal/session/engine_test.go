package session

import (
	"bytes"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

const breakTranscript = "Break in foo\r\n       7 x = x + 1\r\n        ^\r\ndebug>"

type eventLog struct {
	events []domain.Event
}

func (l *eventLog) emit(ev domain.Event) { l.events = append(l.events, ev) }

func (l *eventLog) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func (l *eventLog) reset() { l.events = nil }

func (l *eventLog) last(t domain.EventType) (domain.Event, bool) {
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i], true
		}
	}
	return domain.Event{}, false
}

func newTestEngine(t *testing.T) (*Engine, *bytes.Buffer, *eventLog, *clock.Mock) {
	t.Helper()
	out := &bytes.Buffer{}
	log := &eventLog{}
	clk := clock.NewMock()
	e := NewEngine(out, "test", Options{SessionID: "s1", Clock: clk}, log.emit)
	return e, out, log, clk
}

func TestEngineBreakpointFlow(t *testing.T) {
	e, out, log, _ := newTestEngine(t)

	e.Start()
	e.Feed([]byte(breakTranscript))

	assert.Equal(t, []domain.EventType{
		domain.EventReady,
		domain.EventLine, domain.EventLine, domain.EventLine,
		domain.EventMode,
		domain.EventMarker,
		domain.EventPrompt,
	}, log.types())

	marker, ok := log.last(domain.EventMarker)
	require.True(t, ok)
	line, ok := marker.Marker()
	require.True(t, ok)
	assert.Equal(t, 6, line)

	for _, ev := range log.events {
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, domain.SchemaVersion, ev.SchemaVersion)
	}

	log.reset()
	q, err := e.Evaluate("x")
	require.NoError(t, err)
	assert.Equal(t, "p x\n", out.String())

	e.Feed([]byte("debug>p x\r\n=42\r\ndebug>"))
	assert.Equal(t, []domain.EventType{
		domain.EventCommand,
		domain.EventLine,
		domain.EventValue,
		domain.EventLine,
		domain.EventPrompt,
	}, log.types())

	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, "42", v)
	value, _ := log.last(domain.EventValue)
	assert.Equal(t, "x = 42", value.Tooltip)

	st := e.Status()
	assert.Equal(t, "debugging", st.Mode)
	require.NotNil(t, st.Line)
	assert.Equal(t, 6, *st.Line)
	assert.Len(t, st.Controls, len(debugger.Controls))
}

func TestEngineStepAndContinue(t *testing.T) {
	e, out, log, _ := newTestEngine(t)
	e.Feed([]byte(breakTranscript))
	log.reset()

	require.NoError(t, e.Activate("next"))
	assert.Equal(t, "next\n", out.String())

	e.Feed([]byte("debug>next\r\n"))
	assert.Equal(t, []domain.EventType{domain.EventCommand, domain.EventMarker, domain.EventLine}, log.types())
	cleared, _ := log.last(domain.EventMarker)
	_, ok := cleared.Marker()
	assert.False(t, ok)

	e.Feed([]byte("       8 y();\r\n         ^\r\ndebug>"))
	marker, _ := log.last(domain.EventMarker)
	line, ok := marker.Marker()
	require.True(t, ok)
	assert.Equal(t, 7, line)

	log.reset()
	require.NoError(t, e.Activate("continue"))
	e.Feed([]byte("debug>continue\r\n>"))
	assert.Equal(t, []domain.EventType{
		domain.EventCommand,
		domain.EventMarker,
		domain.EventLine,
		domain.EventMode,
		domain.EventPrompt,
	}, log.types())

	st := e.Status()
	assert.Equal(t, "normal", st.Mode)
	assert.Nil(t, st.Line)
	assert.Empty(t, st.Controls)
	assert.Equal(t, 1, st.Stops)
}

func TestEngineQueryTimeoutPublishesAbort(t *testing.T) {
	e, _, log, clk := newTestEngine(t)
	e.Feed([]byte("debug>"))

	_, err := e.Evaluate("slow")
	require.NoError(t, err)
	assert.Equal(t, "slow", e.Status().Pending)

	clk.Add(debugger.DefaultQueryTimeout)
	e.Tick()

	ev, ok := log.last(domain.EventQueryAborted)
	require.True(t, ok)
	assert.Equal(t, "slow", ev.Expression)
	assert.Equal(t, debugger.ReasonTimeout, ev.Reason)
	assert.Empty(t, e.Status().Pending)
}

func TestEngineCloseOnce(t *testing.T) {
	e, _, log, clk := newTestEngine(t)
	e.Feed([]byte(breakTranscript))
	_, err := e.Evaluate("x")
	require.NoError(t, err)
	clk.Add(2 * time.Second)

	e.Close(EndEOF)
	e.Close(EndEOF)

	end, ok := log.last(domain.EventSessionEnd)
	require.True(t, ok)
	assert.Equal(t, EndEOF, end.Reason)
	require.NotNil(t, end.Summary)
	assert.Equal(t, 3, end.Summary.Lines)
	assert.Equal(t, 1, end.Summary.QueriesStarted)
	assert.Equal(t, 1, end.Summary.QueriesAborted)
	assert.Equal(t, 2, end.Summary.DurationSeconds)

	n := 0
	for _, ev := range log.events {
		if ev.Type == domain.EventSessionEnd {
			n++
		}
	}
	assert.Equal(t, 1, n)

	// Nothing is published after close.
	before := len(log.events)
	e.Feed([]byte("late\n"))
	assert.Len(t, log.events, before)
}

type hostRecorder struct{ attached, detached int }

func (h *hostRecorder) Attach(debugger.Control) { h.attached++ }
func (h *hostRecorder) Detach(debugger.Control) { h.detached++ }

func TestEngineForwardsToHost(t *testing.T) {
	host := &hostRecorder{}
	e := NewEngine(&bytes.Buffer{}, "test", Options{Host: host}, nil)

	e.Feed([]byte("debug>"))
	e.Feed([]byte("\n>"))

	assert.Equal(t, len(debugger.Controls), host.attached)
	assert.Equal(t, len(debugger.Controls), host.detached)
	assert.NotEmpty(t, e.ID())
}

func TestEngineMarksLineAfterPromptRedraw(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"carriage return", []string{"\r\n>", "\r       7 x = x + 1\r\n        ^\r\ndebug>"}},
		{"backspace", []string{"\r\n>", "\x08\x1b[J       7 x = x + 1\r\n        ^\r\ndebug>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _, _ := newTestEngine(t)
			e.Start()
			for _, c := range tt.chunks {
				e.Feed([]byte(c))
			}

			st := e.Status()
			assert.Equal(t, "debugging", st.Mode)
			require.NotNil(t, st.Line)
			assert.Equal(t, 6, *st.Line)
		})
	}
}
