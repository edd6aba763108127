package domain

import "time"

// SchemaVersion is stamped on every event record.
const SchemaVersion = 1

// EventType names a record in the event stream.
type EventType string

const (
	EventReady        EventType = "ready"
	EventMode         EventType = "mode"
	EventMarker       EventType = "marker"
	EventLine         EventType = "line"
	EventPrompt       EventType = "prompt"
	EventCommand      EventType = "command"
	EventValue        EventType = "value"
	EventQueryAborted EventType = "query_aborted"
	EventSessionEnd   EventType = "session_end"
)

// EventTypes lists every event type in stream order of first appearance.
var EventTypes = []EventType{
	EventReady,
	EventMode,
	EventMarker,
	EventLine,
	EventPrompt,
	EventCommand,
	EventValue,
	EventQueryAborted,
	EventSessionEnd,
}

// Event is a single record of the session event stream. Only the fields
// relevant to Type are set.
type Event struct {
	Type          EventType       `json:"type"`
	SchemaVersion int             `json:"schemaVersion"`
	SessionID     string          `json:"session_id"`
	Timestamp     string          `json:"timestamp"`
	Transport     string          `json:"transport,omitempty"`  // ready
	Mode          string          `json:"mode,omitempty"`       // ready, mode
	Line          *int            `json:"line,omitempty"`       // marker: zero-based source line
	Text          string          `json:"text,omitempty"`       // line, prompt, command
	Expression    string          `json:"expression,omitempty"` // value, query_aborted
	Value         string          `json:"value,omitempty"`      // value
	Tooltip       string          `json:"tooltip,omitempty"`    // value
	Reason        string          `json:"reason,omitempty"`     // query_aborted, session_end
	Summary       *SessionSummary `json:"summary,omitempty"`    // session_end
}

func newEvent(t EventType, sessionID string, at time.Time) Event {
	return Event{
		Type:          t,
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Timestamp:     at.UTC().Format(time.RFC3339Nano),
	}
}

// NewModeEvent records a transition between normal and debugging mode
func NewModeEvent(sessionID string, mode Mode, at time.Time) Event {
	ev := newEvent(EventMode, sessionID, at)
	ev.Mode = mode.String()
	return ev
}

// NewMarkerEvent records the current source line. A negative line clears it.
func NewMarkerEvent(sessionID string, line int, at time.Time) Event {
	ev := newEvent(EventMarker, sessionID, at)
	if line >= 0 {
		ev.Line = &line
	}
	return ev
}

// NewLineEvent records a completed terminal line
func NewLineEvent(sessionID, text string, at time.Time) Event {
	ev := newEvent(EventLine, sessionID, at)
	ev.Text = text
	return ev
}

// NewPromptEvent records a detected prompt
func NewPromptEvent(sessionID, prompt string, at time.Time) Event {
	ev := newEvent(EventPrompt, sessionID, at)
	ev.Text = prompt
	return ev
}

// NewCommandEvent records a command line written to the runtime
func NewCommandEvent(sessionID, command string, at time.Time) Event {
	ev := newEvent(EventCommand, sessionID, at)
	ev.Text = command
	return ev
}

// NewValueEvent records a resolved value query
func NewValueEvent(sessionID, expr, value string, at time.Time) Event {
	ev := newEvent(EventValue, sessionID, at)
	ev.Expression = expr
	ev.Value = value
	ev.Tooltip = Tooltip(expr, value)
	return ev
}

// NewQueryAbortedEvent records a value query that ended without a value
func NewQueryAbortedEvent(sessionID, expr, reason string, at time.Time) Event {
	ev := newEvent(EventQueryAborted, sessionID, at)
	ev.Expression = expr
	ev.Reason = reason
	return ev
}

// Marker returns the marked line of a marker event.
func (e Event) Marker() (int, bool) {
	if e.Line == nil {
		return 0, false
	}
	return *e.Line, true
}

// Tooltip formats a resolved value the way hover tooltips show it.
func Tooltip(expr, value string) string {
	return expr + " = " + value
}
