package domain

import "time"

// SessionSummary contains statistics about a finished debug session
type SessionSummary struct {
	Lines           int `json:"lines"`
	Prompts         int `json:"prompts"`
	ModeChanges     int `json:"mode_changes"`
	Commands        int `json:"commands"`
	QueriesStarted  int `json:"queries_started"`
	QueriesResolved int `json:"queries_resolved"`
	QueriesAborted  int `json:"queries_aborted"`
	DurationSeconds int `json:"duration_seconds"`
}

// NewSessionReady creates the first event of every session stream
func NewSessionReady(sessionID, transport string, at time.Time) Event {
	ev := newEvent(EventReady, sessionID, at)
	ev.Transport = transport
	ev.Mode = ModeNormal.String()
	return ev
}

// NewSessionEnd creates the closing event with the session summary
func NewSessionEnd(sessionID, reason string, summary SessionSummary, at time.Time) Event {
	ev := newEvent(EventSessionEnd, sessionID, at)
	ev.Reason = reason
	ev.Summary = &summary
	return ev
}
