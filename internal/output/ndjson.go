// Package output renders session events for humans and machines.
package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vburojevic/termdbg/internal/domain"
)

// SchemaVersion is stamped on every record this package writes.
const SchemaVersion = domain.SchemaVersion

// EventWriter renders session events.
type EventWriter interface {
	WriteEvent(ev domain.Event) error
}

// ErrorOutput is the NDJSON error record.
type ErrorOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// Cutoff is written when a stream stops because a limit was reached.
type Cutoff struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id"`
	Reason        string `json:"reason"` // max_events, duration
	Events        int    `json:"events"`
}

// NDJSONWriter writes one JSON object per line.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer on w
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{enc: enc}
}

// Write encodes any value as one line
func (w *NDJSONWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteEvent writes a session event
func (w *NDJSONWriter) WriteEvent(ev domain.Event) error {
	return w.Write(ev)
}

// WriteError writes an error record
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	rec := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		rec.Hint = hint[0]
	}
	return w.Write(rec)
}

// WriteCutoff records why the stream stopped early
func (w *NDJSONWriter) WriteCutoff(reason, sessionID string, events int) error {
	return w.Write(Cutoff{
		Type:          "cutoff_reached",
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Reason:        reason,
		Events:        events,
	})
}
