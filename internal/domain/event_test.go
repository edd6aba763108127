package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

func TestNewEventStampsCommonFields(t *testing.T) {
	ev := NewLineEvent("s1", "hello", at)

	assert.Equal(t, EventLine, ev.Type)
	assert.Equal(t, SchemaVersion, ev.SchemaVersion)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "2026-03-01T11:00:00Z", ev.Timestamp)
	assert.Equal(t, "hello", ev.Text)
}

func TestMarkerEvent(t *testing.T) {
	ev := NewMarkerEvent("s1", 0, at)
	line, ok := ev.Marker()
	require.True(t, ok)
	assert.Equal(t, 0, line)

	cleared := NewMarkerEvent("s1", -1, at)
	_, ok = cleared.Marker()
	assert.False(t, ok)

	data, err := json.Marshal(cleared)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"line"`)
}

func TestValueEventTooltip(t *testing.T) {
	ev := NewValueEvent("s1", "items", "[1, 2]", at)

	assert.Equal(t, "items", ev.Expression)
	assert.Equal(t, "[1, 2]", ev.Value)
	assert.Equal(t, "items = [1, 2]", ev.Tooltip)
	assert.Equal(t, Tooltip("items", "[1, 2]"), ev.Tooltip)
}

func TestQueryAbortedEvent(t *testing.T) {
	ev := NewQueryAbortedEvent("s1", "missing", "eval_error", at)

	assert.Equal(t, EventQueryAborted, ev.Type)
	assert.Equal(t, "missing", ev.Expression)
	assert.Equal(t, "eval_error", ev.Reason)
	assert.Empty(t, ev.Value)
}

func TestSessionEvents(t *testing.T) {
	ready := NewSessionReady("s1", "tcp://board:23", at)
	assert.Equal(t, EventReady, ready.Type)
	assert.Equal(t, "tcp://board:23", ready.Transport)
	assert.Equal(t, "normal", ready.Mode)

	end := NewSessionEnd("s1", "eof", SessionSummary{Lines: 3, QueriesResolved: 1}, at)
	require.NotNil(t, end.Summary)
	assert.Equal(t, 3, end.Summary.Lines)

	data, err := json.Marshal(end)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queries_resolved":1`)
	assert.Contains(t, string(data), `"reason":"eof"`)
}

func TestMode(t *testing.T) {
	assert.Equal(t, "normal", ModeNormal.String())
	assert.Equal(t, "debugging", ModeDebugging.String())
	assert.True(t, ModeDebugging.Debugging())
	assert.False(t, ModeNormal.Debugging())

	assert.Equal(t, ModeDebugging, ParseMode("debugging"))
	assert.Equal(t, ModeNormal, ParseMode("normal"))
	assert.Equal(t, ModeNormal, ParseMode("paused"))

	ev := NewModeEvent("s1", ModeDebugging, at)
	assert.Equal(t, "debugging", ev.Mode)
}

func TestEventTypesAreUnique(t *testing.T) {
	seen := map[EventType]bool{}
	for _, typ := range EventTypes {
		assert.False(t, seen[typ], typ)
		seen[typ] = true
	}
	assert.Len(t, seen, 9)
}
