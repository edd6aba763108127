package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(buf)
	var m map[string]interface{}
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestWriteEventContractFields(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteEvent(domain.NewMarkerEvent("s-1", 6, at)))
	require.NoError(t, w.WriteEvent(domain.NewValueEvent("s-1", "obj", "{a:<1>}", at)))

	m := decodeLine(t, buf)
	require.Equal(t, "marker", m["type"])
	require.EqualValues(t, 1, m["schemaVersion"])
	require.Equal(t, "s-1", m["session_id"])
	require.EqualValues(t, 6, m["line"])
	require.Equal(t, "2026-03-01T12:00:00Z", m["timestamp"])

	m = decodeLine(t, buf)
	require.Equal(t, "value", m["type"])
	require.Equal(t, "{a:<1>}", m["value"], "html is not escaped")
	require.Equal(t, "obj = {a:<1>}", m["tooltip"])
}

func TestClearedMarkerOmitsLine(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewNDJSONWriter(buf).WriteEvent(domain.NewMarkerEvent("s", -1, at)))
	m := decodeLine(t, buf)
	_, ok := m["line"]
	assert.False(t, ok)
}

func TestWriteErrorAndCutoff(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteError("CONNECT_FAILED", "dial failed", "check the port"))
	require.NoError(t, w.WriteCutoff("max_events", "s-2", 10))

	m := decodeLine(t, buf)
	require.Equal(t, "error", m["type"])
	require.Equal(t, "CONNECT_FAILED", m["code"])
	require.Equal(t, "check the port", m["hint"])

	m = decodeLine(t, buf)
	require.Equal(t, "cutoff_reached", m["type"])
	require.Equal(t, "max_events", m["reason"])
	require.EqualValues(t, 10, m["events"])
}

func TestTextWriterFormats(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)

	events := []domain.Event{
		domain.NewSessionReady("s", "tcp://h:23", at),
		domain.NewModeEvent("s", domain.ModeDebugging, at),
		domain.NewMarkerEvent("s", 6, at),
		domain.NewLineEvent("s", "hidden", at),
		domain.NewCommandEvent("s", "next", at),
		domain.NewValueEvent("s", "x", "42", at),
		domain.NewQueryAbortedEvent("s", "y", "timeout", at),
		domain.NewModeEvent("s", domain.ModeNormal, at),
	}
	for _, ev := range events {
		require.NoError(t, w.WriteEvent(ev))
	}

	out := buf.String()
	assert.Contains(t, out, "session s on tcp://h:23")
	assert.Contains(t, out, "paused at debug prompt")
	assert.Contains(t, out, "→ line 7")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "$ next")
	assert.Contains(t, out, "x = 42")
	assert.Contains(t, out, "✗ y (timeout)")
	assert.Contains(t, out, "▶ running")
	assert.NotContains(t, out, "\x1b[", "no colors when not a terminal")

	buf.Reset()
	require.NoError(t, NewTextWriter(buf, true).WriteEvent(domain.NewLineEvent("s", "shown", at)))
	assert.Equal(t, "│ shown\n", buf.String())

	buf.Reset()
	require.NoError(t, w.WriteError("X", "boom", "retry"))
	assert.Equal(t, "Error [X]: boom (hint: retry)\n", buf.String())
}

func TestSummaryTable(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteSummaryTable(buf, domain.SessionSummary{Lines: 12, QueriesResolved: 3}))
	out := buf.String()
	assert.Contains(t, out, "Queries resolved")
	assert.Contains(t, out, "12")
}

func TestControlsTable(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteControlsTable(buf, debugger.Controls))
	for _, c := range debugger.Controls {
		assert.Contains(t, buf.String(), c.Command)
	}
}

func TestWatchStoreRecord(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))

	assert.True(t, store.Record("x", "1"))
	assert.False(t, store.Record("x", "2"))
	assert.Equal(t, 1, store.Count())

	w := store.Get("x")
	require.NotNil(t, w)
	assert.Equal(t, "2", w.LastValue)
	assert.Equal(t, 2, w.Evaluations)
	assert.False(t, w.FirstSeen.IsZero())
	assert.Nil(t, store.Get("nope"))
	assert.False(t, store.IsKnown("nope"))

	store.Clear()
	assert.Equal(t, 0, store.Count())
}

func TestWatchStoreOrdering(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))
	clock := at
	store.now = func() time.Time { return clock }

	store.Record("a", "1")
	clock = clock.Add(time.Second)
	store.Record("b", "2")

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Expression)
}

func TestWatchStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "watches.json")
	store := NewWatchStore(path)
	store.Record("arr", "[1,2]")
	store.Record("obj", "{}")
	require.NoError(t, store.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file watchesFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, 1, file.Version)
	assert.Len(t, file.Watches, 2)

	store2 := NewWatchStore(path)
	assert.Equal(t, 2, store2.Count())
	assert.Equal(t, "[1,2]", store2.Get("arr").LastValue)
}

func TestWatchStoreLoadNonexistent(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, store.Load())
	assert.Equal(t, 0, store.Count())
}

func TestWatchStoreConcurrency(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Record("counter", strings.Repeat("x", j%3))
				store.IsKnown("counter")
				store.Get("counter")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, store.Get("counter").Evaluations)
}
