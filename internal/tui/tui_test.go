package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

type fakeSession struct {
	mu        sync.Mutex
	events    chan domain.Event
	hovers    []debugger.Hover
	activated []string
	sent      []string
	err       error
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan domain.Event, 16)}
}

func (f *fakeSession) Subscribe(int) (<-chan domain.Event, func()) {
	return f.events, func() {}
}

func (f *fakeSession) Hover(_ context.Context, h debugger.Hover) (*debugger.Query, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hovers = append(f.hovers, h)
	return nil, f.err
}

func (f *fakeSession) Activate(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, name)
	return f.err
}

func (f *fakeSession) Send(_ context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, line)
	return f.err
}

var testSource = []string{
	"var total = 0;",
	"for (var i = 0; i < 3; i++) {",
	"  total = total + items.length;",
	"}",
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (*Model, *fakeSession) {
	t.Helper()
	sess := newFakeSession()
	m := New(context.Background(), sess, "app.js", testSource)
	t.Cleanup(m.Close)
	return m, sess
}

func debugAt(t *testing.T, m *Model, line int) {
	t.Helper()
	now := time.Now()
	m.Update(eventMsg(domain.NewModeEvent("s", domain.ModeDebugging, now)))
	m.Update(eventMsg(domain.NewMarkerEvent("s", line, now)))
}

func TestTokenAt(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		col   int
		text  string
		class debugger.TokenClass
		ok    bool
	}{
		{"global", "total = total + 1", 9, "total", debugger.ClassVariable, true},
		{"declared local", "var count = 0", 5, "count", debugger.ClassLocal, true},
		{"let local", "let x = y", 4, "x", debugger.ClassLocal, true},
		{"property", "items.length", 8, "length", debugger.ClassProperty, true},
		{"keyword", "return value", 2, "return", debugger.ClassKeyword, true},
		{"start of word", "foo(bar)", 4, "bar", debugger.ClassVariable, true},
		{"punctuation", "foo(bar)", 3, "", "", false},
		{"number", "x = 42", 4, "", "", false},
		{"out of range", "x", 5, "", "", false},
		{"dollar ident", "$el.text", 1, "$el", debugger.ClassVariable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, ok := TokenAt(tt.line, tt.col)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.text, tok.Text)
				assert.Equal(t, tt.class, tok.Class)
			}
		})
	}
}

func TestModel_MarkerMovesCursor(t *testing.T) {
	m, _ := newTestModel(t)
	debugAt(t, m, 2)

	assert.True(t, m.debugging)
	assert.Equal(t, 2, m.marker)
	assert.Equal(t, 2, m.line)
	assert.Contains(t, m.View(), "→")

	m.Update(eventMsg(domain.NewMarkerEvent("s", -1, time.Now())))
	assert.Equal(t, -1, m.marker)
}

func TestModel_CursorMovementClamps(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.line)

	for i := 0; i < 10; i++ {
		m.Update(runes("j"))
	}
	assert.Equal(t, len(testSource)-1, m.line)

	for i := 0; i < 10; i++ {
		m.Update(runes("l"))
	}
	assert.Equal(t, 0, m.col, "last line has a single rune")
}

func TestModel_HoverRevealsTooltip(t *testing.T) {
	m, sess := newTestModel(t)
	debugAt(t, m, 2)
	for i := 0; i < 3; i++ {
		m.Update(runes("l"))
	}

	_, cmd := m.Update(runes("p"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	require.Len(t, sess.hovers, 1)
	h := sess.hovers[0]
	assert.Equal(t, "total", h.Text)
	assert.Equal(t, debugger.ClassVariable, h.Class)
	assert.True(t, h.Alive())

	h.Reveal("total = 3")
	msg := <-m.reveals
	m.Update(msg)
	assert.Equal(t, "total = 3", m.tooltip)
	assert.Contains(t, m.View(), "total = 3")
}

func TestModel_MovingAwayDropsReply(t *testing.T) {
	m, sess := newTestModel(t)
	debugAt(t, m, 2)
	for i := 0; i < 3; i++ {
		m.Update(runes("l"))
	}
	_, cmd := m.Update(runes("p"))
	cmd()
	h := sess.hovers[0]

	m.Update(runes("k"))
	assert.False(t, h.Alive())

	h.Reveal("total = 3")
	m.Update(<-m.reveals)
	assert.Empty(t, m.tooltip)
}

func TestModel_HoverIgnoresNonIdentifiers(t *testing.T) {
	m, sess := newTestModel(t)
	debugAt(t, m, 0)

	_, cmd := m.Update(runes("p"))
	assert.Nil(t, cmd)
	assert.Empty(t, sess.hovers)
	assert.Equal(t, "no identifier under cursor", m.status)
}

func TestModel_ControlsOnlyWhileDebugging(t *testing.T) {
	m, sess := newTestModel(t)

	_, cmd := m.Update(runes("n"))
	assert.Nil(t, cmd)

	debugAt(t, m, 1)
	assert.Contains(t, m.View(), "Step Over")

	_, cmd = m.Update(runes("n"))
	require.NotNil(t, cmd)
	cmd()
	_, cmd = m.Update(runes("q"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"next", "quit"}, sess.activated)

	m.Update(eventMsg(domain.NewModeEvent("s", domain.ModeNormal, time.Now())))
	assert.NotContains(t, m.View(), "Step Over")
}

func TestModel_CommandInput(t *testing.T) {
	m, sess := newTestModel(t)

	m.Update(runes(":"))
	require.True(t, m.input.Focused())

	// Typed keys go to the input, not to the controls.
	m.Update(runes("c"))
	m.Update(runes("o"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	assert.False(t, m.input.Focused())
	assert.Equal(t, []string{"co"}, sess.sent)
	assert.Empty(t, sess.activated)
}

func TestModel_CommandInputEscape(t *testing.T) {
	m, sess := newTestModel(t)

	m.Update(runes(":"))
	m.Update(runes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.input.Focused())
	assert.Empty(t, m.input.Value())
	assert.Empty(t, sess.sent)
}

func TestModel_TerminalPane(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Now()

	m.Update(eventMsg(domain.NewLineEvent("s", "break in app.js:3", now)))
	m.Update(eventMsg(domain.NewCommandEvent("s", "p total", now)))

	assert.Equal(t, []string{"break in app.js:3", "› p total"}, m.terminal)
	assert.Contains(t, m.View(), "break in app.js:3")
}

func TestModel_QueryResultsInStatus(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Now()

	m.Update(eventMsg(domain.NewValueEvent("s", "x", "1", now)))
	assert.Equal(t, domain.Tooltip("x", "1"), m.status)

	m.Update(eventMsg(domain.NewQueryAbortedEvent("s", "y", debugger.ReasonTimeout, now)))
	assert.Equal(t, "y: "+debugger.ReasonTimeout, m.status)
}

func TestModel_SessionEnd(t *testing.T) {
	m, sess := newTestModel(t)
	debugAt(t, m, 1)

	close(sess.events)
	msg := m.waitForEvent()()
	assert.Equal(t, closedMsg{}, msg)

	m.Update(msg)
	assert.True(t, m.ended)
	assert.False(t, m.debugging)
	assert.Contains(t, m.View(), "[ended]")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
