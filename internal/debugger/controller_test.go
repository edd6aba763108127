package debugger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookback holds completed lines, oldest first.
type fakeLookback []string

func (f *fakeLookback) Line(n int) (string, bool) {
	if n < 1 || n > len(*f) {
		return "", false
	}
	return (*f)[len(*f)-n], true
}

type fakeEditor struct {
	marks map[int]int
	calls []string
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{marks: map[int]int{}}
}

func (e *fakeEditor) MarkLine(line int, tag string) {
	e.marks[line]++
	e.calls = append(e.calls, "mark")
}

func (e *fakeEditor) UnmarkLine(line int, tag string) {
	e.marks[line]--
	if e.marks[line] <= 0 {
		delete(e.marks, line)
	}
	e.calls = append(e.calls, "unmark")
}

func (e *fakeEditor) active() []int {
	var out []int
	for line := range e.marks {
		out = append(out, line)
	}
	return out
}

type fakeHost struct {
	attached map[string]int
	detached map[string]int
}

func newFakeHost() *fakeHost {
	return &fakeHost{attached: map[string]int{}, detached: map[string]int{}}
}

func (h *fakeHost) Attach(c Control) { h.attached[c.Command]++ }
func (h *fakeHost) Detach(c Control) { h.detached[c.Command]++ }

type recorder struct {
	prompts []string
	lines   []string
	hovers  []string
}

func (r *recorder) HandlePrompt(p string) { r.prompts = append(r.prompts, p) }
func (r *recorder) HandleLine(l string)   { r.lines = append(r.lines, l) }
func (r *recorder) HandleHover(h Hover)   { r.hovers = append(r.hovers, h.Text) }

type harness struct {
	ctl    *Controller
	out    *bytes.Buffer
	editor *fakeEditor
	host   *fakeHost
	next   *recorder
	clock  *clock.Mock
	modes  []bool
	done   []*Query
	lb     fakeLookback
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out:    &bytes.Buffer{},
		editor: newFakeEditor(),
		host:   newFakeHost(),
		next:   &recorder{},
		clock:  clock.NewMock(),
	}
	h.ctl = New(Options{
		Writer: h.out,
		Editor: h.editor,
		Host:   h.host,
		Next:   h.next,
		Clock:  h.clock,
		Hooks: Hooks{
			OnQueryDone: func(q *Query) { h.done = append(h.done, q) },
		},
	})
	h.ctl.SetLookback(&h.lb)
	h.ctl.AddModeListener(func(debugging bool) { h.modes = append(h.modes, debugging) })
	return h
}

func (h *harness) line(s string) {
	h.lb = append(h.lb, s)
	h.ctl.HandleLine(s)
}

func (h *harness) enterDebug() {
	h.ctl.HandlePrompt("debug>")
}

func variable(name string) Hover {
	return Hover{Class: ClassVariable, Text: name}
}

func TestMarkerNoneWhenNormal(t *testing.T) {
	h := newHarness(t)
	h.lb = fakeLookback{"       3 foo();", "         ^"}

	check := func() {
		if !h.ctl.Mode().Debugging() {
			_, ok := h.ctl.Marker()
			assert.False(t, ok, "marker must be none in normal mode")
			assert.Empty(t, h.editor.active())
		}
	}

	for _, p := range []string{">", "debug>", "debug>", ">", "debug>", "other>", ">", "debug>"} {
		h.ctl.HandlePrompt(p)
		check()
	}

	line, ok := h.ctl.Marker()
	require.True(t, ok)
	assert.Equal(t, 2, line)
}

func TestEnterDebuggingMarksAnnotatedLine(t *testing.T) {
	h := newHarness(t)
	h.lb = fakeLookback{"       7 x = x + 1", "        ^"}

	h.enterDebug()

	line, ok := h.ctl.Marker()
	require.True(t, ok)
	assert.Equal(t, 6, line)
	assert.Equal(t, []int{6}, h.editor.active())
	assert.Equal(t, []bool{true}, h.modes)
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		code string
		want int
		ok   bool
	}{
		{"       7 x = x + 1", 7, true},
		{"   12 if (a) {", 12, true},
		{"     123456789", 123, true},
		{"12345678", 12345678, true},
		{"  abc   x = 1", 0, false},
		{"  -3 x", 0, false},
		{"       0 x", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			n, ok := ParseAnnotation(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestEnterDebuggingReadsLeadingDigits(t *testing.T) {
	h := newHarness(t)
	h.lb = fakeLookback{"   12 if (a) {", "      ^"}

	h.enterDebug()

	line, ok := h.ctl.Marker()
	require.True(t, ok)
	assert.Equal(t, 11, line)
}

func TestAnnotationParseFailuresSkipMarking(t *testing.T) {
	tests := []struct {
		name string
		lb   fakeLookback
	}{
		{"no caret", fakeLookback{"       7 x = x + 1", "        x"}},
		{"caret at column zero", fakeLookback{"       7 x = x + 1", "^"}},
		{"non numeric field", fakeLookback{"  abc   x = x + 1", "        ^"}},
		{"blank field", fakeLookback{"         x = 1", "        ^"}},
		{"zero line", fakeLookback{"       0 x = 1", "        ^"}},
		{"single line", fakeLookback{"        ^"}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.lb = tt.lb
			h.enterDebug()
			assert.True(t, h.ctl.Mode().Debugging())
			_, ok := h.ctl.Marker()
			assert.False(t, ok)
		})
	}
}

func TestQueryResolvesSingleLine(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	var tooltip string
	q, err := h.ctl.Hover(Hover{Class: ClassVariable, Text: "foo", Reveal: func(s string) { tooltip = s }})
	require.NoError(t, err)
	assert.Equal(t, "p foo\n", h.out.String())

	h.line("=42")

	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, "42", v)
	assert.Equal(t, "foo = 42", tooltip)
	assert.Nil(t, h.ctl.Pending())
	require.Len(t, h.done, 1)

	got, err := q.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestQueryAccumulatesUntilBalanced(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("bar"))
	require.NoError(t, err)

	h.line("={")
	_, ok := q.Value()
	assert.False(t, ok, "balance 1 keeps accumulating")
	assert.NotNil(t, h.ctl.Pending())

	h.line("a:1}")
	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, "{a:1}", v)

	// Later lines are not consumed by the finished query.
	h.line("=99")
	v, _ = q.Value()
	assert.Equal(t, "{a:1}", v)
	assert.Len(t, h.done, 1)
}

func TestQueryAbortsOnPromptLine(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	revealed := false
	q, err := h.ctl.Hover(Hover{Class: ClassVariable, Text: "foo", Reveal: func(string) { revealed = true }})
	require.NoError(t, err)

	h.line("debug>")

	select {
	case <-q.Done():
	default:
		t.Fatal("query should be done")
	}
	_, ok := q.Value()
	assert.False(t, ok)
	assert.Equal(t, ReasonPrompt, q.Reason())
	assert.False(t, revealed)

	_, err = q.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrQueryAborted))

	// A fresh hover starts a new query.
	q2, err := h.ctl.Hover(variable("foo"))
	require.NoError(t, err)
	h.line("=1")
	v, ok := q2.Value()
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestQuerySkipsOwnEcho(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("foo"))
	require.NoError(t, err)

	h.line("debug>p foo")
	h.line("")
	h.line("=[1,")
	h.line("2]")

	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, "[1,2]", v)
}

func TestQueryAbortsOnEvaluationError(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("nope"))
	require.NoError(t, err)

	h.line(`Uncaught ReferenceError: "nope" is not defined`)

	_, ok := q.Value()
	assert.False(t, ok)
	assert.Equal(t, ReasonEvalError, q.Reason())
	assert.Nil(t, h.ctl.Pending())
}

func TestLeavingDebuggingDiscardsQuery(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("foo"))
	require.NoError(t, err)

	h.ctl.HandlePrompt(">")
	h.line("=42")
	h.line("=43")

	_, ok := q.Value()
	assert.False(t, ok)
	assert.Equal(t, ReasonModeExit, q.Reason())
	assert.Nil(t, h.ctl.Pending())
	assert.Equal(t, []bool{true, false}, h.modes)
}

func TestEnterTwiceAttachesOnce(t *testing.T) {
	h := newHarness(t)

	h.enterDebug()
	h.enterDebug()

	for _, c := range Controls {
		assert.Equal(t, 1, h.host.attached[c.Command], c.Command)
	}
	assert.Equal(t, []bool{true}, h.modes)

	h.ctl.HandlePrompt(">")
	h.ctl.HandlePrompt(">")
	for _, c := range Controls {
		assert.Equal(t, 1, h.host.detached[c.Command], c.Command)
	}
	assert.Equal(t, []bool{true, false}, h.modes)
}

func TestMarkerRoundTrip(t *testing.T) {
	editor := newFakeEditor()
	m := NewMarker(editor)

	m.Set(4)
	m.Clear()
	m.Set(4)

	assert.Equal(t, []int{4}, editor.active())
	assert.Equal(t, 1, editor.marks[4])
	assert.Equal(t, []string{"mark", "unmark", "mark"}, editor.calls)

	m.Set(9)
	assert.Equal(t, []int{9}, editor.active())
	line, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 9, line)
}

func TestLineClearsMarkerWithoutQuery(t *testing.T) {
	h := newHarness(t)
	h.lb = fakeLookback{"       2 a();", "         ^"}
	h.enterDebug()
	_, ok := h.ctl.Marker()
	require.True(t, ok)

	h.line("Stepping...")
	_, ok = h.ctl.Marker()
	assert.False(t, ok)
	assert.Empty(t, h.editor.active())
}

func TestConcurrentQueryRejected(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	_, err := h.ctl.Hover(variable("a"))
	require.NoError(t, err)

	_, err = h.ctl.Hover(variable("b"))
	assert.ErrorIs(t, err, ErrQueryBusy)
	assert.Equal(t, "p a\n", h.out.String())
}

func TestHoverRules(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctl.Hover(variable("a"))
	assert.ErrorIs(t, err, ErrNotDebugging)

	h.enterDebug()

	_, err = h.ctl.Hover(Hover{Class: ClassKeyword, Text: "return"})
	assert.ErrorIs(t, err, ErrNotIdentifier)

	_, err = h.ctl.Hover(Hover{Class: ClassProperty, Text: "length"})
	assert.ErrorIs(t, err, ErrNotIdentifier)

	_, err = h.ctl.Hover(variable("  "))
	assert.ErrorIs(t, err, ErrNotIdentifier)

	_, err = h.ctl.Hover(Hover{Class: ClassLocal, Text: "i"})
	assert.NoError(t, err)
	assert.Empty(t, h.next.hovers, "Hover does not forward")
}

func TestRevealSkippedWhenHoverNotAlive(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	revealed := false
	_, err := h.ctl.Hover(Hover{
		Class:  ClassVariable,
		Text:   "x",
		Alive:  func() bool { return false },
		Reveal: func(string) { revealed = true },
	})
	require.NoError(t, err)

	h.line("=1")
	assert.False(t, revealed)
}

func TestQueryTimeout(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("slow"))
	require.NoError(t, err)

	h.clock.Add(DefaultQueryTimeout - time.Millisecond)
	h.ctl.Tick()
	assert.NotNil(t, h.ctl.Pending())

	h.clock.Add(time.Millisecond)
	h.ctl.Tick()
	assert.Nil(t, h.ctl.Pending())
	assert.Equal(t, ReasonTimeout, q.Reason())

	// A late reply is treated as an ordinary line.
	h.line("=5")
	_, ok := q.Value()
	assert.False(t, ok)
}

func TestEventsPassThrough(t *testing.T) {
	h := newHarness(t)

	h.ctl.HandlePrompt(">")
	h.line("hello")
	h.enterDebug()
	_, _ = h.ctl.Hover(variable("x"))
	h.line("=1")
	h.ctl.HandleHover(variable("y"))
	h.ctl.HandleHover(Hover{Class: ClassKeyword, Text: "var"})

	assert.Equal(t, []string{">", "debug>"}, h.next.prompts)
	assert.Equal(t, []string{"hello", "=1"}, h.next.lines)
	assert.Equal(t, []string{"y", "var"}, h.next.hovers)
}

func TestActivateControls(t *testing.T) {
	h := newHarness(t)

	err := h.ctl.Activate("next")
	assert.ErrorIs(t, err, ErrNotDebugging)

	h.enterDebug()
	for _, name := range []string{"continue", "debug-stop", "s", "over", "finish"} {
		require.NoError(t, h.ctl.Activate(name))
	}
	assert.Equal(t, "continue\nquit\nstep\nnext\nfinish\n", h.out.String())

	err = h.ctl.Activate("rewind")
	assert.ErrorIs(t, err, ErrUnknownControl)
}

func TestResetAbortsQuery(t *testing.T) {
	h := newHarness(t)
	h.enterDebug()

	q, err := h.ctl.Hover(variable("x"))
	require.NoError(t, err)

	h.ctl.Reset(ReasonClosed)
	assert.Equal(t, ReasonClosed, q.Reason())
	assert.False(t, h.ctl.Mode().Debugging())
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestQueryWriteFailureLeavesNoPending(t *testing.T) {
	ctl := New(Options{Writer: failWriter{}})
	ctl.HandlePrompt("debug>")

	_, err := ctl.Query("x")
	require.Error(t, err)
	assert.Nil(t, ctl.Pending())
}

func TestBracketBalance(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"42", 0},
		{"{", 1},
		{"{a:[1,2],b:(3)}", 0},
		{"}", -1},
		{`")"`, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BracketBalance(tt.in), tt.in)
	}
}

func TestClassify(t *testing.T) {
	assert.True(t, Classify("debug>", DebugPrompt).Debugging())
	assert.False(t, Classify(">", DebugPrompt).Debugging())
	assert.False(t, Classify("debug> ", DebugPrompt).Debugging())
}
