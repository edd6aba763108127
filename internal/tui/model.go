package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

// terminalHistory bounds the terminal pane scrollback.
const terminalHistory = 500

// Session is the part of a debug session the TUI drives.
type Session interface {
	Subscribe(buffer int) (<-chan domain.Event, func())
	Hover(ctx context.Context, h debugger.Hover) (*debugger.Query, error)
	Activate(ctx context.Context, name string) error
	Send(ctx context.Context, line string) error
}

type eventMsg domain.Event

type closedMsg struct{}

// revealMsg carries a tooltip for the hover started at generation gen.
type revealMsg struct {
	gen  uint64
	text string
}

type errMsg struct{ err error }

// Model is the TUI application model.
type Model struct {
	ctx    context.Context
	sess   Session
	events <-chan domain.Event
	cancel func()

	source     []string
	sourceName string
	line, col  int
	marker     int
	debugging  bool

	terminal []string
	term     viewport.Model
	input    textinput.Model
	keys     keyMap
	help     help.Model

	tooltip  string
	hoverGen *atomic.Uint64
	reveals  chan revealMsg

	status string
	ended  bool
	width  int
	height int
}

// New creates a model over sess showing source. It subscribes to the
// session immediately so no event published after New is missed.
func New(ctx context.Context, sess Session, sourceName string, source []string) *Model {
	events, cancel := sess.Subscribe(256)
	input := textinput.New()
	input.Prompt = ": "
	input.Placeholder = "command line"
	return &Model{
		ctx:        ctx,
		sess:       sess,
		events:     events,
		cancel:     cancel,
		source:     source,
		sourceName: sourceName,
		marker:     -1,
		term:       viewport.New(80, 8),
		input:      input,
		keys:       defaultKeyMap(),
		help:       help.New(),
		hoverGen:   &atomic.Uint64{},
		reveals:    make(chan revealMsg, 1),
		width:      80,
		height:     24,
	}
}

// Close stops the event subscription.
func (m *Model) Close() {
	m.cancel()
}

// Init starts listening for session events and tooltips.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForReveal())
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *Model) waitForReveal() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-m.reveals:
			return r
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case eventMsg:
		m.handleEvent(domain.Event(msg))
		return m, m.waitForEvent()

	case closedMsg:
		m.ended = true
		m.debugging = false
		return m, nil

	case revealMsg:
		if msg.gen == m.hoverGen.Load() {
			m.tooltip = msg.text
		}
		return m, m.waitForReveal()

	case errMsg:
		m.status = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.term, cmd = m.term.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return tea.Quit
	}

	if m.input.Focused() {
		switch msg.String() {
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			m.input.Blur()
			m.resize()
			return m.send(line)
		case "esc":
			m.input.Reset()
			m.input.Blur()
			m.resize()
			return nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.Print):
		return m.hover()
	case key.Matches(msg, m.keys.Command):
		cmd := m.input.Focus()
		m.resize()
		return cmd
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	default:
		if !m.debugging {
			return nil
		}
		for _, ck := range m.keys.controlKeys() {
			if key.Matches(msg, ck.binding) {
				return m.activate(ck.control)
			}
		}
	}
	return nil
}

func (m *Model) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventReady:
		m.status = fmt.Sprintf("connected via %s", ev.Transport)
	case domain.EventMode:
		m.debugging = ev.Mode == domain.ModeDebugging.String()
		if !m.debugging {
			m.invalidateHover()
		}
		m.resize()
	case domain.EventMarker:
		line, ok := ev.Marker()
		if !ok {
			m.marker = -1
			return
		}
		m.marker = line
		if line < len(m.source) {
			m.line, m.col = line, 0
			m.invalidateHover()
		}
	case domain.EventLine, domain.EventPrompt:
		m.appendTerminal(ev.Text)
	case domain.EventCommand:
		m.appendTerminal("› " + ev.Text)
	case domain.EventValue:
		m.status = ev.Tooltip
	case domain.EventQueryAborted:
		m.status = fmt.Sprintf("%s: %s", ev.Expression, ev.Reason)
	case domain.EventSessionEnd:
		m.ended = true
		m.debugging = false
		m.status = "session ended: " + ev.Reason
	}
}

func (m *Model) appendTerminal(text string) {
	m.terminal = append(m.terminal, text)
	if n := len(m.terminal) - terminalHistory; n > 0 {
		m.terminal = m.terminal[n:]
	}
	m.term.SetContent(strings.Join(m.terminal, "\n"))
	m.term.GotoBottom()
}

// moveCursor moves the source cursor. Any move hides the tooltip and
// discards replies for earlier hovers.
func (m *Model) moveCursor(dLine, dCol int) {
	if len(m.source) == 0 {
		return
	}
	m.line = clamp(m.line+dLine, 0, len(m.source)-1)
	width := len([]rune(m.source[m.line]))
	m.col = clamp(m.col+dCol, 0, max(width-1, 0))
	m.invalidateHover()
}

func (m *Model) invalidateHover() {
	m.hoverGen.Add(1)
	m.tooltip = ""
}

// hover queries the identifier under the cursor.
func (m *Model) hover() tea.Cmd {
	if len(m.source) == 0 {
		return nil
	}
	tok, ok := TokenAt(m.source[m.line], m.col)
	if !ok || !tok.Class.Identifier() {
		m.status = "no identifier under cursor"
		return nil
	}

	gen := m.hoverGen.Add(1)
	m.tooltip = ""
	gens := m.hoverGen
	reveals := m.reveals
	h := debugger.Hover{
		Class: tok.Class,
		Text:  tok.Text,
		Alive: func() bool { return gens.Load() == gen },
		Reveal: func(text string) {
			select {
			case reveals <- revealMsg{gen: gen, text: text}:
			default:
			}
		},
	}
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		if _, err := sess.Hover(ctx, h); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) activate(control string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		if err := sess.Activate(ctx, control); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) send(line string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		if err := sess.Send(ctx, line); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) resize() {
	m.help.Width = m.width
	m.input.Width = max(m.width-4, 10)
	m.term.Width = m.width
	m.term.Height = max(m.height/3, 3)
}

// sourceHeight is what remains after the fixed panes.
func (m *Model) sourceHeight() int {
	used := 1 + m.term.Height + 1 + lipgloss.Height(m.help.View(m.keys))
	if m.debugging {
		used++
	}
	if m.input.Focused() {
		used++
	}
	if m.tooltip != "" {
		used += lipgloss.Height(TooltipStyle.Render(m.tooltip))
	}
	return max(m.height-used, 1)
}

// View renders STATUS | SOURCE | TOOLTIP | TERMINAL | CONTROLS | INPUT | HELP.
func (m *Model) View() string {
	parts := []string{m.statusView(), m.sourceView()}
	if m.tooltip != "" {
		parts = append(parts, TooltipStyle.Render(m.tooltip))
	}
	parts = append(parts, TerminalStyle.Render(m.term.View()))
	if m.debugging {
		parts = append(parts, m.controlsView())
	}
	if m.input.Focused() {
		parts = append(parts, m.input.View())
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) statusView() string {
	mode := domain.ModeNormal
	if m.debugging {
		mode = domain.ModeDebugging
	}
	left := fmt.Sprintf("%s  [%s]", m.sourceName, mode)
	if m.ended {
		left += "  [ended]"
	}
	if m.status != "" {
		left += "  " + m.status
	}
	return StatusBarStyle.Width(m.width).Render(left)
}

func (m *Model) sourceView() string {
	if len(m.source) == 0 {
		return MutedStyle.Render("no source loaded")
	}
	height := m.sourceHeight()
	start := clamp(m.line-height/2, 0, max(len(m.source)-height, 0))
	end := min(start+height, len(m.source))

	var b strings.Builder
	for i := start; i < end; i++ {
		gutter := "  "
		if i == m.marker {
			gutter = MarkerStyle.Render("→ ")
		}
		text := m.source[i]
		if i == m.line {
			text = m.highlightCursor(text)
		}
		fmt.Fprintf(&b, "%s%s %s", gutter, MutedStyle.Render(fmt.Sprintf("%4d", i+1)), text)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m *Model) highlightCursor(line string) string {
	runes := []rune(line)
	if len(runes) == 0 {
		return CursorStyle.Render(" ")
	}
	start, end := m.col, m.col+1
	if tok, ok := TokenAt(line, m.col); ok {
		start, end = tok.Start, tok.End
	}
	return string(runes[:start]) + CursorStyle.Render(string(runes[start:end])) + string(runes[end:])
}

func (m *Model) controlsView() string {
	var parts []string
	for _, c := range debugger.Controls {
		parts = append(parts, ControlStyle.Render(fmt.Sprintf("[%s] %s", c.Key, c.Title)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
