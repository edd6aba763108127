package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/vburojevic/termdbg/internal/domain"
)

// TextWriter renders events as short human readable lines.
type TextWriter struct {
	w         io.Writer
	showLines bool
	debug     lipgloss.Style
	normal    lipgloss.Style
	marker    lipgloss.Style
	value     lipgloss.Style
	failure   lipgloss.Style
	dim       lipgloss.Style
}

// NewTextWriter creates a text writer. Terminal lines are included when
// showLines is set; colors are used only when w is a terminal.
func NewTextWriter(w io.Writer, showLines bool) *TextWriter {
	r := lipgloss.NewRenderer(w)
	plain := r.NewStyle()
	t := &TextWriter{
		w:         w,
		showLines: showLines,
		debug:     plain,
		normal:    plain,
		marker:    plain,
		value:     plain,
		failure:   plain,
		dim:       plain,
	}
	if IsTerminal(w) {
		t.debug = r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
		t.normal = r.NewStyle().Foreground(lipgloss.Color("10"))
		t.marker = r.NewStyle().Foreground(lipgloss.Color("14"))
		t.value = r.NewStyle().Foreground(lipgloss.Color("13"))
		t.failure = r.NewStyle().Foreground(lipgloss.Color("9"))
		t.dim = r.NewStyle().Faint(true)
	}
	return t
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteEvent renders ev. Events without a text form are skipped.
func (t *TextWriter) WriteEvent(ev domain.Event) error {
	line, ok := t.Format(ev)
	if !ok {
		return nil
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}

// Format returns the text form of ev.
func (t *TextWriter) Format(ev domain.Event) (string, bool) {
	switch ev.Type {
	case domain.EventReady:
		return t.dim.Render(fmt.Sprintf("● session %s on %s", ev.SessionID, ev.Transport)), true
	case domain.EventMode:
		if domain.ParseMode(ev.Mode).Debugging() {
			return t.debug.Render("⏸ paused at debug prompt"), true
		}
		return t.normal.Render("▶ running"), true
	case domain.EventMarker:
		if line, ok := ev.Marker(); ok {
			return t.marker.Render(fmt.Sprintf("→ line %d", line+1)), true
		}
		return t.dim.Render("→ line unknown"), true
	case domain.EventLine:
		if !t.showLines {
			return "", false
		}
		return t.dim.Render("│ " + ev.Text), true
	case domain.EventCommand:
		return t.dim.Render("$ " + ev.Text), true
	case domain.EventValue:
		return t.value.Render(ev.Tooltip), true
	case domain.EventQueryAborted:
		return t.failure.Render(fmt.Sprintf("✗ %s (%s)", ev.Expression, ev.Reason)), true
	case domain.EventSessionEnd:
		return t.dim.Render(fmt.Sprintf("● session ended (%s)", ev.Reason)), true
	}
	return "", false
}

// WriteError writes a text error line
func (t *TextWriter) WriteError(code, message string, hint ...string) error {
	msg := fmt.Sprintf("Error [%s]: %s", code, message)
	if len(hint) > 0 && hint[0] != "" {
		msg += fmt.Sprintf(" (hint: %s)", hint[0])
	}
	_, err := fmt.Fprintln(t.w, t.failure.Render(msg))
	return err
}
