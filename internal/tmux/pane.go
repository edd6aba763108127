package tmux

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vburojevic/termdbg/internal/domain"
)

// ClearPane clears the pane content and scrollback history
func (m *Manager) ClearPane() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pane == nil {
		return ErrNoPaneAvailable
	}

	target := m.target()
	if _, err := m.tmux.Command("send-keys", "-t", target, "-R"); err != nil {
		return fmt.Errorf("failed to reset terminal: %w", err)
	}
	if _, err := m.tmux.Command("clear-history", "-t", target); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if _, err := m.tmux.Command("send-keys", "-t", target, "clear", "Enter"); err != nil {
		return fmt.Errorf("failed to clear screen: %w", err)
	}
	return nil
}

// ClearPaneWithBanner clears the pane and prints a header for the session
func (m *Manager) ClearPaneWithBanner(sessionID, target string) error {
	if err := m.ClearPane(); err != nil {
		return err
	}
	return m.WriteLines(SessionBanner(sessionID, target, time.Now()))
}

// WriteStopBanner marks the moment the runtime paused
func (m *Manager) WriteStopBanner(stop int, line *int) error {
	return m.WriteLines(StopBanner(stop, line, time.Now()))
}

// WriteSummary prints the closing statistics of a session
func (m *Manager) WriteSummary(s domain.SessionSummary) error {
	return m.WriteLines(SummaryBanner(s))
}

// SessionBanner renders the header printed when a session starts.
func SessionBanner(sessionID, target string, at time.Time) []string {
	return []string{
		"═══════════════════════════════════════════════════════════",
		"  termdbg - " + target,
		fmt.Sprintf("  Session: %s | Started: %s", sessionID, at.Format("2006-01-02 15:04:05")),
		"═══════════════════════════════════════════════════════════",
	}
}

// StopBanner renders the separator printed when the runtime pauses.
func StopBanner(stop int, line *int, at time.Time) []string {
	where := "unknown line"
	if line != nil {
		where = fmt.Sprintf("line %d", *line+1)
	}
	return []string{
		"──────────────────────────────────────────────────────────────",
		fmt.Sprintf("  ⏸ STOP %d at %s (%s)", stop, where, at.Format("15:04:05")),
		"──────────────────────────────────────────────────────────────",
	}
}

// SummaryBanner renders the closing statistics.
func SummaryBanner(s domain.SessionSummary) []string {
	return []string{
		"═══════════════════════════════════════════════════════════",
		fmt.Sprintf("  %d lines | %d mode changes | %d/%d queries resolved | %ds",
			s.Lines, s.ModeChanges, s.QueriesResolved, s.QueriesStarted, s.DurationSeconds),
		"═══════════════════════════════════════════════════════════",
	}
}

// WriteLine writes a single line to the tmux pane using echo
func (m *Manager) WriteLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pane == nil {
		return ErrNoPaneAvailable
	}

	_, err := m.tmux.Command("send-keys", "-t", m.target(), fmt.Sprintf("echo '%s'", escapeTmuxString(line)), "Enter")
	return err
}

// WriteLines writes multiple lines
func (m *Manager) WriteLines(lines []string) error {
	for _, line := range lines {
		if err := m.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) target() string {
	return m.config.SessionName + ":0.0"
}

// escapeTmuxString escapes special characters for tmux send-keys
func escapeTmuxString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "'\"'\"'")
	return s
}

// LineWriter receives complete lines.
type LineWriter interface {
	WriteLine(line string) error
}

// Writer implements io.Writer for streaming text events to a pane
type Writer struct {
	out    LineWriter
	buffer strings.Builder
}

// NewWriter creates a new writer that streams complete lines to out
func NewWriter(out LineWriter) *Writer {
	return &Writer{out: out}
}

// Write implements io.Writer. Incomplete trailing text is held back until
// its newline arrives.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.buffer.Write(p)

	content := w.buffer.String()
	lines := strings.Split(content, "\n")

	w.buffer.Reset()
	if !strings.HasSuffix(content, "\n") {
		w.buffer.WriteString(lines[len(lines)-1])
	}
	lines = lines[:len(lines)-1]

	for _, line := range lines {
		if line == "" {
			continue
		}
		if err := w.out.WriteLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes any remaining buffered content
func (w *Writer) Flush() error {
	if w.buffer.Len() > 0 {
		err := w.out.WriteLine(w.buffer.String())
		w.buffer.Reset()
		return err
	}
	return nil
}

var _ io.Writer = (*Writer)(nil)
