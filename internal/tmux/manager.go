// Package tmux mirrors a debug session into a detached tmux pane so it can
// be watched from another terminal.
package tmux

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GianlucaP106/gotmux/gotmux"
)

// ErrNoPaneAvailable is returned when the mirror session has no pane.
var ErrNoPaneAvailable = errors.New("no tmux pane available")

// ErrNotInstalled is returned when tmux is not on PATH.
var ErrNotInstalled = errors.New("tmux is not installed")

// Config configures the tmux mirror.
type Config struct {
	SessionName string
}

// Manager owns the mirror session and its first pane.
type Manager struct {
	mu     sync.Mutex
	tmux   *gotmux.Tmux
	config Config
	pane   *gotmux.Pane
}

// NewManager attaches to the named session, creating it detached when it
// does not exist yet.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionName == "" {
		cfg.SessionName = "termdbg"
	}
	if !gotmux.IsInstalled() {
		return nil, ErrNotInstalled
	}
	t, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("connect to tmux: %w", err)
	}

	s, err := t.GetSessionByName(cfg.SessionName)
	if err != nil {
		return nil, fmt.Errorf("lookup tmux session: %w", err)
	}
	if s == nil {
		s, err = t.NewSession(&gotmux.SessionOptions{Name: cfg.SessionName})
		if err != nil {
			return nil, fmt.Errorf("create tmux session %q: %w", cfg.SessionName, err)
		}
	}

	panes, err := s.ListPanes()
	if err != nil {
		return nil, fmt.Errorf("list panes: %w", err)
	}
	m := &Manager{tmux: t, config: cfg}
	if len(panes) > 0 {
		m.pane = panes[0]
	}
	return m, nil
}

// SessionName returns the mirror session name.
func (m *Manager) SessionName() string {
	return m.config.SessionName
}

// AttachHint tells the user how to view the mirror.
func (m *Manager) AttachHint() string {
	return "tmux attach -t " + m.config.SessionName
}
