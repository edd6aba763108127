// Package tui provides an interactive source view over a debug session:
// the marked line, value tooltips for hovered identifiers and the debug
// controls while the runtime is paused.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorMarker   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	ColorCursor   = lipgloss.AdaptiveColor{Light: "#0070F3", Dark: "#79C0FF"}
	ColorTooltip  = lipgloss.AdaptiveColor{Light: "#6B21A8", Dark: "#D8A6FF"}
	ColorError    = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF6B6B"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorStatusBg = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
	ColorStatusFg = lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"}
	ColorBorder   = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

var (
	MarkerStyle = lipgloss.NewStyle().
			Foreground(ColorMarker).
			Bold(true)

	CursorStyle = lipgloss.NewStyle().
			Foreground(ColorCursor).
			Underline(true)

	TooltipStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTooltip).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorStatusBg).
			Foreground(ColorStatusFg).
			Padding(0, 1)

	ControlStyle = lipgloss.NewStyle().
			Foreground(ColorMarker).
			Padding(0, 1)

	TerminalStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(ColorBorder)
)
