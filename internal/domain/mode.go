package domain

// Mode is the debug state of a terminal session.
type Mode int

const (
	// ModeNormal is the initial state: the remote runtime is running or idle
	// at its ordinary prompt.
	ModeNormal Mode = iota
	// ModeDebugging means the runtime is paused at the debug prompt.
	ModeDebugging
)

// String returns the wire name used in events.
func (m Mode) String() string {
	if m == ModeDebugging {
		return "debugging"
	}
	return "normal"
}

// Debugging reports whether m is ModeDebugging.
func (m Mode) Debugging() bool {
	return m == ModeDebugging
}

// ParseMode converts a wire name back to a Mode. Unknown names map to normal.
func ParseMode(s string) Mode {
	if s == "debugging" {
		return ModeDebugging
	}
	return ModeNormal
}
