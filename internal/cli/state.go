package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// lastState remembers the most recent connection so later commands can
// omit --target.
type lastState struct {
	Type          string `json:"type"` // "last_session"
	SchemaVersion int    `json:"schemaVersion"`
	Target        string `json:"target"`
	SessionID     string `json:"session_id,omitempty"`
	Source        string `json:"source,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func defaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".termdbg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "last-session.json"), nil
}

func loadState(path string) (*lastState, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st lastState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func saveState(path string, st *lastState) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("state path is required")
	}
	if st == nil {
		return errors.New("state is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// rememberTarget records target as the last used one. Failures only cost
// the convenience, so they are returned for logging and otherwise ignored.
func rememberTarget(target, sessionID, source string) error {
	path, err := defaultStatePath()
	if err != nil {
		return err
	}
	return saveState(path, &lastState{
		Type:          "last_session",
		SchemaVersion: 1,
		Target:        target,
		SessionID:     sessionID,
		Source:        source,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

// lastTarget returns the target of the previous session, if any.
func lastTarget() string {
	path, err := defaultStatePath()
	if err != nil {
		return ""
	}
	st, err := loadState(path)
	if err != nil || st == nil {
		return ""
	}
	return st.Target
}
