package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultStatePath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	got, err := defaultStatePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, ".termdbg", "last-session.json"), got)

	info, err := os.Stat(filepath.Dir(got))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLoadStateMissingFile(t *testing.T) {
	got, err := loadState(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveAndLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := &lastState{
		Type:          "last_session",
		SchemaVersion: 1,
		Target:        "tcp://board.local:23",
		SessionID:     "abc",
		UpdatedAt:     "2026-01-02T03:04:05Z",
	}
	require.NoError(t, saveState(path, st))

	loaded, err := loadState(path)
	require.NoError(t, err)
	require.Equal(t, st, loaded)
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := loadState(path)
	require.Error(t, err)
}

func TestRememberAndLastTarget(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.Empty(t, lastTarget())

	require.NoError(t, rememberTarget("/dev/ttyUSB0", "s1", "app.js"))
	require.Equal(t, "/dev/ttyUSB0", lastTarget())
}
