package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vburojevic/termdbg/internal/tui"
)

// TUICmd launches the interactive source view
type TUICmd struct {
	SessionFlags

	Source string `short:"S" default:"${config_source}" help:"Source file the runtime executes, shown with the current line marked"`
}

// Run executes the tui command
func (c *TUICmd) Run(globals *Globals) error {
	var lines []string
	name := "(no source)"
	if c.Source != "" {
		data, err := os.ReadFile(c.Source)
		if err != nil {
			return outputErrorCommon(globals, codeFileNotFound, err.Error(), "pass --source with the file loaded into the runtime")
		}
		lines = strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
		name = filepath.Base(c.Source)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// logs would corrupt the alternate screen
	quiet := *globals
	quiet.Verbose = false
	log := newLogger(&quiet)

	sess, err := c.connect(ctx, globals, log, c.Source)
	if err != nil {
		return err
	}

	model := tui.New(ctx, sess, name, lines)
	done := runSession(ctx, sess)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	runErr, sessErr := runProgram(func() error {
		_, err := p.Run()
		return err
	}, model, cancel, done)

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	if sessErr != nil {
		return outputErrorCommon(globals, codeSessionFailed, sessErr.Error())
	}
	return nil
}

// runProgram runs the UI until it exits, then unsubscribes the model before
// stopping the session, so the final session events never wait on a reader
// that is gone.
func runProgram(run func() error, model interface{ Close() }, cancel context.CancelFunc, done <-chan error) (runErr, sessErr error) {
	runErr = run()
	model.Close()
	cancel()
	return runErr, <-done
}
