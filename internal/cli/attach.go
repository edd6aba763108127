package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/output"
	"github.com/vburojevic/termdbg/internal/session"
)

// AttachCmd is an interactive terminal onto the runtime. Terminal output
// goes to stdout; the other session events go to stderr.
type AttachCmd struct {
	SessionFlags

	Events bool `default:"true" negatable:"" help:"Write session events to stderr"`
}

// Run executes the attach command
func (c *AttachCmd) Run(globals *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger(globals)
	defer log.Sync()

	sess, err := c.connect(ctx, globals, log, "")
	if err != nil {
		return err
	}

	stdout, stderr := globals.Stdout, globals.Stderr
	lines := newLineReader(globals.Stdin)

	if f, ok := globals.Stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(int(f.Fd()), state)

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, stdout}, "")
		stdout = t
		stderr = crlfWriter{stderr}
		lines = t
	}

	var events output.EventWriter
	if globals.Format == "ndjson" {
		events = output.NewNDJSONWriter(stderr)
	} else {
		events = output.NewTextWriter(stderr, false)
	}

	sub, unsubscribe := sess.Subscribe(256)
	defer unsubscribe()
	done := runSession(ctx, sess)

	go c.readInput(ctx, lines, sess, stderr, cancel)

	for ev := range sub {
		switch ev.Type {
		case domain.EventLine:
			fmt.Fprintln(stdout, ev.Text)
		case domain.EventPrompt:
			fmt.Fprint(stdout, ev.Text)
		case domain.EventCommand:
			// the runtime echoes what it receives
		default:
			if c.Events {
				events.WriteEvent(ev)
			}
		}
	}
	if err := <-done; err != nil {
		return outputErrorCommon(globals, codeSessionFailed, err.Error())
	}
	return nil
}

// lineReader yields one input line per call
type lineReader interface {
	ReadLine() (string, error)
}

type scannerLines struct{ s *bufio.Scanner }

func newLineReader(r io.Reader) lineReader {
	if r == nil {
		r = bytes.NewReader(nil)
	}
	return scannerLines{bufio.NewScanner(r)}
}

func (l scannerLines) ReadLine() (string, error) {
	if l.s.Scan() {
		return l.s.Text(), nil
	}
	if err := l.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// readInput forwards typed lines. A line starting with ':' names a debug
// control instead, e.g. ":next". End of input stops the session.
func (c *AttachCmd) readInput(ctx context.Context, in lineReader, sess *session.Session, errOut io.Writer, stop context.CancelFunc) {
	defer stop()
	for {
		line, err := in.ReadLine()
		if err != nil {
			return
		}
		if name, ok := strings.CutPrefix(line, ":"); ok && name != "" {
			err = sess.Activate(ctx, name)
			if errors.Is(err, debugger.ErrNotDebugging) || errors.Is(err, debugger.ErrUnknownControl) {
				fmt.Fprintf(errOut, "%s\n", err)
				continue
			}
		} else {
			err = sess.Send(ctx, line)
		}
		if err != nil {
			return
		}
	}
}

// crlfWriter translates newlines for a terminal in raw mode.
type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
