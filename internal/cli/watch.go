package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/filter"
	"github.com/vburojevic/termdbg/internal/output"
	"github.com/vburojevic/termdbg/internal/session"
	"github.com/vburojevic/termdbg/internal/tmux"
)

// WatchCmd streams session events and forwards stdin lines to the runtime
type WatchCmd struct {
	SessionFlags

	Pattern      string        `short:"p" name:"filter" aliases:"pattern" help:"Regex that terminal lines must match"`
	Exclude      []string      `short:"x" help:"Regex of terminal lines to drop (can be repeated)"`
	Where        []string      `short:"w" help:"Field filter such as type=value or line>=10 (can be repeated)"`
	Dedupe       bool          `help:"Collapse repeated identical terminal lines"`
	DedupeWindow time.Duration `help:"Collapse identical lines seen within this window instead of only consecutive ones"`
	MaxEvents    int           `help:"Stop after this many events were written (0 = no limit)"`
	Duration     time.Duration `help:"Stop after this long (0 = no limit)"`
	NoStdin      bool          `help:"Do not forward stdin lines to the runtime"`
	Tmux         bool          `help:"Mirror terminal lines into a tmux session"`
	Session      string        `help:"Custom tmux session name (default: termdbg-<session>)"`
}

// Run executes the watch command
func (c *WatchCmd) Run(globals *Globals) error {
	if err := validateFlags(globals, c.Tmux, c.MaxEvents); err != nil {
		return err
	}

	pipeline, err := c.pipeline(globals)
	if err != nil {
		return err
	}
	var dedupe *filter.DedupeFilter
	if c.Dedupe || c.DedupeWindow > 0 {
		dedupe = filter.NewDedupeFilter(c.DedupeWindow, nil)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger(globals)
	defer log.Sync()

	sess, err := c.connect(ctx, globals, log, "")
	if err != nil {
		return err
	}

	var mirror *tmux.Manager
	if c.Tmux {
		mirror = c.openMirror(globals, sess.ID())
	}

	var writer output.EventWriter
	if globals.Format == "ndjson" {
		writer = output.NewNDJSONWriter(globals.Stdout)
	} else {
		writer = output.NewTextWriter(globals.Stdout, true)
	}

	events, unsubscribe := sess.Subscribe(256)
	defer unsubscribe()
	done := runSession(ctx, sess)

	if !c.NoStdin && globals.Stdin != nil {
		go c.forwardStdin(ctx, globals.Stdin, sess, log)
	}

	if !globals.Quiet && globals.Format == "text" {
		globals.Info("Watching %s (session %s). Press Ctrl+C to stop", c.Target, sess.ID())
	}

	var deadline <-chan time.Time
	if c.Duration > 0 {
		timer := time.NewTimer(c.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	loop := &watchLoop{
		writer:    writer,
		pipeline:  pipeline,
		dedupe:    dedupe,
		mirror:    mirror,
		maxEvents: c.MaxEvents,
		log:       log,
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return c.finish(<-done, loop, mirror, globals)
			}
			if loop.handle(ev) {
				c.cutoff(globals, "max_events", sess.ID(), loop.written)
				cancel()
			}
		case <-deadline:
			deadline = nil
			c.cutoff(globals, "duration", sess.ID(), loop.written)
			cancel()
		}
	}
}

func (c *WatchCmd) pipeline(globals *Globals) (*filter.Pipeline, error) {
	var pattern *regexp.Regexp
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, outputErrorCommon(globals, codeInvalidPattern, fmt.Sprintf("invalid regex pattern: %s", err))
		}
		pattern = re
	}
	var excludes []*regexp.Regexp
	for _, x := range c.Exclude {
		re, err := regexp.Compile(x)
		if err != nil {
			return nil, outputErrorCommon(globals, codeInvalidPattern, fmt.Sprintf("invalid exclude pattern: %s", err))
		}
		excludes = append(excludes, re)
	}
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return nil, outputErrorCommon(globals, codeInvalidWhere, err.Error(), "fields: "+strings.Join(filter.Fields, ", "))
	}
	return filter.NewPipeline(pattern, excludes, where), nil
}

func (c *WatchCmd) openMirror(globals *Globals, sessionID string) *tmux.Manager {
	name := c.Session
	if name == "" {
		name = "termdbg-" + sessionID[:min(8, len(sessionID))]
	}
	mgr, err := tmux.NewManager(tmux.Config{SessionName: name})
	if err != nil {
		// the stdout stream still works without the mirror
		output.NewNDJSONWriter(globals.Stdout).WriteError(codeTmuxFailed, err.Error(), "install tmux or drop --tmux")
		return nil
	}
	mgr.ClearPaneWithBanner(sessionID, c.Target)
	output.NewNDJSONWriter(globals.Stdout).Write(map[string]any{
		"type":          "tmux",
		"schemaVersion": output.SchemaVersion,
		"session":       mgr.SessionName(),
		"attach":        mgr.AttachHint(),
	})
	return mgr
}

// forwardStdin sends every stdin line to the runtime until stdin closes.
func (c *WatchCmd) forwardStdin(ctx context.Context, in io.Reader, sess *session.Session, log *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := sess.Send(ctx, scanner.Text()); err != nil {
			log.Debug("stdin forwarding stopped", zap.Error(err))
			return
		}
	}
}

func (c *WatchCmd) cutoff(globals *Globals, reason, sessionID string, written int) {
	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteCutoff(reason, sessionID, written)
		return
	}
	globals.Info("Stopped: %s after %d events", reason, written)
}

func (c *WatchCmd) finish(runErr error, loop *watchLoop, mirror *tmux.Manager, globals *Globals) error {
	if mirror != nil {
		loop.flushMirror()
		if loop.summary != nil {
			mirror.WriteSummary(*loop.summary)
		}
	}
	if runErr != nil {
		return outputErrorCommon(globals, codeSessionFailed, runErr.Error())
	}
	return nil
}

// watchLoop applies filters and limits to the event stream.
type watchLoop struct {
	writer    output.EventWriter
	pipeline  *filter.Pipeline
	dedupe    *filter.DedupeFilter
	mirror    *tmux.Manager
	mirrorW   *tmux.Writer
	maxEvents int
	written   int
	stops     int
	summary   *domain.SessionSummary
	log       *zap.Logger
}

// handle processes one event and reports whether the event limit was hit.
func (l *watchLoop) handle(ev domain.Event) bool {
	l.mirrorEvent(ev)
	if ev.Type == domain.EventSessionEnd {
		l.summary = ev.Summary
	}

	// the stream ends with session_end even after a cutoff
	if l.maxEvents > 0 && l.written >= l.maxEvents && ev.Type != domain.EventSessionEnd {
		return false
	}
	if !l.pipeline.Match(&ev) {
		return false
	}
	if l.dedupe != nil && !l.dedupe.Check(&ev).ShouldEmit {
		return false
	}
	if err := l.writer.WriteEvent(ev); err != nil {
		l.log.Debug("write event", zap.Error(err))
		return false
	}
	l.written++
	return l.maxEvents > 0 && l.written == l.maxEvents
}

func (l *watchLoop) mirrorEvent(ev domain.Event) {
	if l.mirror == nil {
		return
	}
	if l.mirrorW == nil {
		l.mirrorW = tmux.NewWriter(l.mirror)
	}
	switch ev.Type {
	case domain.EventLine:
		fmt.Fprintln(l.mirrorW, ev.Text)
	case domain.EventValue:
		fmt.Fprintln(l.mirrorW, "  "+ev.Tooltip)
	case domain.EventMode:
		if ev.Mode == domain.ModeDebugging.String() {
			l.stops++
			l.flushMirror()
			l.mirror.WriteStopBanner(l.stops, nil)
		}
	case domain.EventMarker:
		if line, ok := ev.Marker(); ok {
			fmt.Fprintf(l.mirrorW, "  → line %d\n", line+1)
		}
	}
}

func (l *watchLoop) flushMirror() {
	if l.mirrorW != nil {
		l.mirrorW.Flush()
	}
}
