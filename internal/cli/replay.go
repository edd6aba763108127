package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/filter"
	"github.com/vburojevic/termdbg/internal/output"
	"github.com/vburojevic/termdbg/internal/session"
)

// ReplayCmd feeds a recorded transcript through the debugger without a
// connection. Commands the debugger would send are reported as events.
type ReplayCmd struct {
	File        string   `arg:"" type:"existingfile" help:"Transcript recorded with --record, or any captured console output"`
	Hover       []string `help:"Hover an identifier after a transcript line, as LINE:NAME (can be repeated)"`
	Where       []string `short:"w" help:"Field filter such as type=marker (can be repeated)"`
	Prompts     []string `default:"${config_prompts}" help:"Prompt strings printed by the runtime"`
	DebugPrompt string   `default:"${config_debug_prompt}" help:"Prompt printed while the runtime is paused"`
	History     int      `default:"${config_history}" help:"Terminal lines kept for source line lookup"`
	Summary     bool     `default:"true" negatable:"" help:"Print the summary table in text mode"`
}

type replayHover struct {
	line int
	name string
}

// Run executes the replay command
func (c *ReplayCmd) Run(globals *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return outputErrorCommon(globals, codeFileNotFound, err.Error())
	}
	hovers, err := parseHovers(c.Hover)
	if err != nil {
		return outputErrorCommon(globals, codeInvalidFlags, err.Error(), "use --hover 12:count")
	}
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputErrorCommon(globals, codeInvalidWhere, err.Error(), "fields: "+strings.Join(filter.Fields, ", "))
	}
	pipeline := filter.NewPipeline(nil, nil, where)

	var writer output.EventWriter
	if globals.Format == "ndjson" {
		writer = output.NewNDJSONWriter(globals.Stdout)
	} else {
		writer = output.NewTextWriter(globals.Stdout, true)
	}

	log := newLogger(globals)
	defer log.Sync()

	var summary domain.SessionSummary
	emit := func(ev domain.Event) {
		if ev.Type == domain.EventSessionEnd && ev.Summary != nil {
			summary = *ev.Summary
		}
		if pipeline.Match(&ev) {
			writer.WriteEvent(ev)
		}
	}
	engine := session.NewEngine(io.Discard, "replay:"+filepath.Base(c.File), session.Options{
		Prompts:     c.Prompts,
		DebugPrompt: c.DebugPrompt,
		History:     c.History,
		Logger:      log,
	}, emit)

	engine.Start()
	line := 0
	for _, chunk := range splitTranscript(data, c.Prompts) {
		engine.Feed(chunk)
		if !bytes.HasSuffix(chunk, []byte("\n")) {
			continue
		}
		line++
		for _, h := range hovers {
			if h.line != line {
				continue
			}
			_, err := engine.Hover(debugger.Hover{Class: debugger.ClassVariable, Text: h.name})
			if err != nil {
				globals.Info("hover %q after line %d ignored: %v", h.name, line, err)
			}
		}
	}
	engine.Close(session.EndEOF)

	if globals.Format == "text" && c.Summary && !globals.Quiet {
		fmt.Fprintln(globals.Stdout)
		return output.WriteSummaryTable(globals.Stdout, summary)
	}
	return nil
}

func parseHovers(specs []string) ([]replayHover, error) {
	out := make([]replayHover, 0, len(specs))
	for _, s := range specs {
		lineStr, name, ok := strings.Cut(s, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid hover %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(lineStr))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid hover line in %q", s)
		}
		out = append(out, replayHover{line: n, name: strings.TrimSpace(name)})
	}
	return out, nil
}
