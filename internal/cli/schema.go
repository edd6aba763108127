package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vburojevic/termdbg/internal/domain"
)

// SchemaCmd outputs JSON Schema for termdbg output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (ready,mode,marker,line,prompt,command,value,query_aborted,session_end,error,cutoff_reached,tmux,eval,watch). Default: all"`
	List bool     `help:"List the output types instead of printing schemas"`
}

type schemaMap = map[string]interface{}

// schemaTypes lists every record type in the order they are documented
func schemaTypes() []string {
	types := lo.Map(domain.EventTypes, func(t domain.EventType, _ int) string { return string(t) })
	return append(types, "error", "cutoff_reached", "tmux", "eval", "watch")
}

func schemaFor(t string) (schemaMap, bool) {
	switch t {
	case "error":
		return errorSchema(), true
	case "cutoff_reached":
		return cutoffSchema(), true
	case "tmux":
		return tmuxSchema(), true
	case "eval":
		return evalSchema(), true
	case "watch":
		return watchSchema(), true
	}
	if lo.Contains(domain.EventTypes, domain.EventType(t)) {
		return eventSchema(domain.EventType(t)), true
	}
	return nil, false
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	if c.List {
		c.outputTextHelp(globals)
		return nil
	}

	typesToOutput := lo.FlatMap(c.Type, func(t string, _ int) []string {
		return strings.Split(t, ",")
	})
	typesToOutput = lo.Uniq(lo.Compact(lo.Map(typesToOutput, func(t string, _ int) string {
		return strings.ToLower(strings.TrimSpace(t))
	})))
	if len(typesToOutput) == 0 {
		typesToOutput = schemaTypes()
	}

	defs := schemaMap{}
	for _, t := range typesToOutput {
		if schema, ok := schemaFor(t); ok {
			defs[t] = schema
		}
	}

	out := schemaMap{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "termdbg Output Schemas",
		"description": "JSON Schema definitions for all termdbg NDJSON output types",
		"definitions": defs,
	}
	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func stringProp(description string) schemaMap {
	return schemaMap{"type": "string", "description": description}
}

func constProp(value string) schemaMap {
	return schemaMap{"type": "string", "const": value}
}

var eventDescriptions = map[domain.EventType]string{
	domain.EventReady:        "First record of a session",
	domain.EventMode:         "The runtime entered or left the debug prompt",
	domain.EventMarker:       "The current source line changed; no line means cleared",
	domain.EventLine:         "A completed terminal line",
	domain.EventPrompt:       "A prompt printed by the runtime",
	domain.EventCommand:      "A command line written to the runtime",
	domain.EventValue:        "A value query resolved",
	domain.EventQueryAborted: "A value query ended without a value",
	domain.EventSessionEnd:   "Last record of a session, with statistics",
}

// eventSchema describes one session event record
func eventSchema(t domain.EventType) schemaMap {
	props := schemaMap{
		"type":          constProp(string(t)),
		"schemaVersion": schemaMap{"type": "integer", "const": domain.SchemaVersion},
		"session_id":    stringProp("Session identifier (UUID)"),
		"timestamp":     schemaMap{"type": "string", "format": "date-time"},
	}
	required := []string{"type", "schemaVersion", "session_id", "timestamp"}

	switch t {
	case domain.EventReady:
		props["transport"] = stringProp("Connection description")
		props["mode"] = constProp(domain.ModeNormal.String())
		required = append(required, "transport", "mode")
	case domain.EventMode:
		props["mode"] = schemaMap{"type": "string", "enum": []string{"normal", "debugging"}}
		required = append(required, "mode")
	case domain.EventMarker:
		props["line"] = schemaMap{"type": "integer", "minimum": 0, "description": "Zero-based source line"}
	case domain.EventLine, domain.EventPrompt, domain.EventCommand:
		props["text"] = stringProp("Line text without the trailing newline")
		required = append(required, "text")
	case domain.EventValue:
		props["expression"] = stringProp("Evaluated expression")
		props["value"] = stringProp("Value text as printed by the runtime")
		props["tooltip"] = stringProp("expression = value")
		required = append(required, "expression", "value", "tooltip")
	case domain.EventQueryAborted:
		props["expression"] = stringProp("Evaluated expression")
		props["reason"] = schemaMap{"type": "string", "enum": []string{"eval_error", "prompt", "timeout", "mode_exit", "closed"}}
		required = append(required, "expression", "reason")
	case domain.EventSessionEnd:
		props["reason"] = schemaMap{"type": "string", "enum": []string{"eof", "canceled", "transport_error"}}
		props["summary"] = summarySchema()
		required = append(required, "reason", "summary")
	}

	return schemaMap{
		"type":        "object",
		"title":       fmt.Sprintf("Event %s", t),
		"description": eventDescriptions[t],
		"properties":  props,
		"required":    required,
	}
}

func summarySchema() schemaMap {
	fields := []string{"lines", "prompts", "mode_changes", "commands", "queries_started", "queries_resolved", "queries_aborted", "duration_seconds"}
	props := schemaMap{}
	for _, f := range fields {
		props[f] = schemaMap{"type": "integer", "minimum": 0}
	}
	return schemaMap{
		"type":       "object",
		"title":      "Session Summary",
		"properties": props,
		"required":   fields,
	}
}

func errorSchema() schemaMap {
	return schemaMap{
		"type":        "object",
		"title":       "Error",
		"description": "Error message from termdbg",
		"properties": schemaMap{
			"type":          constProp("error"),
			"schemaVersion": schemaMap{"type": "integer"},
			"code": schemaMap{
				"type":        "string",
				"description": "Error code",
				"enum": []string{
					codeInvalidFlags,
					codeNoTarget,
					codeConnectFailed,
					codeSessionFailed,
					codeInvalidPattern,
					codeInvalidWhere,
					codeNotDebugging,
					codeQueryAborted,
					codeFileNotFound,
					codeWatchesFailed,
					codeTmuxFailed,
				},
			},
			"message": stringProp("Human-readable error description"),
			"hint":    stringProp("Suggested fix"),
		},
		"required": []string{"type", "code", "message"},
	}
}

func cutoffSchema() schemaMap {
	return schemaMap{
		"type":        "object",
		"title":       "Cutoff Reached",
		"description": "The stream stopped because a limit was reached; session_end follows",
		"properties": schemaMap{
			"type":          constProp("cutoff_reached"),
			"schemaVersion": schemaMap{"type": "integer"},
			"session_id":    stringProp("Session identifier"),
			"reason":        schemaMap{"type": "string", "enum": []string{"max_events", "duration"}},
			"events":        schemaMap{"type": "integer", "description": "Events written before the cutoff"},
		},
		"required": []string{"type", "reason", "events"},
	}
}

func tmuxSchema() schemaMap {
	return schemaMap{
		"type":        "object",
		"title":       "Tmux Session Info",
		"description": "Information about the tmux mirror session",
		"properties": schemaMap{
			"type":    constProp("tmux"),
			"session": stringProp("Tmux session name"),
			"attach":  stringProp("Command to attach to the session"),
		},
		"required": []string{"type", "session", "attach"},
	}
}

func evalSchema() schemaMap {
	return schemaMap{
		"type":        "object",
		"title":       "Eval Result",
		"description": "Result of the eval command",
		"properties": schemaMap{
			"type":       constProp("eval"),
			"session_id": stringProp("Session identifier"),
			"expression": stringProp("Evaluated expression"),
			"value":      stringProp("Value text"),
			"tooltip":    stringProp("expression = value"),
			"new":        schemaMap{"type": "boolean", "description": "First time this expression was stored"},
		},
		"required": []string{"type", "expression", "value"},
	}
}

func watchSchema() schemaMap {
	return schemaMap{
		"type":        "object",
		"title":       "Watch",
		"description": "A remembered expression from the watch store",
		"properties": schemaMap{
			"type":        constProp("watch"),
			"expression":  stringProp("Expression"),
			"last_value":  stringProp("Most recent value"),
			"evaluations": schemaMap{"type": "integer"},
			"first_seen":  schemaMap{"type": "string", "format": "date-time"},
			"last_seen":   schemaMap{"type": "string", "format": "date-time"},
		},
		"required": []string{"type", "expression", "last_value"},
	}
}

// outputTextHelp prints a quick reference of the record types
func (c *SchemaCmd) outputTextHelp(globals *Globals) {
	fmt.Fprintln(globals.Stdout, "termdbg Output Types:")
	fmt.Fprintln(globals.Stdout, "")
	for _, t := range schemaTypes() {
		schema, _ := schemaFor(t)
		fmt.Fprintf(globals.Stdout, "  %-15s - %s\n", t, schema["description"])
	}
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Use --type to filter: termdbg schema --type value,query_aborted")
}
