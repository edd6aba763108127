package cli

// validateFlags centralizes common flag combinations to keep behavior consistent.
func validateFlags(globals *Globals, tmux bool, maxEvents int) error {
	if maxEvents < 0 {
		return outputErrorCommon(globals, codeInvalidFlags, "--max-events must not be negative", "use 0 for no limit")
	}
	// the tmux mirror renders text; the stdout stream stays machine readable
	if tmux && globals != nil && globals.Format != "ndjson" {
		return outputErrorCommon(globals, codeInvalidFlags, "--tmux requires ndjson output", "add --format ndjson or drop --tmux")
	}
	// quiet + text is confusing for agents; steer to ndjson
	if globals != nil && globals.Format == "text" && globals.Quiet {
		return outputErrorCommon(globals, codeInvalidFlags, "--quiet is only supported with ndjson output", "switch to --format ndjson or drop --quiet")
	}
	return nil
}
