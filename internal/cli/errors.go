package cli

import (
	"errors"
	"fmt"

	"github.com/vburojevic/termdbg/internal/output"
)

// Error codes shared by commands.
const (
	codeInvalidFlags   = "INVALID_FLAGS"
	codeNoTarget       = "NO_TARGET"
	codeConnectFailed  = "CONNECT_FAILED"
	codeSessionFailed  = "SESSION_FAILED"
	codeInvalidPattern = "INVALID_PATTERN"
	codeInvalidWhere   = "INVALID_WHERE"
	codeNotDebugging   = "NOT_DEBUGGING"
	codeQueryAborted   = "QUERY_ABORTED"
	codeFileNotFound   = "FILE_NOT_FOUND"
	codeWatchesFailed  = "WATCHES_FAILED"
	codeTmuxFailed     = "TMUX_FAILED"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so agents always get machine-readable failures.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s", code, message)
		if len(hint) > 0 && hint[0] != "" {
			fmt.Fprintf(globals.Stderr, " (hint: %s)", hint[0])
		}
		fmt.Fprintln(globals.Stderr)
	}
	return errors.New(message)
}
