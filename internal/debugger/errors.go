package debugger

import "errors"

var (
	// ErrNotDebugging is returned for requests that need the debug prompt.
	ErrNotDebugging = errors.New("runtime is not at the debug prompt")
	// ErrNotIdentifier is returned when a hover target cannot be evaluated.
	ErrNotIdentifier = errors.New("hover target is not an identifier")
	// ErrQueryBusy is returned when a value query is already pending.
	ErrQueryBusy = errors.New("a value query is already pending")
	// ErrQueryAborted is returned by Query.Wait when no value arrived.
	ErrQueryAborted = errors.New("value query aborted")
	// ErrUnknownControl is returned by Activate for unknown control names.
	ErrUnknownControl = errors.New("unknown debug control")
)
