package debugger

import (
	"strconv"
	"strings"

	"github.com/vburojevic/termdbg/internal/domain"
)

// DebugPrompt is the prompt the runtime prints while paused.
const DebugPrompt = "debug>"

// annotationWidth is the fixed width of the line number field the runtime
// prints in front of the current source line.
const annotationWidth = 8

// Classify maps a prompt to the mode it implies. Only debugPrompt enters
// debugging; every other prompt leaves it.
func Classify(prompt, debugPrompt string) domain.Mode {
	if prompt == debugPrompt {
		return domain.ModeDebugging
	}
	return domain.ModeNormal
}

// Lookback gives access to recently completed terminal lines. Line(1) is
// the most recent one.
type Lookback interface {
	Line(n int) (string, bool)
}

// LocateLine inspects the two lines printed above a debug prompt:
//
//	"       7 x = x + 1;"
//	"         ^"
//
// and returns the zero-based source line they point at. It reports false
// when there is no caret or the number field does not parse.
func LocateLine(lb Lookback) (int, bool) {
	if lb == nil {
		return 0, false
	}
	caret, ok := lb.Line(1)
	if !ok || strings.Index(caret, "^") <= 0 {
		return 0, false
	}
	code, ok := lb.Line(2)
	if !ok {
		return 0, false
	}
	n, ok := ParseAnnotation(code)
	if !ok {
		return 0, false
	}
	return n - 1, true
}

// ParseAnnotation reads the 1-based line number in the first eight columns
// of a source line echoed by the runtime. Only the leading digits of the
// trimmed field count, so "   12 if" is line 12.
func ParseAnnotation(code string) (int, bool) {
	field := code
	if len(field) > annotationWidth {
		field = field[:annotationWidth]
	}
	field = strings.TrimSpace(field)
	digits := strings.IndexFunc(field, func(r rune) bool { return r < '0' || r > '9' })
	if digits >= 0 {
		field = field[:digits]
	}
	n, err := strconv.Atoi(field)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
