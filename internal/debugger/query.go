package debugger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vburojevic/termdbg/internal/domain"
)

// Abort reasons reported by Query.Reason.
const (
	ReasonEvalError = "eval_error"
	ReasonPrompt    = "prompt"
	ReasonTimeout   = "timeout"
	ReasonModeExit  = "mode_exit"
	ReasonClosed    = "closed"
)

// Query is a pending `p <expr>` request. It completes exactly once, either
// with a value or aborted.
type Query struct {
	expr     string
	command  string
	started  time.Time
	deadline time.Time

	open bool
	acc  strings.Builder

	done   chan struct{}
	value  string
	ok     bool
	reason string
}

func newQuery(expr string, started, deadline time.Time) *Query {
	return &Query{
		expr:     expr,
		command:  "p " + expr,
		started:  started,
		deadline: deadline,
		done:     make(chan struct{}),
	}
}

// Expr returns the queried expression.
func (q *Query) Expr() string { return q.expr }

// Command returns the command line written for the query, without newline.
func (q *Query) Command() string { return q.command }

// Started returns when the query was issued.
func (q *Query) Started() time.Time { return q.started }

// Done is closed when the query completes.
func (q *Query) Done() <-chan struct{} { return q.done }

// Value returns the resolved value. It reports false while pending or
// after an abort.
func (q *Query) Value() (string, bool) {
	select {
	case <-q.done:
		return q.value, q.ok
	default:
		return "", false
	}
}

// Reason returns the abort reason, empty while pending or when resolved.
func (q *Query) Reason() string {
	select {
	case <-q.done:
		return q.reason
	default:
		return ""
	}
}

// Tooltip returns the hover text for a resolved query.
func (q *Query) Tooltip() string {
	v, _ := q.Value()
	return domain.Tooltip(q.expr, v)
}

// Wait blocks until the query completes or ctx is done.
func (q *Query) Wait(ctx context.Context) (string, error) {
	select {
	case <-q.done:
		if !q.ok {
			return "", fmt.Errorf("%w: %s (%s)", ErrQueryAborted, q.expr, q.reason)
		}
		return q.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// feed offers one terminal line to the query and reports whether the query
// completed.
func (q *Query) feed(line, debugPrompt string) bool {
	if !q.open {
		switch {
		case strings.HasPrefix(line, "="):
			q.open = true
			q.acc.WriteString(line[1:])
		case line == "" || q.isEcho(line, debugPrompt):
			return false
		case strings.HasPrefix(line, debugPrompt):
			q.abort(ReasonPrompt)
			return true
		default:
			q.abort(ReasonEvalError)
			return true
		}
	} else {
		q.acc.WriteString(line)
	}

	if BracketBalance(q.acc.String()) <= 0 {
		q.resolve(q.acc.String())
		return true
	}
	return false
}

func (q *Query) isEcho(line, debugPrompt string) bool {
	line = strings.TrimRight(line, " ")
	return line == q.command || line == debugPrompt+q.command
}

func (q *Query) resolve(value string) {
	q.value, q.ok = value, true
	close(q.done)
}

func (q *Query) abort(reason string) {
	q.reason = reason
	close(q.done)
}

func (q *Query) expired(now time.Time) bool {
	return !q.deadline.IsZero() && !now.Before(q.deadline)
}

// BracketBalance counts opening minus closing brackets of all three kinds.
// Brackets inside string literals are counted too.
func BracketBalance(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			n++
		case ')', ']', '}':
			n--
		}
	}
	return n
}
