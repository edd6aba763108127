// Package terminal turns the raw byte stream of a remote console into
// complete lines and prompt notifications.
package terminal

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/samber/lo"
)

// DefaultPrompts are the prompts printed by Espruino-style runtimes.
var DefaultPrompts = []string{">", "debug>"}

// DefaultHistory is the number of completed lines kept for lookback.
const DefaultHistory = 16

// TokenKind distinguishes completed lines from prompts.
type TokenKind int

const (
	TokenLine TokenKind = iota
	TokenPrompt
)

// Token is one unit of terminal output produced by Feed.
type Token struct {
	Kind TokenKind
	Text string
}

// Buffer accumulates raw bytes into lines. Every '\n' terminates a line. A
// '\r' directly before '\n' is dropped; any other '\r' returns to column 0
// and discards the text typed so far, and '\b' erases the rune before it.
// The unterminated tail is kept until more bytes arrive and is reported as a
// prompt when it equals one of the configured prompt strings.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	prompts  []string
	tail     strings.Builder
	prompted string
	history  []string
	depth    int
	// cr is set while a '\r' waits for the next byte.
	cr bool
}

// NewBuffer creates a buffer recognizing the given prompts. An empty list
// selects DefaultPrompts; a non-positive depth selects DefaultHistory.
func NewBuffer(prompts []string, depth int) *Buffer {
	prompts = lo.Uniq(lo.Compact(prompts))
	if len(prompts) == 0 {
		prompts = DefaultPrompts
	}
	if depth <= 0 {
		depth = DefaultHistory
	}
	return &Buffer{
		prompts: prompts,
		depth:   depth,
	}
}

// Feed appends p and returns the lines and prompts it completed, in arrival
// order. Each completed line is returned exactly once.
func (b *Buffer) Feed(p []byte) []Token {
	var out []Token
	for _, c := range p {
		if b.cr {
			b.cr = false
			if c != '\n' {
				b.tail.Reset()
			}
		}
		switch c {
		case '\n':
			line := clean(b.tail.String())
			b.tail.Reset()
			b.prompted = ""
			b.remember(line)
			out = append(out, Token{Kind: TokenLine, Text: line})
		case '\r':
			b.cr = true
		default:
			b.tail.WriteByte(c)
		}
	}

	if b.tail.Len() == 0 {
		return out
	}
	tail := clean(b.tail.String())
	if tail != b.prompted && lo.Contains(b.prompts, tail) {
		b.prompted = tail
		out = append(out, Token{Kind: TokenPrompt, Text: tail})
	}
	return out
}

// Line returns the n-th most recently completed line, n >= 1.
func (b *Buffer) Line(n int) (string, bool) {
	if n < 1 || n > len(b.history) {
		return "", false
	}
	return b.history[len(b.history)-n], true
}

// Tail returns the current unterminated text.
func (b *Buffer) Tail() string {
	return clean(b.tail.String())
}

// Prompts returns the prompt strings the buffer recognizes.
func (b *Buffer) Prompts() []string {
	return append([]string(nil), b.prompts...)
}

// Reset drops the tail and the lookback history.
func (b *Buffer) Reset() {
	b.tail.Reset()
	b.prompted = ""
	b.history = nil
	b.cr = false
}

func (b *Buffer) remember(line string) {
	b.history = append(b.history, line)
	if over := len(b.history) - b.depth; over > 0 {
		b.history = append(b.history[:0], b.history[over:]...)
	}
}

func clean(s string) string {
	if strings.IndexByte(s, 0x1b) >= 0 {
		s = ansi.Strip(s)
	}
	if strings.IndexByte(s, '\b') >= 0 {
		s = erase(s)
	}
	return s
}

// erase applies backspaces.
func erase(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != '\b' {
			out = append(out, r)
		} else if len(out) > 0 {
			out = out[:len(out)-1]
		}
	}
	return string(out)
}
