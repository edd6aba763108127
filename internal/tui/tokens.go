package tui

import (
	"unicode"

	"github.com/vburojevic/termdbg/internal/debugger"
)

// keywords of the scripting language the runtime executes
var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "false": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "let": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "undefined": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "async": true, "await": true,
}

// Token is an identifier found in a source line
type Token struct {
	Text  string
	Class debugger.TokenClass
	Start int
	End   int
}

func isIdentStart(r rune) bool { return r == '_' || r == '$' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

// TokenAt returns the identifier covering column col of line. Identifiers
// after a dot are properties; names declared on the line with var, let or
// const are locals.
func TokenAt(line string, col int) (Token, bool) {
	runes := []rune(line)
	if col < 0 || col >= len(runes) || !isIdentPart(runes[col]) {
		return Token{}, false
	}
	start := col
	for start > 0 && isIdentPart(runes[start-1]) {
		start--
	}
	end := col
	for end < len(runes) && isIdentPart(runes[end]) {
		end++
	}
	if !isIdentStart(runes[start]) {
		return Token{}, false
	}

	tok := Token{Text: string(runes[start:end]), Start: start, End: end}
	switch {
	case keywords[tok.Text]:
		tok.Class = debugger.ClassKeyword
	case start > 0 && runes[start-1] == '.':
		tok.Class = debugger.ClassProperty
	case declared(runes, tok.Text):
		tok.Class = debugger.ClassLocal
	default:
		tok.Class = debugger.ClassVariable
	}
	return tok, true
}

// declared reports whether name follows var, let or const on the line
func declared(runes []rune, name string) bool {
	words := words(runes)
	for i := 0; i+1 < len(words); i++ {
		switch words[i] {
		case "var", "let", "const":
			if words[i+1] == name {
				return true
			}
		}
	}
	return false
}

func words(runes []rune) []string {
	var out []string
	for i := 0; i < len(runes); {
		if !isIdentStart(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isIdentPart(runes[j]) {
			j++
		}
		out = append(out, string(runes[i:j]))
		i = j
	}
	return out
}
