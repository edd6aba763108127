// Package filter selects which session events reach an output.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vburojevic/termdbg/internal/domain"
)

// WhereClause represents a parsed --where condition
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // Compiled regex for ~ and !~ operators
	number   int
}

// ParseWhereClause parses a where clause like "type=value" or "text~panic"
// Supported operators: =, !=, ~, !~, >=, <=, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// Longest first to avoid partial matches
	operators := []string{"!~", ">=", "<=", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(clause[:idx]))
		value := strings.TrimSpace(clause[idx+len(op):])
		if field == "" || value == "" {
			return nil, fmt.Errorf("invalid where clause: %s", clause)
		}
		if !knownField(field) {
			return nil, fmt.Errorf("unknown field %q in where clause (use %s)", field, strings.Join(Fields, ", "))
		}

		wc := &WhereClause{Field: field, Operator: op, Value: value}
		switch op {
		case "~", "!~":
			re, err := regexp.Compile(value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex in where clause '%s': %w", clause, err)
			}
			wc.regex = re
		case ">=", "<=":
			if field != "line" {
				return nil, fmt.Errorf("operator %s only applies to line: %s", op, clause)
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid line number in where clause '%s': %w", clause, err)
			}
			wc.number = n
		}
		return wc, nil
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, >=, <=, ^, $)", clause)
}

// Fields lists the event fields a where clause can test.
var Fields = []string{"type", "mode", "line", "text", "expression", "value", "reason", "session_id"}

func knownField(f string) bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}

// Match checks if an event matches this where clause
func (wc *WhereClause) Match(ev *domain.Event) bool {
	fieldValue := wc.fieldValue(ev)

	switch wc.Operator {
	case "=":
		return fieldValue == wc.Value
	case "!=":
		return fieldValue != wc.Value
	case "~":
		return wc.regex.MatchString(fieldValue)
	case "!~":
		return !wc.regex.MatchString(fieldValue)
	case "^":
		return strings.HasPrefix(fieldValue, wc.Value)
	case "$":
		return strings.HasSuffix(fieldValue, wc.Value)
	case ">=", "<=":
		line, ok := ev.Marker()
		if !ok {
			return false
		}
		// Lines are shown one-based
		line++
		if wc.Operator == ">=" {
			return line >= wc.number
		}
		return line <= wc.number
	}
	return false
}

func (wc *WhereClause) fieldValue(ev *domain.Event) string {
	switch wc.Field {
	case "type":
		return string(ev.Type)
	case "mode":
		return ev.Mode
	case "line":
		if line, ok := ev.Marker(); ok {
			return strconv.Itoa(line + 1)
		}
		return ""
	case "text":
		return ev.Text
	case "expression":
		return ev.Expression
	case "value":
		return ev.Value
	case "reason":
		return ev.Reason
	case "session_id":
		return ev.SessionID
	}
	return ""
}

// WhereFilter is a filter that applies multiple where clauses (AND logic)
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from multiple where clause strings
func NewWhereFilter(whereClauses []string) (*WhereFilter, error) {
	if len(whereClauses) == 0 {
		return nil, nil
	}

	filter := &WhereFilter{}
	for _, clause := range whereClauses {
		wc, err := ParseWhereClause(clause)
		if err != nil {
			return nil, err
		}
		filter.clauses = append(filter.clauses, wc)
	}
	return filter, nil
}

// Match returns true if the event matches ALL where clauses
func (f *WhereFilter) Match(ev *domain.Event) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(ev) {
			return false
		}
	}
	return true
}
