package filter

import (
	"regexp"

	"github.com/vburojevic/termdbg/internal/domain"
)

// Pipeline combines pattern, exclude and where filters. Pattern and
// excludes only look at terminal lines; where clauses see every event.
type Pipeline struct {
	pattern  *regexp.Regexp
	excludes []*regexp.Regexp
	where    *WhereFilter
}

// NewPipeline returns nil when no filter is configured
func NewPipeline(pattern *regexp.Regexp, excludes []*regexp.Regexp, where *WhereFilter) *Pipeline {
	if pattern == nil && len(excludes) == 0 && where == nil {
		return nil
	}
	return &Pipeline{pattern: pattern, excludes: excludes, where: where}
}

// Match reports whether ev passes every filter. A nil pipeline allows all.
func (p *Pipeline) Match(ev *domain.Event) bool {
	if p == nil {
		return true
	}
	if ev.Type == domain.EventLine {
		if p.pattern != nil && !p.pattern.MatchString(ev.Text) {
			return false
		}
		for _, ex := range p.excludes {
			if ex.MatchString(ev.Text) {
				return false
			}
		}
	}
	return p.where.Match(ev)
}
