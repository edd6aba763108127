package filter

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/termdbg/internal/domain"
)

// DedupeFilter collapses repeated identical terminal lines. Only line
// events are deduplicated; everything else always passes.
type DedupeFilter struct {
	mu       sync.Mutex
	clock    clock.Clock
	window   time.Duration // 0 = consecutive only
	seen     map[string]*dedupeEntry
	lastText string
}

type dedupeEntry struct {
	count     int
	firstSeen time.Time
	lastSeen  time.Time
}

// DedupeResult holds the result of a dedupe check
type DedupeResult struct {
	ShouldEmit bool
	Count      int // 1 = first occurrence
	FirstSeen  time.Time
	LastSeen   time.Time
}

// Duplicate summarizes a suppressed line
type Duplicate struct {
	Text      string
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// NewDedupeFilter creates a new deduplication filter.
// window=0 collapses consecutive identical lines only; window>0 collapses
// identical lines seen within the window.
func NewDedupeFilter(window time.Duration, clk clock.Clock) *DedupeFilter {
	if clk == nil {
		clk = clock.New()
	}
	return &DedupeFilter{
		clock:  clk,
		window: window,
		seen:   make(map[string]*dedupeEntry),
	}
}

// Check determines if an event should be emitted or suppressed
func (f *DedupeFilter) Check(ev *domain.Event) DedupeResult {
	now := f.clock.Now()
	if ev.Type != domain.EventLine {
		return DedupeResult{ShouldEmit: true, Count: 1, FirstSeen: now, LastSeen: now}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := ev.Text
	if f.window > 0 {
		f.cleanOldEntries(now)
	}

	if existing, ok := f.seen[key]; ok && (f.window > 0 || f.lastText == key) {
		existing.count++
		existing.lastSeen = now
		return DedupeResult{
			ShouldEmit: false,
			Count:      existing.count,
			FirstSeen:  existing.firstSeen,
			LastSeen:   existing.lastSeen,
		}
	}

	f.seen[key] = &dedupeEntry{count: 1, firstSeen: now, lastSeen: now}
	f.lastText = key
	return DedupeResult{ShouldEmit: true, Count: 1, FirstSeen: now, LastSeen: now}
}

// Duplicates returns the lines that were suppressed at least once
func (f *DedupeFilter) Duplicates() []Duplicate {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Duplicate
	for text, e := range f.seen {
		if e.count > 1 {
			out = append(out, Duplicate{Text: text, Count: e.count, FirstSeen: e.firstSeen, LastSeen: e.lastSeen})
		}
	}
	return out
}

// Reset clears the deduplication state
func (f *DedupeFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = make(map[string]*dedupeEntry)
	f.lastText = ""
}

func (f *DedupeFilter) cleanOldEntries(now time.Time) {
	cutoff := now.Add(-f.window)
	for key, entry := range f.seen {
		if entry.lastSeen.Before(cutoff) {
			delete(f.seen, key)
		}
	}
}
