package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/termdbg/internal/domain"
)

// Tracker counts what happened in a session and detects debug stops
type Tracker struct {
	mu        sync.Mutex
	clock     clock.Clock
	started   time.Time
	mode      domain.Mode
	stops     int
	stopStart time.Time
	summary   domain.SessionSummary
}

// StopChange describes a transition into or out of the debug prompt
type StopChange struct {
	Stop     int           // 1-based stop number
	Entered  bool          // true when the runtime paused
	Duration time.Duration // time spent paused, set when leaving
}

// NewTracker creates a tracker whose durations are measured with clk
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clock: clk, started: clk.Now()}
}

// Observe records an event and returns a StopChange for mode events
func (t *Tracker) Observe(ev domain.Event) *StopChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type {
	case domain.EventLine:
		t.summary.Lines++
	case domain.EventPrompt:
		t.summary.Prompts++
	case domain.EventCommand:
		t.summary.Commands++
	case domain.EventValue:
		t.summary.QueriesResolved++
	case domain.EventQueryAborted:
		t.summary.QueriesAborted++
	case domain.EventMode:
		mode := domain.ParseMode(ev.Mode)
		if mode == t.mode {
			return nil
		}
		t.mode = mode
		t.summary.ModeChanges++
		if mode.Debugging() {
			t.stops++
			t.stopStart = t.clock.Now()
			return &StopChange{Stop: t.stops, Entered: true}
		}
		return &StopChange{Stop: t.stops, Duration: t.clock.Since(t.stopStart)}
	}
	return nil
}

// QueryStarted counts an issued value query
func (t *Tracker) QueryStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.QueriesStarted++
}

// Stops returns how many times the runtime paused
func (t *Tracker) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

// Summary returns the statistics collected so far
func (t *Tracker) Summary() domain.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary
	s.DurationSeconds = int(t.clock.Since(t.started).Seconds())
	return s
}
