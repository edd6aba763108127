package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/termdbg/internal/domain"
)

func TestTrackerDetectsStops(t *testing.T) {
	clk := clock.NewMock()
	tr := NewTracker(clk)
	at := clk.Now()

	change := tr.Observe(domain.NewModeEvent("s", domain.ModeDebugging, at))
	require.NotNil(t, change)
	assert.True(t, change.Entered)
	assert.Equal(t, 1, change.Stop)

	// Repeated mode is not a change.
	assert.Nil(t, tr.Observe(domain.NewModeEvent("s", domain.ModeDebugging, at)))

	clk.Add(5 * time.Second)
	change = tr.Observe(domain.NewModeEvent("s", domain.ModeNormal, at))
	require.NotNil(t, change)
	assert.False(t, change.Entered)
	assert.Equal(t, 5*time.Second, change.Duration)

	change = tr.Observe(domain.NewModeEvent("s", domain.ModeDebugging, at))
	require.NotNil(t, change)
	assert.Equal(t, 2, change.Stop)
	assert.Equal(t, 2, tr.Stops())
}

func TestTrackerSummary(t *testing.T) {
	clk := clock.NewMock()
	tr := NewTracker(clk)
	at := clk.Now()

	tr.Observe(domain.NewLineEvent("s", "a", at))
	tr.Observe(domain.NewLineEvent("s", "b", at))
	tr.Observe(domain.NewPromptEvent("s", ">", at))
	tr.Observe(domain.NewCommandEvent("s", "p x", at))
	tr.QueryStarted()
	tr.QueryStarted()
	tr.Observe(domain.NewValueEvent("s", "x", "1", at))
	tr.Observe(domain.NewQueryAbortedEvent("s", "y", "timeout", at))
	clk.Add(90 * time.Second)

	assert.Equal(t, domain.SessionSummary{
		Lines:           2,
		Prompts:         1,
		Commands:        1,
		QueriesStarted:  2,
		QueriesResolved: 1,
		QueriesAborted:  1,
		DurationSeconds: 90,
	}, tr.Summary())
}
