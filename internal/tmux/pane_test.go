package tmux

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/termdbg/internal/domain"
)

type lineSink struct {
	lines []string
	err   error
}

func (s *lineSink) WriteLine(line string) error {
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, line)
	return nil
}

func TestWriterBuffersPartialLines(t *testing.T) {
	sink := &lineSink{}
	w := NewWriter(sink)

	_, err := w.Write([]byte("mode debugging\nmarker li"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mode debugging"}, sink.lines)

	_, err = w.Write([]byte("ne 7\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mode debugging", "marker line 7"}, sink.lines)

	_, err = w.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.Equal(t, "tail", sink.lines[len(sink.lines)-1])
	require.NoError(t, w.Flush())
	assert.Len(t, sink.lines, 3)
}

func TestWriterPropagatesErrors(t *testing.T) {
	w := NewWriter(&lineSink{err: errors.New("no pane")})
	_, err := w.Write([]byte("x\n"))
	assert.Error(t, err)
}

func TestEscapeTmuxString(t *testing.T) {
	assert.Equal(t, `it'"'"'s`, escapeTmuxString("it's"))
	assert.Equal(t, `a\\b`, escapeTmuxString(`a\b`))
}

func TestBanners(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	lines := SessionBanner("abc", "tcp://h:23", at)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "tcp://h:23")
	assert.Contains(t, lines[2], "abc")

	line := 6
	stop := strings.Join(StopBanner(2, &line, at), "\n")
	assert.Contains(t, stop, "STOP 2 at line 7")
	assert.Contains(t, strings.Join(StopBanner(1, nil, at), "\n"), "unknown line")

	summary := SummaryBanner(domain.SessionSummary{Lines: 10, QueriesStarted: 3, QueriesResolved: 2})
	assert.Contains(t, summary[1], "2/3 queries resolved")
}
