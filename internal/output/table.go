package output

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
)

// WriteSummaryTable renders session statistics as a table
func WriteSummaryTable(w io.Writer, s domain.SessionSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	rows := [][]string{
		{"Lines", strconv.Itoa(s.Lines)},
		{"Prompts", strconv.Itoa(s.Prompts)},
		{"Mode changes", strconv.Itoa(s.ModeChanges)},
		{"Commands", strconv.Itoa(s.Commands)},
		{"Queries started", strconv.Itoa(s.QueriesStarted)},
		{"Queries resolved", strconv.Itoa(s.QueriesResolved)},
		{"Queries aborted", strconv.Itoa(s.QueriesAborted)},
		{"Duration (s)", strconv.Itoa(s.DurationSeconds)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteControlsTable lists the debug controls and their commands
func WriteControlsTable(w io.Writer, controls []debugger.Control) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Control", "Command")
	for _, c := range controls {
		if err := table.Append([]string{c.Key, c.Title, c.Command}); err != nil {
			return err
		}
	}
	return table.Render()
}
