package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/termdbg/internal/output"
)

// WatchesCmd groups watch store subcommands
type WatchesCmd struct {
	List  WatchesListCmd  `cmd:"" default:"1" help:"List remembered expressions, most recent first"`
	Clear WatchesClearCmd `cmd:"" help:"Forget every remembered expression"`
}

// WatchesListCmd prints the watch store
type WatchesListCmd struct {
	File  string `default:"${config_watches}" help:"Watch store file (default ~/.termdbg/watches.json)"`
	Limit int    `short:"n" default:"0" help:"Show at most this many entries (0 = all)"`
}

type watchOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	output.WatchRecord
}

// Run executes the watches list command
func (c *WatchesListCmd) Run(globals *Globals) error {
	store := output.NewWatchStore(c.File)
	if err := store.Load(); err != nil {
		return outputErrorCommon(globals, codeWatchesFailed, err.Error(), "remove or fix "+store.Path())
	}
	records := store.All()
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		for _, r := range records {
			if err := w.Write(watchOutput{Type: "watch", SchemaVersion: output.SchemaVersion, WatchRecord: r}); err != nil {
				return err
			}
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintf(globals.Stdout, "No watches recorded in %s\n", store.Path())
		return nil
	}
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Expression", "Last value", "Evaluations", "Last seen")
	for _, r := range records {
		row := []string{r.Expression, r.LastValue, strconv.Itoa(r.Evaluations), r.LastSeen.Local().Format(time.DateTime)}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// WatchesClearCmd empties the watch store
type WatchesClearCmd struct {
	File string `default:"${config_watches}" help:"Watch store file (default ~/.termdbg/watches.json)"`
}

// Run executes the watches clear command
func (c *WatchesClearCmd) Run(globals *Globals) error {
	store := output.NewWatchStore(c.File)
	n := store.Count()
	store.Clear()
	if err := store.Save(); err != nil {
		return outputErrorCommon(globals, codeWatchesFailed, err.Error())
	}
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(map[string]any{
			"type":          "watches_cleared",
			"schemaVersion": output.SchemaVersion,
			"removed":       n,
			"path":          store.Path(),
		})
	}
	fmt.Fprintf(globals.Stdout, "Removed %d watches from %s\n", n, store.Path())
	return nil
}
