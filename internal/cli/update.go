package cli

import (
	"fmt"

	"github.com/vburojevic/termdbg/internal/output"
)

// UpdateCmd shows how to upgrade termdbg
type UpdateCmd struct{}

// UpdateOutput represents the NDJSON output for update instructions
type UpdateOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"current_version"`
	Commit        string `json:"commit"`
	GoInstall     string `json:"go_install"`
	ReleasesURL   string `json:"releases_url"`
}

const (
	goInstallCmd = "go install github.com/vburojevic/termdbg/cmd/termdbg@latest"
	releasesURL  = "https://github.com/vburojevic/termdbg/releases"
)

// Run executes the update command
func (c *UpdateCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(UpdateOutput{
			Type:          "update",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
			GoInstall:     goInstallCmd,
			ReleasesURL:   releasesURL,
		})
	}

	w := globals.Stdout
	fmt.Fprintf(w, "Current version: %s (%s)\n\n", Version, Commit)
	fmt.Fprintln(w, "To upgrade via Go:")
	fmt.Fprintf(w, "  %s\n\n", goInstallCmd)
	fmt.Fprintln(w, "For release notes, see:")
	fmt.Fprintf(w, "  %s\n", releasesURL)
	return nil
}
