package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/termdbg/internal/debugger"
	"github.com/vburojevic/termdbg/internal/domain"
	"github.com/vburojevic/termdbg/internal/output"
)

// EvalCmd waits for the debug prompt and evaluates one expression
type EvalCmd struct {
	SessionFlags

	Expression string        `arg:"" help:"Expression to print at the debug prompt"`
	Nudge      string        `help:"Line to send first to make the runtime pause, e.g. 'debugger'"`
	Wait       time.Duration `default:"30s" help:"How long to wait for the debug prompt"`
	Watches    string        `default:"${config_watches}" help:"Watch store file (default ~/.termdbg/watches.json)"`
	NoStore    bool          `help:"Do not remember the value in the watch store"`
}

// EvalOutput is the NDJSON eval record
type EvalOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id"`
	Expression    string `json:"expression"`
	Value         string `json:"value"`
	Tooltip       string `json:"tooltip"`
	New           bool   `json:"new"`
}

// Run executes the eval command
func (c *EvalCmd) Run(globals *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger(globals)
	defer log.Sync()

	sess, err := c.connect(ctx, globals, log, "")
	if err != nil {
		return err
	}
	done := runSession(ctx, sess)
	defer func() {
		cancel()
		<-done
	}()

	if c.Nudge != "" {
		if err := sess.Send(ctx, c.Nudge); err != nil {
			return outputErrorCommon(globals, codeSessionFailed, err.Error())
		}
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, c.Wait)
	err = sess.WaitMode(waitCtx, domain.ModeDebugging)
	waitCancel()
	if err != nil {
		return outputErrorCommon(globals, codeNotDebugging,
			fmt.Sprintf("runtime did not reach the debug prompt: %v", err),
			"pass --nudge with a statement that pauses the runtime, or raise --wait")
	}

	value, err := sess.Evaluate(ctx, c.Expression)
	if err != nil {
		hint := ""
		if errors.Is(err, debugger.ErrQueryAborted) {
			hint = "check the expression is in scope at the current line"
		}
		return outputErrorCommon(globals, codeQueryAborted, err.Error(), hint)
	}

	isNew := false
	if !c.NoStore {
		isNew = c.store(globals, log, value)
	}

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(EvalOutput{
			Type:          "eval",
			SchemaVersion: output.SchemaVersion,
			SessionID:     sess.ID(),
			Expression:    c.Expression,
			Value:         value,
			Tooltip:       domain.Tooltip(c.Expression, value),
			New:           isNew,
		})
	}
	fmt.Fprintln(globals.Stdout, domain.Tooltip(c.Expression, value))
	return nil
}

func (c *EvalCmd) store(globals *Globals, log *zap.Logger, value string) bool {
	store := output.NewWatchStore(c.Watches)
	isNew := store.Record(c.Expression, value)
	if err := store.Save(); err != nil {
		log.Debug("failed to save watch store", zap.String("path", store.Path()), zap.Error(err))
		globals.Debug("Could not save watch store: %v", err)
	}
	return isNew
}
