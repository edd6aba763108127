package debugger

import "strings"

// Control is a debug affordance offered while the runtime is paused. It
// maps to a fixed command line.
type Control struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Command string `json:"command"`
	Key     string `json:"key"`
	Order   int    `json:"order"`
}

// Controls are the five affordances, in display order.
var Controls = []Control{
	{ID: "debug-go", Title: "Continue Running", Command: "continue", Key: "c", Order: 2000},
	{ID: "debug-stop", Title: "Stop Debugging", Command: "quit", Key: "q", Order: 2001},
	{ID: "debug-into", Title: "Step Into Statement", Command: "step", Key: "s", Order: 2002},
	{ID: "debug-over", Title: "Step Over (Next Statement)", Command: "next", Key: "n", Order: 2003},
	{ID: "debug-out", Title: "Step Out (finish)", Command: "finish", Key: "f", Order: 2004},
}

var controlAliases = map[string]string{
	"cont":      "continue",
	"stop":      "quit",
	"step-in":   "step",
	"stepin":    "step",
	"into":      "step",
	"over":      "next",
	"step-over": "next",
	"out":       "finish",
	"step-out":  "finish",
	"stepout":   "finish",
}

// LookupControl finds a control by ID, command, key or alias.
func LookupControl(name string) (Control, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := controlAliases[name]; ok {
		name = alias
	}
	for _, c := range Controls {
		if name == c.ID || name == c.Command || name == c.Key {
			return c, true
		}
	}
	return Control{}, false
}

// AffordanceHost shows and hides debug controls.
type AffordanceHost interface {
	Attach(c Control)
	Detach(c Control)
}
