package agentbridge

import (
	"fmt"

	"github.com/fatih/color"
)

// CallbackFormatter pretty-prints callbacks for interactive use.
type CallbackFormatter interface {
	PrintCallback(callback *Callback)
}

// ColorFormatter writes colorized one-line callback summaries to stdout.
type ColorFormatter struct {
	progress *color.Color
	complete *color.Color
	errored  *color.Color
	event    *color.Color
}

// NewColorFormatter creates a ColorFormatter.
func NewColorFormatter() *ColorFormatter {
	return &ColorFormatter{
		progress: color.New(color.FgCyan),
		complete: color.New(color.FgGreen, color.Bold),
		errored:  color.New(color.FgRed, color.Bold),
		event:    color.New(color.FgYellow),
	}
}

// PrintCallback prints a one-line summary of the callback.
func (f *ColorFormatter) PrintCallback(callback *Callback) {
	prefix := fmt.Sprintf("[%s %s]", callback.WorkflowName, callback.WorkflowID)
	switch callback.Type {
	case CallbackProgress:
		update := callback.Progress
		if update == nil {
			update = &ProgressUpdate{}
		}
		line := fmt.Sprintf("%s step=%s status=%s", prefix, update.Step, update.Status)
		if update.Percent != nil {
			line += fmt.Sprintf(" percent=%.0f", *update.Percent)
		}
		if update.Message != "" {
			line += " " + update.Message
		}
		f.progress.Println(line)
	case CallbackComplete:
		f.complete.Printf("%s completed result=%v\n", prefix, callback.Result)
	case CallbackError:
		f.errored.Printf("%s failed: %s\n", prefix, callback.Error)
	case CallbackEvent:
		f.event.Printf("%s event=%v\n", prefix, callback.Event)
	default:
		fmt.Printf("%s %s\n", prefix, callback.Type)
	}
}
