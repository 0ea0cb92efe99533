package lpmodel

import "fmt"

type Logger interface {
	Print(v ...interface{})
}

type noopLogger struct{}

func (noopLogger) Print(v ...interface{}) {}

// Verbosity controls how much the solver reports through the model's Logger.
type Verbosity int

const (
	Neutral Verbosity = iota
	Critical
	Severe
	Important
	Normal
	Detailed
	Full
)

// logf sends a message to the model's logger if the current verbosity is at
// least level. Must be called with the model lock held.
func (model *Model) logf(level Verbosity, format string, v ...interface{}) {
	if model.opts.verbosity < level && !model.opts.trace && !model.opts.debug {
		return
	}

	model.logger.Print(fmt.Sprintf(format, v...))
}
