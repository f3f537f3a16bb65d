// Package diag carries diagnostics out of elements: runtime log lines through
// a Sink, and configuration errors through an ErrorHandler. Both are handles
// owned by the graph and given to each element at construction.
package diag

import (
	"fmt"

	"firestige.xyz/pktgraph/internal/core"
)

// Sink receives runtime log lines. Chatter must not block the caller.
type Sink interface {
	Chatter(line string)
}

// Notifier is implemented by sinks that can guarantee delivery of rare,
// one-shot lines that must not be lost to a full queue.
type Notifier interface {
	Notice(line string)
}

// Notice delivers line through sink's Notice when it has one, and through
// Chatter otherwise.
func Notice(sink Sink, line string) {
	if n, ok := sink.(Notifier); ok {
		n.Notice(line)
		return
	}
	sink.Chatter(line)
}

// ErrorHandler receives configuration errors. Errorf records the message and
// returns it as an error for the caller to propagate.
type ErrorHandler interface {
	Errorf(format string, args ...any) error
}

// ConfigError is a configuration failure attributed to one element.
type ConfigError struct {
	Element string
	Class   string
	Msg     string
}

func (e *ConfigError) Error() string {
	if e.Element == "" {
		return e.Class + ": " + e.Msg
	}
	return fmt.Sprintf("%s :: %s: %s", e.Element, e.Class, e.Msg)
}

func (e *ConfigError) Unwrap() error { return core.ErrConfigInvalid }

// Discard is a Sink that drops every line.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Chatter(string) {}
