package log

import "io"

// Discard returns a no-op handler that discards all generated output; used
// by tests that need a Logger but have no interest in its messages.
func Discard() Logger {
	h := WithZero(ZeroOptions{Sink: io.Discard, PrettyPrint: true})
	h.SetLevel(Fatal + 1)
	return h
}
