// Package gazelog centralizes gaze's logging idiom on top of
// github.com/grailbio/base/log, the logger the rest of the grailbio/bio
// codebase uses.
package gazelog

import "github.com/grailbio/base/log"

// Debugf logs a debug-level message. Debug logs are used for internal
// bookkeeping events (e.g. a dropped trailing insertion) that aren't
// user-visible but help diagnose rendering oddities.
func Debugf(format string, args ...interface{}) {
	log.Debug.Printf(format, args...)
}

// Errorf logs a recoverable error. Handlers in browserstate call this before
// retaining the previously-held data, per the error handling policy in
// spec.md §7.
func Errorf(format string, args ...interface{}) {
	log.Error.Printf(format, args...)
}

// Infof logs a routine informational message.
func Infof(format string, args ...interface{}) {
	log.Printf(format, args...)
}
