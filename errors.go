package keylisten

import (
	"errors"
	"fmt"
)

// Package errors.
var (
	// ErrAlreadyListening indicates another session currently owns the
	// terminal. Only one listening session may run per process.
	ErrAlreadyListening = errors.New("a listening session is already running")

	// ErrSessionUsed indicates Start was called on a session that has
	// already run. Sessions are single-use.
	ErrSessionUsed = errors.New("session has already been started")

	// ErrNotRunning indicates a tick was driven outside the running state.
	ErrNotRunning = errors.New("session is not running")

	// ErrStopRequested tells a caller driving the loop manually that a
	// stop has been requested and Finish should be called. It is a
	// signal, not a failure.
	ErrStopRequested = errors.New("stop requested")
)

// ConfigError reports an invalid session configuration. It is always
// surfaced before the terminal mode is touched.
type ConfigError struct {
	// Field is the configuration field at fault.
	Field string

	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}
