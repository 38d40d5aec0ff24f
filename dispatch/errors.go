package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrUnknownPolicy is returned for an unrecognized policy name.
	ErrUnknownPolicy = errors.New("unknown dispatch policy")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("dispatcher already started")

	// ErrNotStarted is returned when events are submitted before Start.
	ErrNotStarted = errors.New("dispatcher not started")

	// ErrNoWorkers is returned when the concurrent policy is selected
	// with a non-positive worker count.
	ErrNoWorkers = errors.New("concurrent policy requires at least one worker")
)
