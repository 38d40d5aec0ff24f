package dispatch

import "fmt"

// Policy selects how handlers execute relative to the listening loop.
type Policy int

const (
	// Sequential invokes handlers inline, one at a time.
	Sequential Policy = iota

	// Concurrent hands handlers to a bounded worker pool.
	Concurrent

	// Coroutine schedules handlers onto a single run-loop goroutine.
	Coroutine
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	case Coroutine:
		return "coroutine"
	default:
		return fmt.Sprintf("Policy(%d)", p)
	}
}

// Valid returns true for a known policy value.
func (p Policy) Valid() bool {
	return p >= Sequential && p <= Coroutine
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "sequential", "sync":
		return Sequential, nil
	case "concurrent", "async":
		return Concurrent, nil
	case "coroutine", "loop":
		return Coroutine, nil
	default:
		return Sequential, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}
