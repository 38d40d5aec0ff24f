// Package term owns the terminal mode for a listening session.
//
// Acquire switches the terminal to raw, no-echo mode and arranges for
// reads to return only the bytes already available. Release restores the
// captured attributes exactly and is safe to call from any exit path,
// any number of times. Exactly one implementation exists per platform;
// callers never branch on the host OS.
package term

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotTerminal is returned by Acquire when the input file is not an
// interactive terminal. Listening cannot work without one.
var ErrNotTerminal = errors.New("input is not an interactive terminal")

// ReleaseError reports a failure to restore the original terminal
// attributes. This is fatal: a terminal stuck in raw mode corrupts the
// user's shell, so callers must surface it loudly.
type ReleaseError struct {
	Err error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("restoring terminal attributes: %v", e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// Acquire captures the current attributes of f, switches it to raw mode
// with echo disabled, and enables non-blocking delivery of input bytes.
// It fails with ErrNotTerminal if f is not an interactive terminal and
// leaves the terminal untouched on any failure.
func Acquire(f *os.File) (*Guard, error) {
	return acquire(f)
}
