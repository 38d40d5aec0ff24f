// Package keylisten delivers keyboard press and release callbacks using
// only raw terminal input.
//
// It is built for remote and headless sessions (SSH in particular) where
// keyboard-hook libraries cannot attach to a display server: the only
// available signal is the byte stream on standard input. The terminal
// never reports key releases, so releases are inferred from the OS
// key-repeat pattern with two tunable timing thresholds.
//
// # Usage
//
// The blocking entry point listens until the until key (default "esc")
// is pressed:
//
//	err := keylisten.Listen(
//	    keylisten.WithOnPress(func(key string) { fmt.Printf("pressed %s\r\n", key) }),
//	    keylisten.WithOnRelease(func(key string) { fmt.Printf("released %s\r\n", key) }),
//	)
//
// Handlers run under a configurable policy: Sequential (strict one at a
// time), Concurrent (bounded worker pool, the default), or Coroutine
// (single run-loop goroutine). StopListening, or Session.Stop from a
// handler, ends the session at the next loop iteration.
//
// Callers that want to drive the loop themselves create a Session and
// use Start, Tick, and Finish directly.
//
// # Limitations
//
// Holding several keys at once is not detected: a new key forces the
// previous one released, because key-repeat is the only hold signal the
// terminal provides. Keys that produce no character (pure modifiers)
// never generate events. Standard input must be an interactive terminal.
package keylisten

import (
	"context"
	"sync"
)

// The process-wide listening slot. The terminal is a single shared
// resource, so at most one session may hold it.
var (
	slotMu        sync.Mutex
	activeSession *Session
)

func claimSlot(s *Session) error {
	slotMu.Lock()
	defer slotMu.Unlock()
	if activeSession != nil {
		return ErrAlreadyListening
	}
	activeSession = s
	return nil
}

func releaseSlot(s *Session) {
	slotMu.Lock()
	defer slotMu.Unlock()
	if activeSession == s {
		activeSession = nil
	}
}

// Listen runs a listening session built from the given options and
// blocks until it ends. It returns a ConfigError before touching the
// terminal if the options are invalid, and ErrAlreadyListening if
// another session is running.
func Listen(opts ...Option) error {
	return ListenContext(context.Background(), opts...)
}

// ListenContext is Listen with a context. Cancelling the context stops
// the session cleanly, including the final synthetic release and the
// terminal restore.
func ListenContext(ctx context.Context, opts ...Option) error {
	s, err := NewSession(opts...)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// StopListening requests a stop of the currently running session, if
// any. It is idempotent: calling it repeatedly, or with no session
// running, is a no-op.
func StopListening() {
	slotMu.Lock()
	s := activeSession
	slotMu.Unlock()
	if s != nil {
		s.Stop()
	}
}
