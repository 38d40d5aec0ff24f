package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Result represents the outcome of a handler execution.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration

	// Skipped is true if the handler was not executed (context cancelled
	// or no handler registered for the event kind).
	Skipped bool
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// Executor runs a single handler invocation with panic recovery and
// timing. All dispatch policies funnel handler execution through it.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates an executor with the given panic handler.
// A nil handler silently discards panics.
func NewExecutor(panicHandler PanicHandler) *Executor {
	if panicHandler == nil {
		panicHandler = defaultPanicHandler
	}
	return &Executor{panicHandler: panicHandler}
}

// Execute runs the handler for the given key and returns the result.
// Panics are recovered and reported through the panic handler; they never
// propagate to the caller.
func (e *Executor) Execute(ctx context.Context, key string, handler Handler) (result Result) {
	if handler == nil {
		return Result{Success: true, Skipped: true}
	}

	select {
	case <-ctx.Done():
		return Result{Error: ctx.Err(), Skipped: true}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			// The panic handler itself must not take the process down.
			func() {
				defer func() { _ = recover() }()
				e.panicHandler(key, r, stack)
			}()
		}
	}()

	if err := handler.Handle(ctx, key); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}
