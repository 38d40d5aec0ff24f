// Package dispatch delivers key events to user callbacks under a selected
// concurrency policy.
//
// # Policies
//
// Three policies control how handlers run relative to the listening loop:
//
//   - Sequential: Submit invokes the handler inline and blocks until it
//     returns. Callbacks execute strictly one at a time in event order, at
//     the cost of input latency while a handler runs.
//
//   - Concurrent: Submit hands the handler to a bounded worker pool and
//     returns immediately. Handlers for different events may run in
//     parallel; submission order to the pool matches event order.
//
//   - Coroutine: Submit schedules the handler onto a single run-loop
//     goroutine. Handler starts match event order and the listening loop
//     never blocks on handler execution.
//
// All policies preserve submission order; only Sequential guarantees
// completion order.
//
// # Failure Isolation
//
// Handlers that return errors or panic never stop the session. The
// Executor recovers panics, captures timing, and reports failures through
// configurable ErrorHandler and PanicHandler callbacks so silent callback
// bugs stay visible.
//
// # Termination Protocol
//
// The dispatcher owns the until-key protocol: when a press event for the
// configured until key is submitted, the stop request fires after the
// press handler has been scheduled, so the until key's own callback still
// runs. Manual stops go through the same request.
package dispatch
