package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dshills/keylisten/key"
)

// Config configures a Dispatcher.
type Config struct {
	// Policy selects the execution model. Defaults to Sequential.
	Policy Policy

	// OnPress handles press events. Nil means press events are ignored.
	OnPress Handler

	// OnRelease handles release events. Nil means release events are
	// ignored.
	OnRelease Handler

	// Until names the key whose press requests a stop. Empty disables
	// until-key termination.
	Until string

	// MaxWorkers sizes the worker pool for the Concurrent policy.
	MaxWorkers int

	// QueueSize bounds the Concurrent task queue. Zero selects a default.
	QueueSize int

	// WaitForHandlers controls whether Drain waits for in-flight
	// Concurrent handlers or leaves them to finish detached.
	WaitForHandlers bool

	// RequestStop is invoked after a press of the until key has been
	// submitted. The press handler is always scheduled first.
	RequestStop func()

	// OnError receives handler errors. Failures are isolated to the
	// single dispatch; they never stop the session.
	OnError ErrorHandler

	// OnPanic receives handler panics, which are likewise isolated.
	OnPanic PanicHandler
}

// Dispatcher delivers key events to the configured handlers under one of
// the three policies. Submit is called only from the session loop;
// handler completions may happen on other goroutines depending on policy.
type Dispatcher struct {
	cfg  Config
	exec *Executor

	pool *workerPool // Concurrent
	loop *runLoop    // Coroutine

	started atomic.Bool
	stopped atomic.Bool

	// Stats
	submitted   atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// New creates a dispatcher. It returns ErrNoWorkers if the Concurrent
// policy is selected without a positive worker count.
func New(cfg Config) (*Dispatcher, error) {
	if !cfg.Policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	if cfg.Policy == Concurrent && cfg.MaxWorkers <= 0 {
		return nil, ErrNoWorkers
	}

	d := &Dispatcher{cfg: cfg}
	d.exec = NewExecutor(d.recordPanic)

	switch cfg.Policy {
	case Concurrent:
		d.pool = newWorkerPool(cfg.MaxWorkers, cfg.QueueSize, d.exec, d.record)
	case Coroutine:
		d.loop = newRunLoop(d.exec, d.record)
	}
	return d, nil
}

// Start launches the policy's background machinery, if any.
func (d *Dispatcher) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	switch {
	case d.pool != nil:
		d.pool.start()
	case d.loop != nil:
		d.loop.start()
	}
	return nil
}

// Submit delivers one event. For the Sequential policy it blocks until
// the handler returns; otherwise it returns as soon as the handler is
// scheduled. A press of the until key triggers the stop request after
// the handler has been submitted.
func (d *Dispatcher) Submit(ctx context.Context, ev key.Event) error {
	if !d.started.Load() || d.stopped.Load() {
		return ErrNotStarted
	}

	handler := d.handlerFor(ev.Kind)
	if handler != nil {
		d.submitted.Add(1)
		t := task{ctx: ctx, key: ev.Name, handler: handler}
		switch {
		case d.pool != nil:
			d.pool.submit(t)
		case d.loop != nil:
			d.loop.submit(t)
		default:
			d.record(ev.Name, d.exec.Execute(ctx, ev.Name, handler))
		}
	}

	if ev.IsPress() && d.cfg.Until != "" && ev.Name == d.cfg.Until && d.cfg.RequestStop != nil {
		d.cfg.RequestStop()
	}
	return nil
}

// Drain shuts the dispatcher down. Coroutine queues are always drained;
// Concurrent pools wait for in-flight handlers only when WaitForHandlers
// is set, otherwise running handlers finish detached.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if !d.started.Load() || !d.stopped.CompareAndSwap(false, true) {
		return nil
	}
	switch {
	case d.pool != nil:
		return d.pool.stop(ctx, d.cfg.WaitForHandlers)
	case d.loop != nil:
		return d.loop.stop(ctx)
	}
	return nil
}

func (d *Dispatcher) handlerFor(kind key.Kind) Handler {
	switch kind {
	case key.KindPress:
		return d.cfg.OnPress
	case key.KindRelease:
		return d.cfg.OnRelease
	default:
		return nil
	}
}

// record updates stats for a completed execution and surfaces failures.
// Skipped executions never ran a handler, so they are neither successes
// nor failures.
func (d *Dispatcher) record(keyName string, result Result) {
	d.totalTimeNs.Add(result.Duration.Nanoseconds())
	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		// Counted in recordPanic, which the executor calls directly.
	case result.Error != nil:
		d.failed.Add(1)
		if d.cfg.OnError != nil {
			d.cfg.OnError(keyName, result.Error)
		}
	case result.Success:
		d.succeeded.Add(1)
	}
}

// recordPanic is the executor's panic handler.
func (d *Dispatcher) recordPanic(keyName string, panicValue any, stack []byte) {
	d.panicked.Add(1)
	if d.cfg.OnPanic != nil {
		d.cfg.OnPanic(keyName, panicValue, stack)
	}
}

// Stats contains dispatcher counters.
type Stats struct {
	// Submitted is the number of events handed to a handler.
	Submitted uint64

	// Succeeded is the number of handlers that completed cleanly.
	Succeeded uint64

	// Failed is the number of handlers that returned errors.
	Failed uint64

	// Panicked is the number of handlers that panicked.
	Panicked uint64

	// Skipped is the number of submissions whose handler never ran,
	// typically because the context was cancelled before pickup.
	Skipped uint64

	// TotalDuration is the cumulative time spent in handlers.
	TotalDuration time.Duration
}

// Stats returns a snapshot of the dispatch counters. Values may be
// slightly inconsistent while handlers are still completing.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Submitted:     d.submitted.Load(),
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(d.totalTimeNs.Load()),
	}
}
