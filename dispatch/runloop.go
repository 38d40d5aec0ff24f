package dispatch

import (
	"context"
	"sync"
)

// runLoop executes tasks one at a time on a single dedicated goroutine,
// the closest Go rendering of scheduling callbacks onto a cooperative
// event loop. Task starts follow submission order exactly; the submitter
// never blocks because the queue is unbounded.
type runLoop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool

	done chan struct{}

	exec   *Executor
	onDone func(key string, result Result)
}

func newRunLoop(exec *Executor, onDone func(string, Result)) *runLoop {
	l := &runLoop{
		done:   make(chan struct{}),
		exec:   exec,
		onDone: onDone,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *runLoop) start() {
	go l.run()
}

func (l *runLoop) run() {
	defer close(l.done)
	for {
		t, ok := l.next()
		if !ok {
			return
		}
		result := l.exec.Execute(t.ctx, t.key, t.handler)
		if l.onDone != nil {
			l.onDone(t.key, result)
		}
	}
}

// next blocks until a task is available or the loop is closed and drained.
func (l *runLoop) next() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return task{}, false
	}
	t := l.queue[0]
	l.queue = l.queue[1:]
	return t, true
}

func (l *runLoop) submit(t task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, t)
	l.cond.Signal()
}

// stop closes the loop and waits for queued tasks to finish or the
// context to expire.
func (l *runLoop) stop(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.cond.Signal()
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
