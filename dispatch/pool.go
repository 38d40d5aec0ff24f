package dispatch

import (
	"context"
	"sync"
)

// task is one pending handler invocation.
type task struct {
	ctx     context.Context
	key     string
	handler Handler
}

// defaultQueueSize bounds the concurrent policy's task queue. Human
// typing cannot outrun a queue this size; if it somehow fills, Submit
// blocks rather than reordering or dropping events.
const defaultQueueSize = 1024

// workerPool executes tasks on a fixed number of worker goroutines.
// Tasks enter a single FIFO queue, so pool pickup order matches
// submission order even though completions may interleave.
type workerPool struct {
	queue   chan task
	workers int
	wg      sync.WaitGroup
	exec    *Executor
	onDone  func(key string, result Result)
}

func newWorkerPool(workers, queueSize int, exec *Executor, onDone func(string, Result)) *workerPool {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &workerPool{
		queue:   make(chan task, queueSize),
		workers: workers,
		exec:    exec,
		onDone:  onDone,
	}
}

func (p *workerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		result := p.exec.Execute(t.ctx, t.key, t.handler)
		if p.onDone != nil {
			p.onDone(t.key, result)
		}
	}
}

// submit enqueues a task, blocking if the queue is full.
func (p *workerPool) submit(t task) {
	p.queue <- t
}

// stop closes the queue. When wait is true it blocks until all queued
// tasks have finished or the context expires; otherwise in-flight work is
// left to finish on its own.
func (p *workerPool) stop(ctx context.Context, wait bool) error {
	close(p.queue)
	if !wait {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
