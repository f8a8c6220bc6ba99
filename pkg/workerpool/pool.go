// Package workerpool provides a bounded goroutine pool with backpressure.
//
//	pool := workerpool.New(8, workerpool.WithQueueSize(256))
//	defer pool.Shutdown()
//
//	if err := pool.Submit(sendReceipt); errors.Is(err, workerpool.ErrPoolFull) {
//	    // shed or run elsewhere
//	}
package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Option configures a Pool.
type Option func(*Pool)

// WithQueueSize sets how many tasks may wait for a worker. The default is
// twice the worker count.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

// WithPanicHandler is called with the recovered value when a task panics.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(p *Pool) { p.onPanic = fn }
}

type Pool struct {
	mu        sync.RWMutex
	closed    bool
	tasks     chan func()
	wg        sync.WaitGroup
	queueSize int
	onPanic   func(any)
	active    atomic.Int64
}

// New starts size workers.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{queueSize: size * 2}
	for _, opt := range opts {
		opt(p)
	}
	p.tasks = make(chan func(), p.queueSize)

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued or the pool closes.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Active reports how many tasks are running right now.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Shutdown stops intake, runs what is already queued and waits for the
// workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	task()
}
