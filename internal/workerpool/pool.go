// Package workerpool runs small background tasks off the caller's goroutine.
package workerpool

import (
	"log/slog"
	"sync"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 2

// Pool is a fixed set of workers fed by a buffered channel. Submit never
// blocks the caller.
type Pool struct {
	tasks  chan func()
	logger *slog.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	overflow sync.WaitGroup
}

// New starts a pool with n workers. n <= 0 uses DefaultWorkers.
func New(n int, logger *slog.Logger) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{tasks: make(chan func(), n*64), logger: logger}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes task, recovering from panics so one bad task cannot take
// the host down.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked", "panic", r)
		}
	}()
	task()
}

// Submit schedules task. When the queue is full the task runs on its own
// goroutine. Tasks submitted after Close are dropped and Submit reports false.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
	default:
		p.overflow.Add(1)
		go func() {
			defer p.overflow.Done()
			p.run(task)
		}()
	}
	return true
}

// Close stops accepting tasks and waits for queued and running ones.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.overflow.Wait()
}
