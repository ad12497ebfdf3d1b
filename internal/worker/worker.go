package worker

import (
	"fmt"
	"sync"

	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/cockroachdb/errors"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// ErrBusy is returned by Submit when every engine is occupied and the queue is full.
var ErrBusy = errors.New("worker pool busy")

// Job is one unit of work. A job that panics is reported through the Pool's
// panic handler and does not take its engine down.
type Job func()

// Pool is a fixed set of engine goroutines draining a bounded task channel.
type Pool struct {
	tasks   chan Job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	onPanic func(engine int, recovered any)
}

// NewPool spawns n engines (at least one). onPanic may be nil.
func NewPool(n int, onPanic func(engine int, recovered any)) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		tasks:   make(chan Job, n),
		onPanic: onPanic,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(engineID int) {
			defer p.wg.Done()
			p.engine(engineID)
		}(i)
	}
	logger.Logger.Debugw("Worker pool started", logger.FieldCount, n)
	return p
}

func (p *Pool) engine(id int) {
	for job := range p.tasks {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			if p.onPanic != nil {
				p.onPanic(id, r)
				return
			}
			logger.Logger.Errorw("Engine recovered from panic", logger.FieldEngine, id, logger.FieldError, fmt.Sprint(r))
		}
	}()
	job()
}

// Submit hands a job to an idle engine without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- job:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops accepting jobs and waits for queued and running jobs to finish.
// In-flight jobs are never interrupted. Idempotent.
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
}
