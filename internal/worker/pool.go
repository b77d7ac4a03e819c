// Package worker provides background processing for synthesis jobs.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("worker: queue full")
	ErrPoolStopped = errors.New("worker: pool stopped")
)

// Task does the work of one job.
type Task func(ctx context.Context) (Result, error)

// Job represents a background task. An empty ID is filled in on Submit.
type Job struct {
	ID   string
	Task Task
}

// Pool manages background workers for async jobs.
type Pool struct {
	store  *Store
	jobs   chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPool creates a worker pool with the given queue size.
func NewPool(store *Store, queueSize int, logger *slog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{store: store, jobs: make(chan Job, queueSize), logger: logger, ctx: ctx, cancel: cancel}
}

// Store returns the job store the pool reports into.
func (p *Pool) Store() *Store { return p.store }

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

// Submit queues a job without blocking and returns its id.
func (p *Pool) Submit(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return "", ErrPoolStopped
	}

	p.store.add(job.ID)
	select {
	case p.jobs <- job:
		p.logger.Debug("job queued", "id", job.ID)
		return job.ID, nil
	default:
		p.store.remove(job.ID)
		p.logger.Warn("worker: queue full, rejecting job", "id", job.ID)
		return "", ErrQueueFull
	}
}

func (p *Pool) processJob(job Job) {
	p.store.setRunning(job.ID)

	res, err := p.run(job)
	p.store.finish(job.ID, res, err)
	if err != nil {
		p.logger.Warn("worker: job failed", "id", job.ID, "error", err)
		return
	}
	p.logger.Info("job finished", "id", job.ID, "bytes", len(res.Data))
}

func (p *Pool) run(job Job) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker: job panicked", "id", job.ID, "panic", r)
			err = errors.New("worker: job panicked")
		}
	}()
	return job.Task(p.ctx)
}
