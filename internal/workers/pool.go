// Package workers provides a bounded worker pool used to fan out per-host
// scans. Jobs are queued, executed by a fixed number of goroutines and
// reported on a results channel that is closed once the pool has drained.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anstrom/netenum/internal/logging"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for logging.
	Type() string
}

// Result is the outcome of one job. Failed jobs are not retried.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
}

// Config sizes the pool.
type Config struct {
	// Size is the number of worker goroutines.
	Size int
	// QueueSize is the maximum number of queued jobs.
	QueueSize int
}

// Pool runs queued jobs on a fixed set of goroutines.
type Pool struct {
	config    Config
	jobs      chan Job
	results   chan Result
	workers   []*worker
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closed    atomic.Bool
	running   atomic.Int32
	peak      atomic.Int32
}

type worker struct {
	id   int
	pool *Pool
}

// New creates a pool. Non-positive sizes are raised to 1.
func New(config Config) *Pool {
	config.Size = max(config.Size, 1)
	config.QueueSize = max(config.QueueSize, 1)

	ctx, cancel := context.WithCancel(context.Background())
	pool := &Pool{
		config:  config,
		jobs:    make(chan Job, config.QueueSize),
		results: make(chan Result, config.QueueSize),
		workers: make([]*worker, config.Size),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := range config.Size {
		pool.workers[i] = &worker{id: i, pool: pool}
	}
	return pool
}

// Start launches the workers. Jobs run under ctx; cancelling it aborts
// in-flight jobs and discards whatever is still queued.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		logging.Debug("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize)

		go func() {
			select {
			case <-ctx.Done():
				p.cancel()
			case <-p.ctx.Done():
			}
		}()

		for _, w := range p.workers {
			p.wg.Add(1)
			go w.run()
		}
	})
}

// Submit adds a job to the queue without blocking.
func (p *Pool) Submit(job Job) error {
	if p.closed.Load() {
		return fmt.Errorf("worker pool is shut down")
	}
	if p.ctx.Err() != nil {
		return fmt.Errorf("worker pool is shutting down")
	}

	select {
	case p.jobs <- job:
		logging.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Results returns the channel of job results. It is closed by Shutdown after
// every worker has exited, so callers can range over it.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Peak returns the highest number of jobs that ran at the same time.
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

// Shutdown stops accepting jobs, waits for the queue to drain and closes the
// results channel. Calling it again is a no-op.
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	close(p.jobs)
	p.wg.Wait()
	p.cancel()
	close(p.results)
	logging.Debug("Worker pool shutdown completed", "peak", p.Peak())
}

func (w *worker) run() {
	defer w.pool.wg.Done()

	for job := range w.pool.jobs {
		if err := w.pool.ctx.Err(); err != nil {
			w.pool.results <- Result{JobID: job.ID(), JobType: job.Type(), Error: err}
			continue
		}
		w.execute(job)
	}
}

func (w *worker) execute(job Job) {
	n := w.pool.running.Add(1)
	defer w.pool.running.Add(-1)
	for {
		peak := w.pool.peak.Load()
		if n <= peak || w.pool.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	start := time.Now()
	err := job.Execute(w.pool.ctx)
	w.pool.results <- Result{
		JobID:    job.ID(),
		JobType:  job.Type(),
		Error:    err,
		Duration: time.Since(start),
	}

	if err != nil {
		logging.Debug("Job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err,
			"worker_id", w.id)
	}
}

// HostJob runs a per-host operation through the pool.
type HostJob struct {
	ip       string
	jobType  string
	executor func(ctx context.Context, ip string) error
}

// NewHostJob creates a job that runs executor for ip.
func NewHostJob(ip, jobType string, executor func(ctx context.Context, ip string) error) *HostJob {
	return &HostJob{ip: ip, jobType: jobType, executor: executor}
}

// Execute implements the Job interface.
func (j *HostJob) Execute(ctx context.Context) error {
	return j.executor(ctx, j.ip)
}

// ID implements the Job interface.
func (j *HostJob) ID() string {
	return j.ip
}

// Type implements the Job interface.
func (j *HostJob) Type() string {
	return j.jobType
}
