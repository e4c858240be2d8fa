package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"coursegen-worker/internal/jobs"
	"coursegen-worker/pkg/models"
)

// WorkerPool polls for queued jobs and fans them out to a fixed set of
// workers over a buffered channel.
type WorkerPool struct {
	jobService jobs.JobService
	processor  *Processor
	config     *PoolConfig
	workers    []*Worker
	jobQueue   chan *models.Job
	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    bool
	mu         sync.RWMutex
}

type PoolConfig struct {
	WorkerCount  int           // concurrent workers
	PollInterval time.Duration // queued-job poll interval
	JobTimeout   time.Duration // per-job deadline
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		WorkerCount:  3,
		PollInterval: 5 * time.Second,
		JobTimeout:   10 * time.Minute,
	}
}

func NewWorkerPool(jobService jobs.JobService, processor *Processor, config *PoolConfig) *WorkerPool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	pool := &WorkerPool{
		jobService: jobService,
		processor:  processor,
		config:     config,
		jobQueue:   make(chan *models.Job, config.WorkerCount*2),
		stopCh:     make(chan struct{}),
	}

	for i := 0; i < config.WorkerCount; i++ {
		pool.workers = append(pool.workers, NewWorker(i, jobService, processor, config))
	}

	return pool
}

// Start launches the workers and the poller. Idempotent.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	log.Printf("Starting worker pool with %d workers", p.config.WorkerCount)

	for i, worker := range p.workers {
		p.wg.Add(1)
		go func(workerID int, w *Worker) {
			defer p.wg.Done()
			w.Start(ctx, p.jobQueue)
		}(i, worker)
		log.Printf("Worker %d started", i)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runJobPoller(ctx)
	}()

	p.running = true
	log.Printf("Worker pool started successfully")

	return nil
}

// Stop drains the pool and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	log.Println("Stopping worker pool...")

	close(p.stopCh)
	close(p.jobQueue)
	p.wg.Wait()

	p.running = false
	log.Println("Worker pool stopped")

	return nil
}

func (p *WorkerPool) runJobPoller(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	log.Printf("Job poller started (interval: %v)", p.config.PollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Job poller stopped due to context cancellation")
			return
		case <-p.stopCh:
			log.Println("Job poller stopped")
			return
		case <-ticker.C:
			if err := p.pollQueuedJobs(ctx); err != nil {
				log.Printf("Error polling jobs: %v", err)
			}
		}
	}
}

// pollQueuedJobs hands queued jobs to the workers without blocking; a full
// queue retries on the next tick. A job may be enqueued twice across ticks,
// the worker-side recheck makes that harmless.
func (p *WorkerPool) pollQueuedJobs(ctx context.Context) error {
	queuedJobs, err := p.jobService.ListJobs(ctx, string(models.StatusQueued), "")
	if err != nil {
		return err
	}

	if len(queuedJobs) == 0 {
		return nil
	}

	log.Printf("Found %d queued jobs", len(queuedJobs))

	for _, job := range queuedJobs {
		select {
		case p.jobQueue <- job:
			log.Printf("Job %s queued for processing", job.ID)
		default:
			log.Printf("Job queue full, job %s will be retried", job.ID)
		}
	}

	return nil
}

// GetStats snapshots the pool and per-worker counters.
func (p *WorkerPool) GetStats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		WorkerCount:   len(p.workers),
		QueueSize:     len(p.jobQueue),
		QueueCapacity: cap(p.jobQueue),
		Running:       p.running,
	}

	for i, worker := range p.workers {
		workerStats := worker.GetStats()
		stats.Workers = append(stats.Workers, WorkerStats{
			ID:           i,
			Status:       workerStats.Status,
			CurrentJobID: workerStats.CurrentJobID,
			JobsTotal:    workerStats.JobsTotal,
			JobsSuccess:  workerStats.JobsSuccess,
			JobsFailed:   workerStats.JobsFailed,
		})
	}

	return stats
}

func (p *WorkerPool) GetConfig() *PoolConfig {
	return p.config
}

type PoolStats struct {
	WorkerCount   int           `json:"worker_count"`
	QueueSize     int           `json:"queue_size"`
	QueueCapacity int           `json:"queue_capacity"`
	Running       bool          `json:"running"`
	Workers       []WorkerStats `json:"workers"`
}

type WorkerStats struct {
	ID           int    `json:"id"`
	Status       string `json:"status"` // idle, busy, stopped
	CurrentJobID string `json:"current_job_id,omitempty"`
	JobsTotal    int64  `json:"jobs_total"`
	JobsSuccess  int64  `json:"jobs_success"`
	JobsFailed   int64  `json:"jobs_failed"`
}
