package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"coursegen-worker/internal/jobs"
	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// Worker consumes jobs from the pool's queue and runs them through the
// processor under a per-job timeout.
type Worker struct {
	id         int
	jobService jobs.JobService
	processor  *Processor
	config     *PoolConfig

	mu           sync.RWMutex
	status       string
	currentJobID uuid.UUID

	// counters use atomics so GetStats never blocks a running job
	jobsTotal   int64
	jobsSuccess int64
	jobsFailed  int64
}

func NewWorker(id int, jobService jobs.JobService, processor *Processor, config *PoolConfig) *Worker {
	return &Worker{
		id:           id,
		jobService:   jobService,
		processor:    processor,
		config:       config,
		status:       "idle",
		currentJobID: uuid.Nil,
	}
}

func (w *Worker) setState(status string, jobID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status = status
	w.currentJobID = jobID
}

func (w *Worker) getState() (string, uuid.UUID) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.status, w.currentJobID
}

// Start consumes the job queue until the context is cancelled or the queue
// closes.
func (w *Worker) Start(ctx context.Context, jobQueue <-chan *models.Job) {
	log.Printf("Worker %d starting", w.id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopped due to context cancellation", w.id)
			w.setState("stopped", uuid.Nil)
			return
		case job, ok := <-jobQueue:
			if !ok {
				log.Printf("Worker %d stopped - job queue closed", w.id)
				w.setState("stopped", uuid.Nil)
				return
			}

			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	// The poller may enqueue the same job on consecutive ticks. The claim is
	// a single conditional status flip, so of two workers holding the same
	// job exactly one wins; the loser skips without touching the provider.
	current, claimed, err := w.jobService.ClaimJob(ctx, job.ID)
	if err != nil {
		log.Printf("Worker %d: failed to claim job %s: %v", w.id, job.ID, err)
		return
	}
	if !claimed {
		log.Printf("Worker %d: job %s already claimed, skipping", w.id, job.ID)
		return
	}

	w.setState("busy", job.ID)
	atomic.AddInt64(&w.jobsTotal, 1)

	log.Printf("Worker %d processing job %s (course: %s)", w.id, job.ID, current.TargetID)

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	result := w.processor.Process(jobCtx, current)

	if result.Success {
		atomic.AddInt64(&w.jobsSuccess, 1)
		log.Printf("Worker %d completed job %s successfully", w.id, job.ID)
	} else {
		atomic.AddInt64(&w.jobsFailed, 1)
		log.Printf("Worker %d failed job %s: %v", w.id, job.ID, result.Error)
	}

	w.setState("idle", uuid.Nil)
}

// GetStats returns a consistent snapshot of the worker's state.
func (w *Worker) GetStats() WorkerStatsInternal {
	status, currentJobID := w.getState()

	currentJobIDStr := ""
	if currentJobID != uuid.Nil {
		currentJobIDStr = currentJobID.String()
	}

	return WorkerStatsInternal{
		Status:       status,
		CurrentJobID: currentJobIDStr,
		JobsTotal:    atomic.LoadInt64(&w.jobsTotal),
		JobsSuccess:  atomic.LoadInt64(&w.jobsSuccess),
		JobsFailed:   atomic.LoadInt64(&w.jobsFailed),
	}
}

type WorkerStatsInternal struct {
	Status       string
	CurrentJobID string
	JobsTotal    int64
	JobsSuccess  int64
	JobsFailed   int64
}
