package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// memoryRepository is an in-memory JobRepository used by tests and local runs
// without a database. It honors the same BeforeCreate semantics as the gorm
// repository.
type memoryRepository struct {
	mu      sync.RWMutex
	ownerMu sync.Map // owner id -> *sync.Mutex
	jobs    map[uuid.UUID]*models.Job
}

func NewMemoryRepository() JobRepository {
	return &memoryRepository{jobs: make(map[uuid.UUID]*models.Job)}
}

func (r *memoryRepository) Create(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Payload == nil {
		job.Payload = models.JSON{}
	}
	if job.Summary == nil {
		job.Summary = models.NewJobSummary()
	}

	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *memoryRepository) CreateWithOwnerGuard(ctx context.Context, job *models.Job, admit func(context.Context) error) error {
	lock, _ := r.ownerMu.LoadOrStore(job.OwnerID, &sync.Mutex{})
	ownerLock := lock.(*sync.Mutex)
	ownerLock.Lock()
	defer ownerLock.Unlock()

	if err := admit(ctx); err != nil {
		return err
	}
	return r.Create(ctx, job)
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	copied := *job
	return &copied, nil
}

func (r *memoryRepository) List(ctx context.Context, filters JobFilters) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []*models.Job
	for _, job := range r.jobs {
		if filters.Status != "" && string(job.Status) != filters.Status {
			continue
		}
		if filters.OwnerID != "" && job.OwnerID != filters.OwnerID {
			continue
		}
		if filters.JobType != "" && job.JobType != filters.JobType {
			continue
		}
		copied := *job
		jobs = append(jobs, &copied)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if filters.Limit > 0 && len(jobs) > filters.Limit {
		jobs = jobs[:filters.Limit]
	}

	return jobs, nil
}

func (r *memoryRepository) Update(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	job.UpdatedAt = time.Now()
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *memoryRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, fmt.Errorf("job %s not found", id)
	}
	if job.Status != models.StatusQueued {
		return false, nil
	}
	job.Status = models.StatusProcessing
	job.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryRepository) CountByOwnerSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, job := range r.jobs {
		if job.OwnerID != ownerID || job.Status == models.StatusCancelled {
			continue
		}
		if !job.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, job := range r.jobs {
		if job.CreatedAt.Before(olderThan) && job.IsTerminal() {
			delete(r.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}
