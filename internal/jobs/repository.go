package jobs

import (
	"context"
	"time"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	// CreateWithOwnerGuard runs admit and the insert while holding a
	// per-owner guard, so two concurrent submissions by the same owner cannot
	// both pass the admission count at limit minus one.
	CreateWithOwnerGuard(ctx context.Context, job *models.Job, admit func(context.Context) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, filters JobFilters) ([]*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	// Claim flips the job from queued to processing in a single conditional
	// write and reports whether this caller won. Two runners racing over a
	// doubly-enqueued job can never both see true.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	// CountByOwnerSince counts the owner's submissions with createdAt in the
	// trailing window, cancelled jobs excluded. This is the quota counter:
	// the inserted job row is the increment, so check and increment are
	// atomic with submission.
	CountByOwnerSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

type JobFilters struct {
	Status  string
	OwnerID string
	JobType string
	Limit   int
	Offset  int
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) CreateWithOwnerGuard(ctx context.Context, job *models.Job, admit func(context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Advisory lock keyed on the owner serializes same-owner submissions
		// until the insert commits.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", job.OwnerID).Error; err != nil {
			return err
		}
		if err := admit(ctx); err != nil {
			return err
		}
		return tx.Create(job).Error
	})
}

func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) List(ctx context.Context, filters JobFilters) ([]*models.Job, error) {
	var jobs []*models.Job

	query := r.db.WithContext(ctx).Model(&models.Job{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if filters.OwnerID != "" {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}

	if filters.JobType != "" {
		query = query.Where("job_type = ?", filters.JobType)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	query = query.Order("created_at DESC")

	err := query.Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *jobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *jobRepository) CountByOwnerSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("owner_id = ? AND created_at >= ? AND status <> ?", ownerID, since, models.StatusCancelled).
		Count(&count).Error
	return count, err
}

func (r *jobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ? AND status IN ?", olderThan,
		[]models.JobStatus{models.StatusDone, models.StatusFailed, models.StatusCancelled}).
		Delete(&models.Job{})

	return result.RowsAffected, result.Error
}
