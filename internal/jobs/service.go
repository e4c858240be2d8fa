package jobs

import (
	"context"
	"time"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

type JobService interface {
	// SubmitJob runs the admission check and creates the job record. A quota
	// rejection surfaces as *AdmissionDeniedError.
	SubmitJob(ctx context.Context, req *models.SubmitRequest) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// ClaimJob atomically takes ownership of a queued job for processing. The
	// returned flag is false when another runner already claimed it; the job
	// is only returned to the winner.
	ClaimJob(ctx context.Context, id uuid.UUID) (*models.Job, bool, error)
	ListJobs(ctx context.Context, status string, ownerID string) ([]*models.Job, error)
	// UpdateJob persists the full job record; only the orchestrator run that
	// owns the job may call this for a given id.
	UpdateJob(ctx context.Context, job *models.Job) error
	Quota(ctx context.Context, ownerID string) (*models.QuotaRecord, error)
	CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int64, error)
}
