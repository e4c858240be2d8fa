package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type jobServiceImpl struct {
	repo   JobRepository
	quota  *QuotaService
	tracer trace.Tracer
}

func NewJobServiceImpl(repo JobRepository, quota *QuotaService) JobService {
	return &jobServiceImpl{
		repo:   repo,
		quota:  quota,
		tracer: otel.Tracer("coursegen-worker/jobs"),
	}
}

func (s *jobServiceImpl) SubmitJob(ctx context.Context, req *models.SubmitRequest) (*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.SubmitJob")
	defer span.End()

	log.Printf("JobService.SubmitJob: owner=%s type=%s", req.OwnerID, req.JobType)

	payload := models.JSON{}
	if req.Payload != nil {
		payload = models.JSON(req.Payload)
	}

	// Mint a target when the caller did not bring one.
	targetID := uuid.New()
	if req.TargetID != nil && *req.TargetID != uuid.Nil {
		targetID = *req.TargetID
	}

	job := &models.Job{
		OwnerID:  req.OwnerID,
		JobType:  req.JobType,
		TargetID: targetID,
		Status:   models.StatusQueued,
		Payload:  payload,
		Summary:  models.NewJobSummary(),
	}

	// Admission check and insert run under the repository's per-owner guard;
	// the inserted row is the quota increment.
	err := s.repo.CreateWithOwnerGuard(ctx, job, func(ctx context.Context) error {
		return s.quota.CheckAdmission(ctx, req.OwnerID)
	})
	if err != nil {
		span.RecordError(err)
		var denied *AdmissionDeniedError
		if errors.As(err, &denied) {
			log.Printf("JobService.SubmitJob: admission denied for owner %s: %v", req.OwnerID, err)
			return nil, err
		}
		log.Printf("JobService.SubmitJob: failed to create job for owner %s: %v", req.OwnerID, err)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	log.Printf("JobService.SubmitJob: job %s created (target %s)", job.ID, job.TargetID)
	return job, nil
}

func (s *jobServiceImpl) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.GetJob")
	defer span.End()

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}

	return job, nil
}

func (s *jobServiceImpl) ClaimJob(ctx context.Context, id uuid.UUID) (*models.Job, bool, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.ClaimJob")
	defer span.End()

	claimed, err := s.repo.Claim(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to claim job %s: %w", id, err)
	}
	if !claimed {
		return nil, false, nil
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to read claimed job %s: %w", id, err)
	}

	return job, true, nil
}

func (s *jobServiceImpl) ListJobs(ctx context.Context, status string, ownerID string) ([]*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.ListJobs")
	defer span.End()

	filters := JobFilters{
		Status:  status,
		OwnerID: ownerID,
		Limit:   100, // Default limit
	}

	jobs, err := s.repo.List(ctx, filters)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

func (s *jobServiceImpl) UpdateJob(ctx context.Context, job *models.Job) error {
	ctx, span := s.tracer.Start(ctx, "JobService.UpdateJob")
	defer span.End()

	if err := s.repo.Update(ctx, job); err != nil {
		span.RecordError(err)
		log.Printf("JobService.UpdateJob: failed to update job %s: %v", job.ID, err)
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}

	return nil
}

func (s *jobServiceImpl) Quota(ctx context.Context, ownerID string) (*models.QuotaRecord, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.Quota")
	defer span.End()

	record, err := s.quota.Snapshot(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read quota for owner %s: %w", ownerID, err)
	}

	return record, nil
}

func (s *jobServiceImpl) CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "JobService.CleanupOldJobs")
	defer span.End()

	cutoffTime := time.Now().Add(-maxAge)
	deleted, err := s.repo.DeleteOldJobs(ctx, cutoffTime)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to cleanup old jobs: %w", err)
	}

	if deleted > 0 {
		log.Printf("Cleaned up %d old jobs", deleted)
	}

	return deleted, nil
}
