package jobs

import (
	"context"
	"fmt"
	"time"

	"coursegen-worker/internal/config"
	"coursegen-worker/pkg/models"
)

// AdmissionDeniedError is the user-facing quota rejection. It names the
// exhausted window so callers can distinguish "try again later" from a broken
// job.
type AdmissionDeniedError struct {
	OwnerID string
	Window  string
	Count   int64
	Limit   int64
}

func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("quota exceeded: %d of %d jobs used in the last %s, try again once the window passes",
		e.Count, e.Limit, e.Window)
}

// QuotaService is the pipeline's only admission-control mechanism. It is
// checked once at submission time and never re-evaluated mid-pipeline.
type QuotaService struct {
	repo   JobRepository
	config *config.QuotaConfig
}

func NewQuotaService(repo JobRepository, cfg *config.QuotaConfig) *QuotaService {
	return &QuotaService{repo: repo, config: cfg}
}

// CheckAdmission denies when either trailing window is at its limit. The
// windows are rolling: they look back from now, not from a calendar boundary.
func (q *QuotaService) CheckAdmission(ctx context.Context, ownerID string) error {
	now := time.Now()

	hourly, err := q.repo.CountByOwnerSince(ctx, ownerID, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("failed to count hourly submissions: %w", err)
	}
	if hourly >= q.config.HourlyLimit {
		return &AdmissionDeniedError{OwnerID: ownerID, Window: "hour", Count: hourly, Limit: q.config.HourlyLimit}
	}

	daily, err := q.repo.CountByOwnerSince(ctx, ownerID, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to count daily submissions: %w", err)
	}
	if daily >= q.config.DailyLimit {
		return &AdmissionDeniedError{OwnerID: ownerID, Window: "day", Count: daily, Limit: q.config.DailyLimit}
	}

	return nil
}

// Snapshot returns the owner's current rolling counters for the API.
func (q *QuotaService) Snapshot(ctx context.Context, ownerID string) (*models.QuotaRecord, error) {
	now := time.Now()

	hourly, err := q.repo.CountByOwnerSince(ctx, ownerID, now.Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	daily, err := q.repo.CountByOwnerSince(ctx, ownerID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &models.QuotaRecord{
		OwnerID:      ownerID,
		JobsLastHour: hourly,
		HourlyLimit:  q.config.HourlyLimit,
		JobsLastDay:  daily,
		DailyLimit:   q.config.DailyLimit,
	}, nil
}
