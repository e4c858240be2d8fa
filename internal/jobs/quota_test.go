package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"coursegen-worker/internal/config"
	"coursegen-worker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaFixture(t *testing.T, hourly, daily int64) (*QuotaService, JobService) {
	t.Helper()

	repo := NewMemoryRepository()
	quota := NewQuotaService(repo, &config.QuotaConfig{HourlyLimit: hourly, DailyLimit: daily})
	return quota, NewJobServiceImpl(repo, quota)
}

func submitN(t *testing.T, svc JobService, owner string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
			OwnerID: owner,
			JobType: "generate_course",
			Payload: map[string]interface{}{"subject": fmt.Sprintf("topic-%d", i), "grade": "4"},
		})
		require.NoError(t, err)
	}
}

func TestAdmissionAtLimitDenied(t *testing.T) {
	quota, svc := quotaFixture(t, 3, 100)
	submitN(t, svc, "teacher-1", 3)

	err := quota.CheckAdmission(context.Background(), "teacher-1")
	require.Error(t, err)

	var denied *AdmissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "hour", denied.Window)
	assert.Equal(t, int64(3), denied.Count)
	assert.Equal(t, int64(3), denied.Limit)
}

func TestAdmissionBelowLimitAllowed(t *testing.T) {
	quota, svc := quotaFixture(t, 3, 100)
	submitN(t, svc, "teacher-1", 2) // hourlyLimit - 1

	assert.NoError(t, quota.CheckAdmission(context.Background(), "teacher-1"))
}

func TestAdmissionDailyLimit(t *testing.T) {
	quota, svc := quotaFixture(t, 100, 4)
	submitN(t, svc, "teacher-2", 4)

	err := quota.CheckAdmission(context.Background(), "teacher-2")

	var denied *AdmissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "day", denied.Window)
}

func TestAdmissionPerOwner(t *testing.T) {
	quota, svc := quotaFixture(t, 1, 100)
	submitN(t, svc, "teacher-1", 1)

	assert.Error(t, quota.CheckAdmission(context.Background(), "teacher-1"))
	assert.NoError(t, quota.CheckAdmission(context.Background(), "teacher-2"))
}

func TestSubmitJobDeniedAtQuota(t *testing.T) {
	_, svc := quotaFixture(t, 1, 100)
	submitN(t, svc, "teacher-1", 1)

	_, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "teacher-1",
		JobType: "generate_course",
	})
	require.Error(t, err)

	var denied *AdmissionDeniedError
	assert.True(t, errors.As(err, &denied))
}

func TestSubmitJobMintsTarget(t *testing.T) {
	_, svc := quotaFixture(t, 10, 100)

	job, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "teacher-1",
		JobType: "generate_course",
		Payload: map[string]interface{}{"subject": "Fractions", "grade": "4"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", job.TargetID.String())
	assert.Equal(t, models.StatusQueued, job.Status)
	assert.NotNil(t, job.Summary)
}

func TestQuotaSnapshot(t *testing.T) {
	quota, svc := quotaFixture(t, 5, 20)
	submitN(t, svc, "teacher-1", 2)

	record, err := quota.Snapshot(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.JobsLastHour)
	assert.Equal(t, int64(5), record.HourlyLimit)
	assert.Equal(t, int64(2), record.JobsLastDay)
	assert.Equal(t, int64(20), record.DailyLimit)
}
