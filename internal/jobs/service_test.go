package jobs

import (
	"context"
	"sync"
	"testing"

	"coursegen-worker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimJobWinsOnce(t *testing.T) {
	_, svc := quotaFixture(t, 10, 100)

	job, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "teacher-1",
		JobType: "generate_course",
		Payload: map[string]interface{}{"subject": "Math", "grade": "4"},
	})
	require.NoError(t, err)

	claimed, ok, err := svc.ClaimJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessing, claimed.Status)

	// A second claim on the same job must lose.
	_, ok, err = svc.ClaimJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimJobSkipsTerminalJob(t *testing.T) {
	_, svc := quotaFixture(t, 10, 100)

	job, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "teacher-1",
		JobType: "generate_course",
	})
	require.NoError(t, err)

	job.SetStatus(models.StatusFailed)
	require.NoError(t, svc.UpdateJob(context.Background(), job))

	_, ok, err := svc.ClaimJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitJobConcurrentAdmission(t *testing.T) {
	// Two simultaneous submissions at limit minus one must not both pass the
	// admission count.
	_, svc := quotaFixture(t, 1, 100)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitJob(context.Background(), &models.SubmitRequest{
				OwnerID: "teacher-1",
				JobType: "generate_course",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	denied := 0
	for err := range results {
		if err != nil {
			var adm *AdmissionDeniedError
			require.ErrorAs(t, err, &adm)
			denied++
		}
	}
	assert.Equal(t, 1, denied)
}
