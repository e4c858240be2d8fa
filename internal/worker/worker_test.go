package worker

import (
	"context"
	"testing"
	"time"

	"coursegen-worker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesQueuedJob(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"title": "Fractions", "studyTexts": [
			{"id": "text-1", "title": "Halves", "content": "A half is one of two parts."}
		]}`,
	}}
	f := newProcessorFixture(t, gw)

	pool := NewWorkerPool(f.jobService, f.processor, &PoolConfig{
		WorkerCount:  1,
		PollInterval: 20 * time.Millisecond,
		JobTimeout:   5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	job := submitCourseJob(t, f)

	require.Eventually(t, func() bool {
		current, err := f.jobService.GetJob(context.Background(), job.ID)
		return err == nil && current.Status == models.StatusDone
	}, 5*time.Second, 20*time.Millisecond, "job should be picked up and completed")

	stats := pool.GetStats()
	assert.True(t, stats.Running)
	assert.Equal(t, 1, stats.WorkerCount)

	cancel()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, pool.Stop())
}

func TestWorkerSkipsAlreadyClaimedJob(t *testing.T) {
	gw := &scriptedGateway{}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	// Simulate another worker having claimed the job.
	job.SetStatus(models.StatusProcessing)
	require.NoError(t, f.jobService.UpdateJob(context.Background(), job))

	w := NewWorker(0, f.jobService, f.processor, DefaultPoolConfig())
	w.processJob(context.Background(), job)

	// The worker must not have touched the gateway or the counters.
	assert.Empty(t, gw.requests)
	stats := w.GetStats()
	assert.Equal(t, int64(0), stats.JobsTotal)
	assert.Equal(t, "idle", stats.Status)
}

func TestWorkerProcessesDoublyEnqueuedJobOnce(t *testing.T) {
	// The poller can hand the same job out twice; the claim makes the second
	// run a no-op instead of a duplicate pipeline.
	gw := &scriptedGateway{responses: []string{
		`{"title": "Fractions", "studyTexts": [
			{"id": "text-1", "title": "Halves", "content": "A half is one of two parts."}
		]}`,
	}}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	w := NewWorker(0, f.jobService, f.processor, DefaultPoolConfig())
	w.processJob(context.Background(), job)
	w.processJob(context.Background(), job)

	assert.Len(t, gw.requests, 1)
	assert.Len(t, f.publisher.Entries, 1)
	stats := w.GetStats()
	assert.Equal(t, int64(1), stats.JobsTotal)
}

func TestPoolStartIsIdempotent(t *testing.T) {
	gw := &scriptedGateway{}
	f := newProcessorFixture(t, gw)

	pool := NewWorkerPool(f.jobService, f.processor, &PoolConfig{
		WorkerCount:  1,
		PollInterval: time.Hour,
		JobTimeout:   time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Start(ctx))

	cancel()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())
}
