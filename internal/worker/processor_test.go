package worker

import (
	"context"
	"fmt"
	"testing"

	"coursegen-worker/internal/catalog"
	"coursegen-worker/internal/config"
	"coursegen-worker/internal/executor"
	"coursegen-worker/internal/jobs"
	"coursegen-worker/internal/packs"
	"coursegen-worker/internal/provider"
	"coursegen-worker/internal/storage"
	"coursegen-worker/internal/storage/filesystem"
	"coursegen-worker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGateway replays canned responses in call order.
type scriptedGateway struct {
	responses []string
	requests  []provider.Request
}

func (g *scriptedGateway) GenerateText(ctx context.Context, req provider.Request) (*provider.Result, error) {
	g.requests = append(g.requests, req)
	if len(g.requests) > len(g.responses) {
		return nil, fmt.Errorf("unexpected gateway call %d", len(g.requests))
	}
	return &provider.Result{Text: g.responses[len(g.requests)-1], FinishReason: "stop"}, nil
}

type processorFixture struct {
	processor  *Processor
	jobService jobs.JobService
	artifacts  *storage.ArtifactService
	publisher  *catalog.MemoryPublisher
}

func newProcessorFixture(t *testing.T, gw provider.Gateway) *processorFixture {
	t.Helper()

	repo := jobs.NewMemoryRepository()
	quota := jobs.NewQuotaService(repo, &config.QuotaConfig{HourlyLimit: 100, DailyLimit: 100})
	jobService := jobs.NewJobServiceImpl(repo, quota)

	backend, err := filesystem.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	artifacts := storage.NewArtifactService(backend)

	publisher := catalog.NewMemoryPublisher()

	pack := &models.KnowledgePack{
		PackID:          "test-math-g4",
		Topic:           "math",
		Grade:           "4",
		Version:         1,
		BannedTerms:     []string{"casino"},
		ReadingLevelMax: 2.0,
	}

	processor := NewProcessor(
		jobService,
		artifacts,
		gw,
		executor.DefaultRegistry(),
		publisher,
		&packs.StaticSource{Pack: pack},
		&config.WorkerConfig{CostPerAICall: 0.01, RepairMaxTokens: 512},
	)

	return &processorFixture{
		processor:  processor,
		jobService: jobService,
		artifacts:  artifacts,
		publisher:  publisher,
	}
}

func submitCourseJob(t *testing.T, f *processorFixture) *models.Job {
	t.Helper()

	job, err := f.jobService.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "owner-1",
		JobType: "generate_course",
		Payload: map[string]interface{}{"subject": "Math", "grade": "4"},
	})
	require.NoError(t, err)
	return job
}

func TestProcessHappyPath(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"title": "Fractions", "studyTexts": [
			{"id": "text-1", "title": "Halves", "content": "A half is one of two parts. The parts are equal."},
			{"id": "text-2", "title": "Quarters", "content": "A quarter is one of four parts. We can share a pizza."}
		]}`,
	}}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusDone, job.Status)
	assert.Equal(t, models.StepDone, job.CurrentStep)
	assert.Len(t, gw.requests, 1)

	assert.Equal(t, 2, job.Summary.Metrics.TotalItems)
	assert.Equal(t, 0, job.Summary.Metrics.TotalRepairs)
	assert.Equal(t, 1, job.Summary.Metrics.TotalAICalls)
	assert.InDelta(t, 0.01, job.Summary.Metrics.EstimatedCost, 1e-9)

	stored, err := f.artifacts.DownloadArtifact(context.Background(), job.TargetID)
	require.NoError(t, err)
	assert.Len(t, stored.StudyTexts, 2)

	require.Len(t, f.publisher.Entries, 1)
	assert.Equal(t, "created", f.publisher.Entries[0].Action)
	assert.Equal(t, 1, f.publisher.Entries[0].CatalogVersion)
	assert.Equal(t, job.TargetID, f.publisher.Entries[0].CourseID)

	logContent, err := f.artifacts.GetJobLog(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, logContent, "generation")
	assert.Contains(t, logContent, "Artifact verified")

	// persisted record matches the in-memory one
	persisted, err := f.jobService.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, persisted.Status)
	assert.NotNil(t, persisted.CompletedAt)
}

func TestProcessRepairsBannedTermOnce(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"title": "Chance", "studyTexts": [
			{"id": "text-1", "title": "Luck", "content": "People play games at the casino."}
		]}`,
		"People play games for fun. The games use dice.",
	}}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusDone, job.Status)

	// one generation call plus exactly one repair call
	require.Len(t, gw.requests, 2)
	assert.Contains(t, gw.requests[1].Prompt, "casino")
	assert.Contains(t, gw.requests[1].Prompt, "People play games at the casino.")

	assert.Equal(t, 1, job.Summary.Metrics.TotalRepairs)
	assert.Equal(t, 2, job.Summary.Metrics.TotalAICalls)

	repairResult := job.Summary.Phases[models.StepRepair]
	require.Len(t, repairResult.Repairs, 1)
	assert.Equal(t, "text-1", repairResult.Repairs[0].ItemID)
	assert.True(t, repairResult.Repairs[0].Fixed)

	stored, err := f.artifacts.DownloadArtifact(context.Background(), job.TargetID)
	require.NoError(t, err)
	assert.NotContains(t, stored.StudyTexts[0].Content, "casino")
}

func TestProcessFailsWhenRepairDoesNotFix(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"title": "Chance", "studyTexts": [
			{"id": "text-1", "title": "Luck", "content": "People play games at the casino."}
		]}`,
		"The casino is still here after the rewrite.",
	}}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.Error(t, result.Error)
	assert.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Equal(t, models.StepReview, job.CurrentStep)
	assert.Equal(t, "Content failed the safety review", job.ErrorMessage)

	// exactly one repair attempt, never a second loop
	assert.Len(t, gw.requests, 2)
	assert.Equal(t, 1, job.Summary.Metrics.TotalRepairs)

	// the surviving banned term is recorded as a review issue
	review, reviewed := job.Summary.Phases[models.StepReview]
	require.True(t, reviewed)
	require.Len(t, review.Issues, 1)
	assert.Contains(t, review.Issues[0], "banned_term")

	// technical detail lands on the timeline, not the job-level message
	var errorEvents []models.TimelineEvent
	for _, event := range job.Summary.Timeline {
		if event.Severity == "error" {
			errorEvents = append(errorEvents, event)
		}
	}
	require.NotEmpty(t, errorEvents)
	assert.Contains(t, errorEvents[len(errorEvents)-1].Message, "banned_term")

	// nothing was stored or published for the failed job
	exists, err := f.artifacts.ArtifactExists(context.Background(), job.TargetID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, f.publisher.Entries)
}

func TestProcessFailsAtRepairOnStructuralErrors(t *testing.T) {
	// The repair rewrite comes back empty: a structural defect rather than a
	// content-safety one, so the job fails at the repair step and the review
	// never runs.
	gw := &scriptedGateway{responses: []string{
		`{"title": "Chance", "studyTexts": [
			{"id": "text-1", "title": "Luck", "content": "People play games at the casino."}
		]}`,
		"   ",
	}}
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.Error(t, result.Error)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Equal(t, models.StepRepair, job.CurrentStep)
	assert.Equal(t, "Content still failed validation after repair", job.ErrorMessage)

	_, reviewed := job.Summary.Phases[models.StepReview]
	assert.False(t, reviewed)
}

func TestProcessFailsOnGenerationError(t *testing.T) {
	gw := &scriptedGateway{} // no responses, first call errors
	f := newProcessorFixture(t, gw)
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.Error(t, result.Error)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Equal(t, models.StepGeneration, job.CurrentStep)
	assert.Equal(t, "Content generation failed", job.ErrorMessage)
}

func TestProcessUnknownJobType(t *testing.T) {
	gw := &scriptedGateway{}
	f := newProcessorFixture(t, gw)

	job, err := f.jobService.SubmitJob(context.Background(), &models.SubmitRequest{
		OwnerID: "owner-1",
		JobType: "generate_hologram",
		Payload: map[string]interface{}{"subject": "Math"},
	})
	require.NoError(t, err)

	result := f.processor.Process(context.Background(), job)

	require.Error(t, result.Error)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Equal(t, models.StepGeneration, job.CurrentStep)
	assert.Empty(t, gw.requests)
}

func TestProcessCatalogFailureIsBestEffort(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		`{"title": "Fractions", "studyTexts": [
			{"id": "text-1", "title": "Halves", "content": "A half is one of two parts."}
		]}`,
	}}
	f := newProcessorFixture(t, gw)
	f.publisher.FailWith = fmt.Errorf("catalog is down")
	job := submitCourseJob(t, f)

	result := f.processor.Process(context.Background(), job)

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusDone, job.Status)

	// the failure is visible on the timeline but did not fail the job
	found := false
	for _, event := range job.Summary.Timeline {
		if event.Phase == models.StepCatalogUpdate && event.Severity == "warn" {
			found = true
		}
	}
	assert.True(t, found, "expected a warn event for the skipped catalog update")
}
