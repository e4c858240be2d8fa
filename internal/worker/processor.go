package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"coursegen-worker/internal/catalog"
	"coursegen-worker/internal/config"
	"coursegen-worker/internal/executor"
	"coursegen-worker/internal/gate"
	"coursegen-worker/internal/jobs"
	"coursegen-worker/internal/packs"
	"coursegen-worker/internal/provider"
	"coursegen-worker/internal/storage"
	"coursegen-worker/pkg/models"
)

// JobResult is the outcome of one processed job.
type JobResult struct {
	Success  bool
	Error    error
	Duration time.Duration
}

// Processor drives one job through the phase sequence. Phases run strictly
// forward; the only backward edge is the single validation-repair-validation
// loop. The processor is the sole writer of the job record for the duration
// of a run.
type Processor struct {
	jobService jobs.JobService
	artifacts  *storage.ArtifactService
	gateway    provider.Gateway
	registry   *executor.Registry
	publisher  catalog.Publisher
	packSource packs.Source
	config     *config.WorkerConfig
}

func NewProcessor(
	jobService jobs.JobService,
	artifacts *storage.ArtifactService,
	gateway provider.Gateway,
	registry *executor.Registry,
	publisher catalog.Publisher,
	packSource packs.Source,
	cfg *config.WorkerConfig,
) *Processor {
	return &Processor{
		jobService: jobService,
		artifacts:  artifacts,
		gateway:    gateway,
		registry:   registry,
		publisher:  publisher,
		packSource: packSource,
		config:     cfg,
	}
}

// Process runs the whole pipeline for one job and returns the outcome. Every
// phase persists its result before the next phase starts, so polling
// observers see the timeline grow in phase order.
func (p *Processor) Process(ctx context.Context, job *models.Job) *JobResult {
	startTime := time.Now()
	result := &JobResult{}

	job.SetStatus(models.StatusProcessing)
	if job.Summary == nil {
		job.Summary = models.NewJobSummary()
	}

	// generation
	draft, err := p.runGeneration(ctx, job)
	if err != nil {
		result.Error = p.failJob(ctx, job, models.StepGeneration, "Content generation failed", err)
		return result
	}

	pack, err := p.lookupPack(ctx, job, draft)
	if err != nil {
		result.Error = p.failJob(ctx, job, models.StepValidation, "Content validation could not start", err)
		return result
	}

	// validation, with the single bounded repair loop
	validationErrs := p.runValidation(ctx, job, draft, pack)
	if len(validationErrs) > 0 {
		validationErrs, err = p.runRepair(ctx, job, draft, pack, validationErrs)
		if err != nil {
			result.Error = p.failJob(ctx, job, models.StepRepair, "Content repair failed", err)
			return result
		}
		if len(validationErrs) > 0 && len(gate.Blocking(gate.Evaluate(draft, pack))) == 0 {
			// Only structural defects remain after the repair attempt.
			// Surviving content-safety issues fall through instead, so the
			// review step records and rejects them.
			result.Error = p.failJob(ctx, job, models.StepRepair,
				"Content still failed validation after repair",
				fmt.Errorf("validation errors after repair: %s", strings.Join(validationErrs, "; ")))
			return result
		}
	} else {
		p.skipRepair(ctx, job)
	}

	// review
	if err := p.runReview(ctx, job, draft, pack); err != nil {
		result.Error = p.failJob(ctx, job, models.StepReview,
			"Content failed the safety review", err)
		return result
	}

	// images and enrichment never fail the job
	p.runImages(ctx, job, draft)
	p.runEnrichment(ctx, job, draft)

	// storage_write
	if err := p.runStorageWrite(ctx, job, draft); err != nil {
		result.Error = p.failJob(ctx, job, models.StepStorageWrite, "Failed to store the generated course", err)
		return result
	}

	// catalog_update, best-effort
	p.runCatalogUpdate(ctx, job, draft)

	// verifying
	if err := p.runVerifying(ctx, job); err != nil {
		result.Error = p.failJob(ctx, job, models.StepVerifying, "Stored course could not be verified", err)
		return result
	}

	job.CurrentStep = models.StepDone
	job.SetStatus(models.StatusDone)
	job.Summary.Metrics.EstimatedCost = float64(job.Summary.Metrics.TotalAICalls) * p.config.CostPerAICall
	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist final status: %v", job.ID, err)
		result.Error = err
		return result
	}

	p.savePipelineLog(ctx, job)

	result.Success = true
	result.Duration = time.Since(startTime)
	log.Printf("Job %s completed successfully in %v", job.ID, result.Duration)
	return result
}

// savePipelineLog writes the timeline to the log store so operators can read
// the run without a database session. Best-effort.
func (p *Processor) savePipelineLog(ctx context.Context, job *models.Job) {
	var b strings.Builder
	for _, event := range job.Summary.Timeline {
		fmt.Fprintf(&b, "%s [%s] %s: %s\n",
			event.Timestamp.Format(time.RFC3339), event.Severity, event.Phase, event.Message)
	}

	if err := p.artifacts.SaveJobLog(ctx, job.ID, b.String()); err != nil {
		log.Printf("Job %s: failed to save pipeline log: %v", job.ID, err)
	}
}

// enterPhase updates the current step and persists so observers see the
// transition before any phase work starts.
func (p *Processor) enterPhase(ctx context.Context, job *models.Job, step models.Step) {
	job.CurrentStep = step
	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist step %s: %v", job.ID, step, err)
	}
}

// failJob marks the job failed at the given step. The job-level message stays
// free of raw upstream error text; the technical detail goes to the timeline.
func (p *Processor) failJob(ctx context.Context, job *models.Job, step models.Step, message string, cause error) error {
	log.Printf("Job %s failed at %s: %v", job.ID, step, cause)

	job.CurrentStep = step
	job.ErrorMessage = message
	job.Summary.AppendEvent(step, cause.Error(), "error")
	job.SetStatus(models.StatusFailed)

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist failure: %v", job.ID, err)
	}
	p.savePipelineLog(ctx, job)

	return fmt.Errorf("%s: %w", message, cause)
}

func (p *Processor) runGeneration(ctx context.Context, job *models.Job) (*models.CourseDraft, error) {
	p.enterPhase(ctx, job, models.StepGeneration)
	start := time.Now()

	exec, err := p.registry.Lookup(job.JobType)
	if err != nil {
		return nil, err
	}

	execResult, err := exec.Execute(ctx, &executor.Context{
		JobID:    job.ID,
		TargetID: job.TargetID,
		Payload:  map[string]interface{}(job.Payload),
		Gateway:  p.gateway,
	})
	if err != nil {
		return nil, err
	}

	draft := execResult.Draft
	items := 0
	if draft != nil {
		items = len(draft.StudyTexts)
	}
	if items == 0 {
		return nil, fmt.Errorf("executor produced no study texts")
	}

	job.Summary.SetPhase(models.StepGeneration, models.PhaseResult{
		ItemsProcessed: items,
		AICalls:        execResult.AICalls,
		DurationMs:     time.Since(start).Milliseconds(),
	})
	job.Summary.Metrics.TotalItems += items
	job.Summary.Metrics.TotalAICalls += execResult.AICalls
	job.Summary.AppendEvent(models.StepGeneration, fmt.Sprintf("Generated %d study texts", items), "info")

	return draft, p.jobService.UpdateJob(ctx, job)
}

func (p *Processor) lookupPack(ctx context.Context, job *models.Job, draft *models.CourseDraft) (*models.KnowledgePack, error) {
	topic := draft.Subject
	if topic == "" {
		if s, ok := job.Payload["subject"].(string); ok {
			topic = s
		}
	}
	grade := draft.Grade
	if grade == "" {
		if g, ok := job.Payload["grade"].(string); ok {
			grade = g
		}
	}

	return p.packSource.PackFor(ctx, topic, grade)
}

// validate runs the structural checks plus the gate's blocking issues and
// returns one error string per finding.
func (p *Processor) validate(draft *models.CourseDraft, pack *models.KnowledgePack) []string {
	var errs []string

	for _, text := range draft.StudyTexts {
		if text.ID == "" {
			errs = append(errs, "study text with empty id")
		}
		if strings.TrimSpace(text.Content) == "" {
			errs = append(errs, fmt.Sprintf("studyTexts.%s: empty content", text.ID))
		}
	}

	for _, issue := range gate.Blocking(gate.Evaluate(draft, pack)) {
		errs = append(errs, issue.String())
	}

	return errs
}

func (p *Processor) runValidation(ctx context.Context, job *models.Job, draft *models.CourseDraft, pack *models.KnowledgePack) []string {
	p.enterPhase(ctx, job, models.StepValidation)
	start := time.Now()

	errs := p.validate(draft, pack)

	job.Summary.SetPhase(models.StepValidation, models.PhaseResult{
		Errors:     errs,
		DurationMs: time.Since(start).Milliseconds(),
	})
	if len(errs) > 0 {
		job.Summary.AppendEvent(models.StepValidation, fmt.Sprintf("%d validation errors found", len(errs)), "warn")
	} else {
		job.Summary.AppendEvent(models.StepValidation, "Validation passed", "info")
	}

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist validation result: %v", job.ID, err)
	}

	return errs
}

// skipRepair records the no-op repair phase so the phase list stays complete.
func (p *Processor) skipRepair(ctx context.Context, job *models.Job) {
	p.enterPhase(ctx, job, models.StepRepair)
	job.Summary.SetPhase(models.StepRepair, models.PhaseResult{})
	job.Summary.AppendEvent(models.StepRepair, "No repairs needed", "info")
	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist repair result: %v", job.ID, err)
	}
}

// runRepair performs the single bounded repair attempt: rewrite each flagged
// text once through the repair prompt, then re-run validation. The returned
// error list is the post-repair validation result; a non-empty list is
// terminal for the job, either at this step (structural defects) or at the
// review step (surviving content-safety issues).
func (p *Processor) runRepair(ctx context.Context, job *models.Job, draft *models.CourseDraft, pack *models.KnowledgePack, validationErrs []string) ([]string, error) {
	p.enterPhase(ctx, job, models.StepRepair)
	start := time.Now()

	flagged := flaggedItems(draft, validationErrs)

	var repairs []models.RepairEntry
	aiCalls := 0
	for itemID, issue := range flagged {
		text := draft.Text(itemID)
		if text == nil {
			continue
		}

		fixed, err := executor.RepairText(ctx, p.gateway, text.Content, issue, p.config.RepairMaxTokens)
		aiCalls++
		if err != nil {
			// Repair infrastructure failing is a job failure, not a loop.
			return nil, err
		}

		text.Content = strings.TrimSpace(fixed)
		repairs = append(repairs, models.RepairEntry{ItemID: itemID, Issue: issue, Fixed: true})
	}

	job.Summary.SetPhase(models.StepRepair, models.PhaseResult{
		Repairs:    repairs,
		AICalls:    aiCalls,
		DurationMs: time.Since(start).Milliseconds(),
	})
	job.Summary.Metrics.TotalRepairs += len(repairs)
	job.Summary.Metrics.TotalAICalls += aiCalls
	job.Summary.AppendEvent(models.StepRepair, fmt.Sprintf("Repaired %d flagged items", len(repairs)), "info")

	// Re-run validation exactly once; the validation entry is rewritten.
	revalidateStart := time.Now()
	errs := p.validate(draft, pack)
	job.Summary.SetPhase(models.StepValidation, models.PhaseResult{
		Errors:     errs,
		DurationMs: time.Since(revalidateStart).Milliseconds(),
	})
	if len(errs) > 0 {
		job.Summary.AppendEvent(models.StepRepair, fmt.Sprintf("%d validation errors remain after repair", len(errs)), "warn")
	}

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist repair result: %v", job.ID, err)
	}

	return errs, nil
}

// flaggedItems maps validation error strings back to study-text ids via the
// studyTexts.<id> path convention.
func flaggedItems(draft *models.CourseDraft, validationErrs []string) map[string]string {
	flagged := make(map[string]string)
	for _, errText := range validationErrs {
		for _, text := range draft.StudyTexts {
			prefix := fmt.Sprintf("studyTexts.%s", text.ID)
			if strings.Contains(errText, prefix) {
				if _, seen := flagged[text.ID]; !seen {
					flagged[text.ID] = errText
				}
			}
		}
	}
	return flagged
}

// runReview re-runs the gate against the final content. Blocking issues fail
// the job; advisory readability findings are logged and waved through.
func (p *Processor) runReview(ctx context.Context, job *models.Job, draft *models.CourseDraft, pack *models.KnowledgePack) error {
	p.enterPhase(ctx, job, models.StepReview)
	start := time.Now()

	issues := gate.Evaluate(draft, pack)

	issueTexts := make([]string, 0, len(issues))
	for _, issue := range issues {
		issueTexts = append(issueTexts, issue.String())
	}

	job.Summary.SetPhase(models.StepReview, models.PhaseResult{
		Issues:     issueTexts,
		DurationMs: time.Since(start).Milliseconds(),
	})

	blocking := gate.Blocking(issues)
	for _, issue := range issues {
		if issue.Severity == gate.SeverityAdvisory {
			job.Summary.AppendEvent(models.StepReview, "Advisory: "+issue.String(), "warn")
		}
	}

	if len(blocking) > 0 {
		job.Summary.AppendEvent(models.StepReview, fmt.Sprintf("%d blocking content-safety issues", len(blocking)), "error")
		if err := p.jobService.UpdateJob(ctx, job); err != nil {
			log.Printf("Job %s: failed to persist review result: %v", job.ID, err)
		}
		return fmt.Errorf("content safety review found %d blocking issues: %s", len(blocking), blocking[0].String())
	}

	job.Summary.AppendEvent(models.StepReview, "Review passed", "info")
	return p.jobService.UpdateJob(ctx, job)
}

// runImages is best-effort: image preparation never fails the job, it only
// leaves pending counts behind.
func (p *Processor) runImages(ctx context.Context, job *models.Job, draft *models.CourseDraft) {
	p.enterPhase(ctx, job, models.StepImages)
	start := time.Now()

	// Image rendering happens out of band; every study text gets a pending
	// illustration request.
	pending := len(draft.StudyTexts)

	job.Summary.SetPhase(models.StepImages, models.PhaseResult{
		Pending:    pending,
		DurationMs: time.Since(start).Milliseconds(),
	})
	job.Summary.AppendEvent(models.StepImages, fmt.Sprintf("%d images queued for rendering", pending), "info")

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: images phase persist failed (non-fatal): %v", job.ID, err)
	}
}

// runEnrichment applies content guardrails in place; failures are logged and
// never fail the job.
func (p *Processor) runEnrichment(ctx context.Context, job *models.Job, draft *models.CourseDraft) {
	p.enterPhase(ctx, job, models.StepEnrichment)
	start := time.Now()

	applied := 0
	for i := range draft.StudyTexts {
		trimmed := strings.TrimSpace(draft.StudyTexts[i].Content)
		if trimmed != draft.StudyTexts[i].Content {
			draft.StudyTexts[i].Content = trimmed
			applied++
		}
		if draft.StudyTexts[i].Title == "" {
			draft.StudyTexts[i].Title = fmt.Sprintf("Section %d", i+1)
			applied++
		}
	}

	job.Summary.SetPhase(models.StepEnrichment, models.PhaseResult{
		GuardrailsApplied: applied,
		DurationMs:        time.Since(start).Milliseconds(),
	})
	job.Summary.AppendEvent(models.StepEnrichment, fmt.Sprintf("Applied %d guardrails", applied), "info")

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: enrichment phase persist failed (non-fatal): %v", job.ID, err)
	}
}

func (p *Processor) runStorageWrite(ctx context.Context, job *models.Job, draft *models.CourseDraft) error {
	p.enterPhase(ctx, job, models.StepStorageWrite)

	if err := p.artifacts.UploadArtifact(ctx, job.TargetID, draft); err != nil {
		return err
	}

	job.Summary.AppendEvent(models.StepStorageWrite, "Artifact written", "info")
	return p.jobService.UpdateJob(ctx, job)
}

func (p *Processor) runCatalogUpdate(ctx context.Context, job *models.Job, draft *models.CourseDraft) {
	p.enterPhase(ctx, job, models.StepCatalogUpdate)

	course := &models.CatalogCourse{
		CourseID:   job.TargetID,
		Title:      draft.Title,
		Subject:    draft.Subject,
		GradeBand:  draft.Grade,
		Tags:       models.StringSlice{draft.Subject},
		Visibility: "private",
	}

	if entry := catalog.PublishBestEffort(ctx, p.publisher, course); entry != nil {
		job.Summary.AppendEvent(models.StepCatalogUpdate,
			fmt.Sprintf("Catalog %s at version %d", entry.Action, entry.CatalogVersion), "info")
	} else {
		job.Summary.AppendEvent(models.StepCatalogUpdate, "Catalog update skipped after publish failure", "warn")
	}

	if err := p.jobService.UpdateJob(ctx, job); err != nil {
		log.Printf("Job %s: catalog phase persist failed (non-fatal): %v", job.ID, err)
	}
}

// runVerifying re-reads the persisted artifact to confirm the write before
// the job is marked done.
func (p *Processor) runVerifying(ctx context.Context, job *models.Job) error {
	p.enterPhase(ctx, job, models.StepVerifying)

	stored, err := p.artifacts.DownloadArtifact(ctx, job.TargetID)
	if err != nil {
		return err
	}
	if len(stored.StudyTexts) == 0 {
		return fmt.Errorf("stored artifact for course %s has no study texts", job.TargetID)
	}

	job.Summary.AppendEvent(models.StepVerifying, "Artifact verified", "info")
	return p.jobService.UpdateJob(ctx, job)
}
