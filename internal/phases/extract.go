// Package phases projects a job's overall status, current step and summary
// into the fixed six-phase view consumed by polling observers. Extract is pure
// and idempotent; it never drives transitions.
package phases

import (
	"fmt"

	"coursegen-worker/pkg/models"
)

type PhaseStatus string

const (
	PhasePending  PhaseStatus = "pending"
	PhaseActive   PhaseStatus = "active"
	PhaseComplete PhaseStatus = "complete"
	PhaseFailed   PhaseStatus = "failed"
)

// PhaseView is one phase as shown to observers.
type PhaseView struct {
	Name    models.Step            `json:"name"`
	Status  PhaseStatus            `json:"status"`
	Summary string                 `json:"summary"`
	Details map[string]interface{} `json:"details"`
}

// genericSummaries are the fallbacks used when a phase has no recorded result
// yet.
var genericSummaries = map[models.Step]string{
	models.StepGeneration: "Generating course content",
	models.StepValidation: "Validating structure and vocabulary",
	models.StepRepair:     "Repairing flagged content",
	models.StepReview:     "Reviewing content safety",
	models.StepImages:     "Preparing images",
	models.StepEnrichment: "Applying enrichment guardrails",
}

// Extract derives the ordered phase list. All phases before the current step's
// index are complete; the phase at the index is active (or failed when the job
// failed there); everything after is pending. done marks every phase complete,
// and unknown steps map to the -1 sentinel, leaving every phase pending.
func Extract(status models.JobStatus, currentStep models.Step, summary *models.JobSummary) []PhaseView {
	currentIndex := models.StepIndex(currentStep)
	if status == models.StatusDone {
		currentIndex = len(models.PrimaryPhases)
	}

	views := make([]PhaseView, 0, len(models.PrimaryPhases))
	for i, phase := range models.PrimaryPhases {
		var phaseStatus PhaseStatus
		switch {
		case i < currentIndex:
			phaseStatus = PhaseComplete
		case i == currentIndex && status == models.StatusFailed:
			phaseStatus = PhaseFailed
		case i == currentIndex && status == models.StatusProcessing:
			phaseStatus = PhaseActive
		default:
			phaseStatus = PhasePending
		}

		views = append(views, buildView(phase, phaseStatus, summary))
	}

	return views
}

func buildView(phase models.Step, status PhaseStatus, summary *models.JobSummary) PhaseView {
	view := PhaseView{
		Name:    phase,
		Status:  status,
		Summary: genericSummaries[phase],
		Details: map[string]interface{}{},
	}

	if summary == nil {
		view.Details["logs"] = []models.TimelineEvent{}
		return view
	}

	if result, ok := summary.Phases[phase]; ok {
		if text := summarize(phase, result); text != "" {
			view.Summary = text
		}
		view.Details["result"] = result
	}

	// logs is the subsequence of the timeline for this phase, original order
	// preserved.
	logs := []models.TimelineEvent{}
	for _, event := range summary.Timeline {
		if event.Phase == phase {
			logs = append(logs, event)
		}
	}
	view.Details["logs"] = logs

	return view
}

func summarize(phase models.Step, result models.PhaseResult) string {
	switch phase {
	case models.StepGeneration:
		if result.ItemsProcessed > 0 {
			return fmt.Sprintf("Generated %d items", result.ItemsProcessed)
		}
	case models.StepValidation:
		if len(result.Errors) > 0 {
			return fmt.Sprintf("%d validation errors", len(result.Errors))
		}
		return "Validation passed"
	case models.StepRepair:
		if len(result.Repairs) > 0 {
			return fmt.Sprintf("Repaired %d items", len(result.Repairs))
		}
		return "No repairs needed"
	case models.StepReview:
		if len(result.Issues) > 0 {
			return fmt.Sprintf("%d review issues", len(result.Issues))
		}
		return "Review passed"
	case models.StepImages:
		if result.Pending > 0 {
			return fmt.Sprintf("%d images pending", result.Pending)
		}
		return "Images ready"
	case models.StepEnrichment:
		if result.GuardrailsApplied > 0 {
			return fmt.Sprintf("Applied %d guardrails", result.GuardrailsApplied)
		}
	}
	return ""
}
