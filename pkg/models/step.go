package models

// Step is one step of the generation pipeline. The six primary phases are
// followed by housekeeping steps and the terminal marker.
type Step string

const (
	StepGeneration    Step = "generation"
	StepValidation    Step = "validation"
	StepRepair        Step = "repair"
	StepReview        Step = "review"
	StepImages        Step = "images"
	StepEnrichment    Step = "enrichment"
	StepStorageWrite  Step = "storage_write"
	StepCatalogUpdate Step = "catalog_update"
	StepVerifying     Step = "verifying"
	StepDone          Step = "done"
)

// PrimaryPhases is the ordered list of phases surfaced to status observers.
// Housekeeping steps (storage_write, catalog_update, verifying) map past the
// end of this list so observers see all phases complete while they run.
var PrimaryPhases = []Step{
	StepGeneration,
	StepValidation,
	StepRepair,
	StepReview,
	StepImages,
	StepEnrichment,
}

// UnknownStepIndex is the sentinel returned by StepIndex for steps that are
// not part of the pipeline.
const UnknownStepIndex = -1

var stepIndex = map[Step]int{
	StepGeneration:    0,
	StepValidation:    1,
	StepRepair:        2,
	StepReview:        3,
	StepImages:        4,
	StepEnrichment:    5,
	StepStorageWrite:  len(PrimaryPhases),
	StepCatalogUpdate: len(PrimaryPhases),
	StepVerifying:     len(PrimaryPhases),
	StepDone:          len(PrimaryPhases),
}

// StepIndex returns the position of a step relative to PrimaryPhases.
// Housekeeping steps and done map to len(PrimaryPhases); unknown steps map to
// UnknownStepIndex.
func StepIndex(s Step) int {
	if idx, ok := stepIndex[s]; ok {
		return idx
	}
	return UnknownStepIndex
}

// IsPrimary reports whether the step is one of the six observer-visible phases.
func (s Step) IsPrimary() bool {
	idx, ok := stepIndex[s]
	return ok && idx < len(PrimaryPhases)
}
