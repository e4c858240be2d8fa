package validation

import (
	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// APIValidator adapts the validation service to the shapes the HTTP handlers
// work with (path parameters arrive as strings).
type APIValidator struct {
	validationService *ValidationService
}

func NewAPIValidator(config *ValidationConfig) *APIValidator {
	return &APIValidator{
		validationService: NewValidationService(config),
	}
}

// ValidateSubmitRequest validates a full submission body.
func (av *APIValidator) ValidateSubmitRequest(req *models.SubmitRequest) *ValidationResult {
	return av.validationService.ValidateSubmitRequest(req)
}

// ValidateJobIDParam validates and parses a job id path parameter.
func (av *APIValidator) ValidateJobIDParam(jobIDStr string) (uuid.UUID, *ValidationResult) {
	result := av.validationService.ValidateJobID(jobIDStr)

	if !result.Valid {
		return uuid.Nil, result
	}

	jobID, _ := uuid.Parse(jobIDStr)
	return jobID, result
}

// ValidateCourseIDParam validates and parses a course id path parameter.
func (av *APIValidator) ValidateCourseIDParam(courseIDStr string) (uuid.UUID, *ValidationResult) {
	result := av.validationService.ValidateCourseID(courseIDStr)

	if !result.Valid {
		return uuid.Nil, result
	}

	courseID, _ := uuid.Parse(courseIDStr)
	return courseID, result
}

// ValidateOwnerIDParam validates an owner id path parameter.
func (av *APIValidator) ValidateOwnerIDParam(ownerID string) *ValidationResult {
	return av.validationService.ValidateOwnerID(ownerID)
}

// ValidateListParams validates the job list query parameters.
func (av *APIValidator) ValidateListParams(status, ownerID string, limit int) *ValidationResult {
	return av.validationService.ValidateListParams(status, ownerID, limit)
}
