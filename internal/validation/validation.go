// Package validation checks API inputs before they reach the job service.
package validation

import (
	"fmt"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// ValidationConfig bounds the accepted request shapes.
type ValidationConfig struct {
	MaxOwnerIDLength int
	MaxPayloadKeys   int
	MaxKeyLength     int
	MaxValueLength   int
	AllowedJobTypes  map[string]bool
	AllowedStatuses  map[string]bool
	MaxListLimit     int
}

func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxOwnerIDLength: 64,
		MaxPayloadKeys:   50,
		MaxKeyLength:     100,
		MaxValueLength:   10000,
		AllowedJobTypes: map[string]bool{
			"generate_course": true,
			"generate_quiz":   true,
			"rewrite_lesson":  true,
		},
		AllowedStatuses: map[string]bool{
			string(models.StatusQueued):     true,
			string(models.StatusProcessing): true,
			string(models.StatusDone):       true,
			string(models.StatusFailed):     true,
			string(models.StatusCancelled):  true,
		},
		MaxListLimit: 100,
	}
}

type ValidationService struct {
	config *ValidationConfig
}

func NewValidationService(config *ValidationConfig) *ValidationService {
	if config == nil {
		config = DefaultValidationConfig()
	}

	return &ValidationService{
		config: config,
	}
}

// ValidationError carries the field and a stable code so clients can react
// programmatically.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []*ValidationError `json:"errors,omitempty"`
}

func (vr *ValidationResult) AddError(field, value, message, code string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

// ValidateJobID checks a job id path parameter.
func (vs *ValidationService) ValidateJobID(jobID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if jobID == "" {
		result.AddError("job_id", "", "job ID is required", "REQUIRED")
		return result
	}

	if _, err := uuid.Parse(jobID); err != nil {
		result.AddError("job_id", jobID, "job ID must be a valid UUID", "INVALID_UUID")
	}

	return result
}

// ValidateCourseID checks a course id path parameter.
func (vs *ValidationService) ValidateCourseID(courseID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if courseID == "" {
		result.AddError("course_id", "", "course ID is required", "REQUIRED")
		return result
	}

	if _, err := uuid.Parse(courseID); err != nil {
		result.AddError("course_id", courseID, "course ID must be a valid UUID", "INVALID_UUID")
	}

	return result
}

// ValidateOwnerID checks an owner identifier.
func (vs *ValidationService) ValidateOwnerID(ownerID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if ownerID == "" {
		result.AddError("owner_id", "", "owner ID is required", "REQUIRED")
		return result
	}

	if len(ownerID) > vs.config.MaxOwnerIDLength {
		result.AddError("owner_id", ownerID,
			fmt.Sprintf("owner ID too long (max %d characters)", vs.config.MaxOwnerIDLength),
			"TOO_LONG")
	}

	return result
}

// ValidateSubmitRequest checks a full job submission.
func (vs *ValidationService) ValidateSubmitRequest(req *models.SubmitRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if req == nil {
		result.AddError("request", "", "request body is required", "REQUIRED")
		return result
	}

	ownerResult := vs.ValidateOwnerID(req.OwnerID)
	if !ownerResult.Valid {
		result.Valid = false
		result.Errors = append(result.Errors, ownerResult.Errors...)
	}

	if req.JobType == "" {
		result.AddError("job_type", "", "job type is required", "REQUIRED")
	} else if !vs.config.AllowedJobTypes[req.JobType] {
		result.AddError("job_type", req.JobType,
			fmt.Sprintf("unknown job type: %s", req.JobType),
			"UNKNOWN_JOB_TYPE")
	}

	payloadResult := vs.validatePayload(req.Payload)
	if !payloadResult.Valid {
		result.Valid = false
		result.Errors = append(result.Errors, payloadResult.Errors...)
	}

	return result
}

func (vs *ValidationService) validatePayload(payload map[string]interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if payload == nil {
		return result // payload is optional
	}

	if len(payload) > vs.config.MaxPayloadKeys {
		result.AddError("payload", fmt.Sprintf("%d keys", len(payload)),
			fmt.Sprintf("too many payload keys (max %d)", vs.config.MaxPayloadKeys),
			"TOO_MANY_KEYS")
	}

	for key, value := range payload {
		if len(key) > vs.config.MaxKeyLength {
			result.AddError("payload", key,
				fmt.Sprintf("payload key too long (max %d characters): %s", vs.config.MaxKeyLength, key),
				"KEY_TOO_LONG")
		}

		valueStr := fmt.Sprintf("%v", value)
		if len(valueStr) > vs.config.MaxValueLength {
			result.AddError("payload", key,
				fmt.Sprintf("payload value too long (max %d characters) for key: %s", vs.config.MaxValueLength, key),
				"VALUE_TOO_LONG")
		}
	}

	return result
}

// ValidateListParams checks the query parameters of the job list endpoint.
func (vs *ValidationService) ValidateListParams(status, ownerID string, limit int) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if status != "" && !vs.config.AllowedStatuses[status] {
		result.AddError("status", status,
			fmt.Sprintf("unknown status: %s", status),
			"UNKNOWN_STATUS")
	}

	if ownerID != "" {
		ownerResult := vs.ValidateOwnerID(ownerID)
		if !ownerResult.Valid {
			result.Valid = false
			result.Errors = append(result.Errors, ownerResult.Errors...)
		}
	}

	if limit < 0 || limit > vs.config.MaxListLimit {
		result.AddError("limit", fmt.Sprintf("%d", limit),
			fmt.Sprintf("limit must be between 0 and %d", vs.config.MaxListLimit),
			"INVALID_LIMIT")
	}

	return result
}
