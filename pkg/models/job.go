package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// JSON type for PostgreSQL compatibility
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}

	if len(bytes) == 0 {
		*j = make(map[string]interface{})
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// StringSlice type for PostgreSQL JSON arrays
type StringSlice []string

func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(ss)
}

func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = []string{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}

	if len(bytes) == 0 {
		*ss = []string{}
		return nil
	}

	return json.Unmarshal(bytes, ss)
}

// TimelineEvent is one entry of the per-job event log. Events are appended in
// phase order and never reordered.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     Step      `json:"phase"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // "info", "warn" or "error"
}

// RepairEntry records one item touched by the repair phase.
type RepairEntry struct {
	ItemID string `json:"itemId"`
	Issue  string `json:"issue"`
	Fixed  bool   `json:"fixed"`
}

// PhaseResult is the result shape of a single phase. Fields are a union over
// all phases; each phase fills only the fields it owns. Entries are append-only
// once written, except validation which the repair phase rewrites exactly once.
type PhaseResult struct {
	ItemsProcessed    int           `json:"itemsProcessed,omitempty"`
	AICalls           int           `json:"aiCalls,omitempty"`
	DurationMs        int64         `json:"durationMs,omitempty"`
	Errors            []string      `json:"errors,omitempty"`
	Repairs           []RepairEntry `json:"repairs,omitempty"`
	Issues            []string      `json:"issues,omitempty"`
	Pending           int           `json:"pending,omitempty"`
	GuardrailsApplied int           `json:"guardrailsApplied,omitempty"`
}

// SummaryMetrics is the cross-phase rollup.
type SummaryMetrics struct {
	TotalItems    int     `json:"totalItems"`
	TotalRepairs  int     `json:"totalRepairs"`
	TotalAICalls  int     `json:"totalAICalls"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// JobSummary accumulates per-phase results, the metrics rollup and the
// timeline. Stored as a single JSONB column.
type JobSummary struct {
	Phases   map[Step]PhaseResult `json:"phases"`
	Metrics  SummaryMetrics       `json:"metrics"`
	Timeline []TimelineEvent      `json:"timeline"`
}

func NewJobSummary() *JobSummary {
	return &JobSummary{
		Phases:   make(map[Step]PhaseResult),
		Timeline: []TimelineEvent{},
	}
}

// SetPhase records the result for a phase, overwriting any previous entry for
// the same phase (only repair re-running validation does that).
func (s *JobSummary) SetPhase(phase Step, result PhaseResult) {
	if s.Phases == nil {
		s.Phases = make(map[Step]PhaseResult)
	}
	s.Phases[phase] = result
}

// AppendEvent appends a timeline event for the given phase.
func (s *JobSummary) AppendEvent(phase Step, message, severity string) {
	s.Timeline = append(s.Timeline, TimelineEvent{
		Timestamp: time.Now().UTC(),
		Phase:     phase,
		Message:   message,
		Severity:  severity,
	})
}

func (s *JobSummary) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *JobSummary) Scan(value interface{}) error {
	if value == nil {
		*s = *NewJobSummary()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JobSummary", value)
	}

	if len(bytes) == 0 {
		*s = *NewJobSummary()
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Job is the lifecycle record of one generation request. A job is owned and
// exclusively mutated by a single orchestrator run; no other component writes
// to the same id concurrently.
type Job struct {
	ID           uuid.UUID   `json:"id" gorm:"type:uuid;primary_key"`
	OwnerID      string      `json:"owner_id" gorm:"type:varchar(64);not null;index"`
	JobType      string      `json:"job_type" gorm:"type:varchar(64);not null;index"`
	TargetID     uuid.UUID   `json:"target_id" gorm:"type:uuid;not null;index"`
	Status       JobStatus   `json:"status" gorm:"type:varchar(20);not null;default:'queued';index"`
	CurrentStep  Step        `json:"current_step" gorm:"type:varchar(32)"`
	Payload      JSON        `json:"payload" gorm:"type:jsonb;default:'{}'"`
	Summary      *JobSummary `json:"summary" gorm:"type:jsonb"`
	ErrorMessage string      `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time   `json:"updated_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty" gorm:"index"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" gorm:"index"`
}

func (Job) TableName() string {
	return "generation_jobs"
}

// BeforeCreate initializes the ID, timestamps and empty containers.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now

	if j.Payload == nil {
		j.Payload = JSON{}
	}
	if j.Summary == nil {
		j.Summary = NewJobSummary()
	}

	return nil
}

func (j *Job) BeforeUpdate(tx *gorm.DB) error {
	j.UpdatedAt = time.Now()
	return nil
}

// IsTerminal returns true when the job is in a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed || j.Status == StatusCancelled
}

// IsActive returns true while the job is waiting or running.
func (j *Job) IsActive() bool {
	return j.Status == StatusQueued || j.Status == StatusProcessing
}

// SetStatus updates the status with the matching timestamps.
func (j *Job) SetStatus(status JobStatus) {
	j.Status = status
	j.UpdatedAt = time.Now()

	if status == StatusProcessing && j.StartedAt == nil {
		now := time.Now()
		j.StartedAt = &now
	}

	if j.IsTerminal() && j.CompletedAt == nil {
		now := time.Now()
		j.CompletedAt = &now
	}
}

// SubmitRequest is the submission payload accepted by the API.
// @Description Request to submit a new generation job
type SubmitRequest struct {
	OwnerID  string                 `json:"owner_id" binding:"required"`
	JobType  string                 `json:"job_type" binding:"required"`
	TargetID *uuid.UUID             `json:"target_id,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
} // @name SubmitRequest

// JobResponse is the job detail shape returned by the API.
// @Description Full details of a generation job
type JobResponse struct {
	ID           uuid.UUID              `json:"id"`
	OwnerID      string                 `json:"owner_id"`
	JobType      string                 `json:"job_type"`
	TargetID     uuid.UUID              `json:"target_id"`
	Status       JobStatus              `json:"status"`
	CurrentStep  Step                   `json:"current_step,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Summary      *JobSummary            `json:"summary,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
} // @name JobResponse

// ToResponse converts a Job into its API representation. The current step is
// only meaningful while the job is processing or failed and is blanked
// otherwise.
func (j *Job) ToResponse() *JobResponse {
	step := j.CurrentStep
	if j.Status != StatusProcessing && j.Status != StatusFailed {
		step = ""
	}

	return &JobResponse{
		ID:           j.ID,
		OwnerID:      j.OwnerID,
		JobType:      j.JobType,
		TargetID:     j.TargetID,
		Status:       j.Status,
		CurrentStep:  step,
		Payload:      map[string]interface{}(j.Payload),
		Summary:      j.Summary,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}

// JobListResponse is a list of jobs.
// @Description List of jobs
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count" example:"25"`
} // @name JobListResponse
