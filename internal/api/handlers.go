package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"coursegen-worker/internal/jobs"
	"coursegen-worker/internal/phases"
	"coursegen-worker/internal/validation"
	"coursegen-worker/pkg/models"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	deps      RouterDeps
	validator *validation.APIValidator
}

func NewHandlers(deps RouterDeps, validator *validation.APIValidator) *Handlers {
	return &Handlers{
		deps:      deps,
		validator: validator,
	}
}

// Health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "coursegen-worker",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitJob accepts a generation request, runs admission control and queues
// the job. The call returns 202 immediately; the pipeline runs in the worker
// pool.
func (h *Handlers) SubmitJob(c *gin.Context) {
	var req models.SubmitRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	validationResult := h.validator.ValidateSubmitRequest(&req)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Validation failed",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	job, err := h.deps.JobService.SubmitJob(c.Request.Context(), &req)
	if err != nil {
		var denied *jobs.AdmissionDeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":  denied.Error(),
				"window": denied.Window,
				"limit":  denied.Limit,
			})
			return
		}

		log.Printf("Failed to submit job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Job submitted: %s (owner %s, type %s)", job.ID, job.OwnerID, job.JobType)
	c.JSON(http.StatusAccepted, job.ToResponse())
}

// GetJob returns the job record.
func (h *Handlers) GetJob(c *gin.Context) {
	jobID, validationResult := h.validator.ValidateJobIDParam(c.Param("id"))
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Invalid job ID",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	job, err := h.deps.JobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job.ToResponse())
}

// GetJobPhases returns the per-phase view derived from the job summary.
func (h *Handlers) GetJobPhases(c *gin.Context) {
	jobID, validationResult := h.validator.ValidateJobIDParam(c.Param("id"))
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Invalid job ID",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	job, err := h.deps.JobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	views := phases.Extract(job.Status, job.CurrentStep, job.Summary)
	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"status": job.Status,
		"phases": views,
	})
}

// ListJobs lists jobs with optional status and owner filters.
func (h *Handlers) ListJobs(c *gin.Context) {
	status := c.Query("status")
	ownerID := c.Query("owner_id")

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	validationResult := h.validator.ValidateListParams(status, ownerID, limit)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Invalid query parameters",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	jobList, err := h.deps.JobService.ListJobs(c.Request.Context(), status, ownerID)
	if err != nil {
		log.Printf("Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]*models.JobResponse, len(jobList))
	for i, job := range jobList {
		responses[i] = job.ToResponse()
	}

	c.JSON(http.StatusOK, gin.H{"jobs": responses, "count": len(responses)})
}

// GetQuota returns the owner's rolling submission counters.
func (h *Handlers) GetQuota(c *gin.Context) {
	ownerID := c.Param("ownerId")

	validationResult := h.validator.ValidateOwnerIDParam(ownerID)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Invalid owner ID",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	record, err := h.deps.JobService.Quota(c.Request.Context(), ownerID)
	if err != nil {
		log.Printf("Failed to read quota for %s: %v", ownerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetCourseArtifact streams the stored course artifact back to the caller.
func (h *Handlers) GetCourseArtifact(c *gin.Context) {
	courseID, validationResult := h.validator.ValidateCourseIDParam(c.Param("id"))
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Invalid course ID",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	exists, err := h.deps.Artifacts.ArtifactExists(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}

	draft, err := h.deps.Artifacts.DownloadArtifact(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, draft)
}

// GetWorkerStats returns the pool snapshot, or a stub when the API runs
// without workers.
func (h *Handlers) GetWorkerStats(c *gin.Context) {
	if h.deps.Pool == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}

	c.JSON(http.StatusOK, h.deps.Pool.GetStats())
}
