package api

import (
	"coursegen-worker/internal/jobs"
	"coursegen-worker/internal/storage"
	"coursegen-worker/internal/validation"
	"coursegen-worker/internal/worker"

	"github.com/gin-gonic/gin"
)

// RouterDeps carries everything the HTTP layer needs. The worker pool is
// optional so tests can run the API without background workers.
type RouterDeps struct {
	JobService jobs.JobService
	Artifacts  *storage.ArtifactService
	Pool       *worker.WorkerPool
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(SecurityHeadersMiddleware())

	validator := validation.NewAPIValidator(nil)
	handlers := NewHandlers(deps, validator)

	r.GET("/health", handlers.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/jobs", handlers.SubmitJob)
		api.GET("/jobs", handlers.ListJobs)
		api.GET("/jobs/:id", handlers.GetJob)
		api.GET("/jobs/:id/phases", handlers.GetJobPhases)
		api.GET("/quota/:ownerId", handlers.GetQuota)
		api.GET("/courses/:id/artifact", handlers.GetCourseArtifact)
		api.GET("/worker/stats", handlers.GetWorkerStats)
	}

	return r
}
