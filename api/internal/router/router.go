package router

import (
	"net/http"

	"github.com/bharathbs2003/cinehack/api/internal/database"
	"github.com/bharathbs2003/cinehack/api/internal/handlers"
	"github.com/bharathbs2003/cinehack/api/internal/orchestrator"
	"github.com/bharathbs2003/cinehack/api/internal/service"
	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/shared/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// New wires the job service stack and returns the configured engine.
func New(db *database.DB, store *storage.Service, publisher *queue.Publisher, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	jobRepo := orchestrator.NewDBJobRepository(db)
	jobOrchestrator := orchestrator.NewJobOrchestrator(publisher, jobRepo)
	jobService := service.NewJobService(db, store, jobOrchestrator)
	jobHandler := handlers.NewJobHandler(jobService, logger)

	jobs := r.Group("/api/v1/jobs")
	{
		jobs.POST("", jobHandler.CreateJob)
		jobs.GET("", jobHandler.ListJobs)
		jobs.GET("/:job_id", jobHandler.GetJob)
		jobs.GET("/:job_id/transcript", jobHandler.GetTranscript)
		jobs.GET("/:job_id/download", jobHandler.GetDownload)
		jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
		jobs.DELETE("/:job_id", jobHandler.DeleteJob)
	}

	return r
}
