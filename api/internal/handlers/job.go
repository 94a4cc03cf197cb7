package handlers

import (
	"net/http"
	"strconv"

	"github.com/bharathbs2003/cinehack/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobHandler handles dubbing job requests.
type JobHandler struct {
	service *service.JobService
	logger  *zap.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(service *service.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// CreateJobRequest represents the request to create a job.
type CreateJobRequest struct {
	SourceLanguage string `form:"source_language" binding:"omitempty"`
	TargetLanguage string `form:"target_language" binding:"omitempty"`
	MinSpeakers    int    `form:"min_speakers" binding:"omitempty,min=0"`
	MaxSpeakers    int    `form:"max_speakers" binding:"omitempty,min=0"`
}

// CreateJob handles POST /api/v1/jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", err.Error())
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1003, "video upload failed", err.Error())
		return
	}

	if req.SourceLanguage == "" {
		req.SourceLanguage = "en"
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "hi"
	}
	if req.MinSpeakers > 0 && req.MaxSpeakers > 0 && req.MinSpeakers > req.MaxSpeakers {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "min_speakers exceeds max_speakers")
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), file, service.CreateJobParams{
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		MinSpeakers:    req.MinSpeakers,
		MaxSpeakers:    req.MaxSpeakers,
	})
	if err != nil {
		h.logger.Error("Failed to create job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, gin.H{
		"job_id":     job.ID.String(),
		"status":     string(job.Status),
		"created_at": job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// GetJob handles GET /api/v1/jobs/:job_id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	job, steps, err := h.service.GetJobWithSteps(c.Request.Context(), jobID)
	if err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		h.logger.Error("Failed to get job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	stepResponses := make([]gin.H, len(steps))
	for i, step := range steps {
		stepResp := gin.H{
			"step":       step.Step,
			"status":     string(step.Status),
			"attempt":    step.Attempt,
			"started_at": nil,
			"ended_at":   nil,
		}
		if step.StartedAt != nil {
			stepResp["started_at"] = step.StartedAt.Format("2006-01-02T15:04:05Z")
		}
		if step.EndedAt != nil {
			stepResp["ended_at"] = step.EndedAt.Format("2006-01-02T15:04:05Z")
		}
		stepResponses[i] = stepResp
	}

	h.respondSuccess(c, gin.H{
		"job_id":          job.ID.String(),
		"status":          string(job.Status),
		"progress":        job.Progress,
		"stage":           job.Stage,
		"source_language": job.SourceLanguage,
		"target_language": job.TargetLanguage,
		"error":           job.Error,
		"created_at":      job.CreatedAt.Format("2006-01-02T15:04:05Z"),
		"updated_at":      job.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		"steps":           stepResponses,
	})
}

// GetTranscript handles GET /api/v1/jobs/:job_id/transcript.
func (h *JobHandler) GetTranscript(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	segments, err := h.service.GetTranscript(c.Request.Context(), jobID)
	if err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		h.logger.Error("Failed to get transcript", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	entries := make([]gin.H, len(segments))
	for i, seg := range segments {
		entry := gin.H{
			"idx":      seg.Idx,
			"start_ms": seg.StartMs,
			"end_ms":   seg.EndMs,
			"src_text": seg.SrcText,
		}
		if seg.TranslatedText != nil {
			entry["translated_text"] = *seg.TranslatedText
		}
		if seg.Speaker != nil {
			entry["speaker"] = *seg.Speaker
		}
		if seg.Emotion != nil {
			entry["emotion"] = *seg.Emotion
		}
		entries[i] = entry
	}

	h.respondSuccess(c, gin.H{
		"job_id":   jobID.String(),
		"segments": entries,
	})
}

// GetDownload handles GET /api/v1/jobs/:job_id/download.
func (h *JobHandler) GetDownload(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	downloadType := c.DefaultQuery("type", "video")
	url, err := h.service.GetDownloadURL(c.Request.Context(), jobID, downloadType)
	if err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		if err == service.ErrJobNotCompleted {
			h.respondError(c, http.StatusBadRequest, 1005, "artifact not available yet", "")
			return
		}
		h.logger.Error("Failed to get download URL", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, gin.H{
		"download_url": url,
		"expires_in":   3600,
	})
}

// ListJobs handles GET /api/v1/jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	jobs, total, err := h.service.ListJobs(c.Request.Context(), status, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	jobList := make([]gin.H, len(jobs))
	for i, job := range jobs {
		jobList[i] = gin.H{
			"job_id":          job.ID.String(),
			"status":          string(job.Status),
			"progress":        job.Progress,
			"source_language": job.SourceLanguage,
			"target_language": job.TargetLanguage,
			"created_at":      job.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	h.respondSuccess(c, gin.H{
		"jobs":      jobList,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	if err := h.service.CancelJob(c.Request.Context(), jobID); err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		if err == service.ErrJobNotCancelable {
			h.respondError(c, http.StatusConflict, 1006, "job already finished", "")
			return
		}
		h.logger.Error("Failed to cancel job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, gin.H{
		"job_id": jobID.String(),
		"status": "canceled",
	})
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	if err := h.service.DeleteJob(c.Request.Context(), jobID); err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		h.logger.Error("Failed to delete job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, nil)
}

// respondSuccess sends a success response.
func (h *JobHandler) respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// respondError sends an error response.
func (h *JobHandler) respondError(c *gin.Context, statusCode, code int, message, details string) {
	c.JSON(statusCode, gin.H{
		"code":    code,
		"message": message,
		"data":    details,
	})
}
