package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bharathbs2003/cinehack/api/internal/models"
	"github.com/bharathbs2003/cinehack/shared/queue"
)

// DefaultJobOrchestrator owns the entrypoint of the job state machine: it
// publishes the first pipeline step and confirms the queued status, keeping
// the API service focused on validation and persistence.
type DefaultJobOrchestrator struct {
	publisher QueuePublisher
	repo      JobRepository
}

// NewJobOrchestrator builds a DefaultJobOrchestrator.
func NewJobOrchestrator(publisher QueuePublisher, repo JobRepository) *DefaultJobOrchestrator {
	return &DefaultJobOrchestrator{
		publisher: publisher,
		repo:      repo,
	}
}

// StartJob kicks off the pipeline by publishing the extract_audio step.
func (o *DefaultJobOrchestrator) StartJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	msg := map[string]interface{}{
		"job_id":     job.ID.String(),
		"step":       "extract_audio",
		"attempt":    1,
		"trace_id":   uuid.New().String(),
		"created_at": now.Format(time.RFC3339),
		"payload": map[string]interface{}{
			"source_video_key": job.SourceVideoKey,
			"speech_audio_key": fmt.Sprintf("jobs/%s/audio/speech.wav", job.ID),
			"background_key":   fmt.Sprintf("jobs/%s/audio/background.wav", job.ID),
		},
	}

	if err := o.publisher.Publish(ctx, queue.RoutingKey("extract_audio"), msg); err != nil {
		return fmt.Errorf("publish initial step: %w", err)
	}

	if err := o.repo.UpdateStatus(ctx, job.ID, models.JobStatusQueued, now); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	job.Status = models.JobStatusQueued
	job.UpdatedAt = now
	return nil
}
