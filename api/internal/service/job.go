package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/bharathbs2003/cinehack/api/internal/database"
	"github.com/bharathbs2003/cinehack/api/internal/models"
	"github.com/bharathbs2003/cinehack/api/internal/orchestrator"
	"github.com/bharathbs2003/cinehack/shared/storage"

	"github.com/google/uuid"
)

var (
	// ErrJobNotFound is returned when the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCompleted is returned when a result is requested before the
	// job has finished.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrJobNotCancelable is returned when cancellation is requested for a
	// job that already reached a terminal state.
	ErrJobNotCancelable = errors.New("job already finished")
)

// JobService handles dubbing job business logic.
type JobService struct {
	db           *database.DB
	storage      storage.ObjectStorage
	orchestrator orchestrator.JobOrchestrator
}

// NewJobService creates a new job service.
func NewJobService(db *database.DB, store storage.ObjectStorage, orch orchestrator.JobOrchestrator) *JobService {
	return &JobService{
		db:           db,
		storage:      store,
		orchestrator: orch,
	}
}

// CreateJobParams carries the user-facing settings of a new job.
type CreateJobParams struct {
	SourceLanguage string
	TargetLanguage string
	MinSpeakers    int
	MaxSpeakers    int
}

// CreateJob uploads the source video, persists the job row and starts the
// pipeline.
func (s *JobService) CreateJob(ctx context.Context, file *multipart.FileHeader, params CreateJobParams) (*models.Job, error) {
	jobID := uuid.New()
	videoKey := fmt.Sprintf("jobs/%s/source%s", jobID, filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	if err := s.storage.PutObject(ctx, videoKey, src, file.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	now := time.Now()
	job := &models.Job{
		ID:             jobID,
		Status:         models.JobStatusQueued,
		Progress:       0,
		SourceVideoKey: videoKey,
		SourceLanguage: params.SourceLanguage,
		TargetLanguage: params.TargetLanguage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if params.MinSpeakers > 0 {
		job.MinSpeakers = &params.MinSpeakers
	}
	if params.MaxSpeakers > 0 {
		job.MaxSpeakers = &params.MaxSpeakers
	}

	query := `
		INSERT INTO jobs (
			id, status, progress,
			source_video_key, source_language, target_language,
			min_speakers, max_speakers,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Progress,
		job.SourceVideoKey, job.SourceLanguage, job.TargetLanguage,
		job.MinSpeakers, job.MaxSpeakers,
		job.CreatedAt, job.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.orchestrator.StartJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to start job: %w", err)
	}

	return job, nil
}

// GetJobWithSteps retrieves a job with its pipeline step history.
func (s *JobService) GetJobWithSteps(ctx context.Context, jobID uuid.UUID) (*models.Job, []models.JobStep, error) {
	var job models.Job
	query := `
		SELECT id, status, progress, stage, error,
		       source_video_key, source_language, target_language,
		       min_speakers, max_speakers,
		       dub_audio_key, transcript_key, result_video_key,
		       created_at, updated_at
		FROM jobs WHERE id = $1
	`
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Status, &job.Progress, &job.Stage, &job.Error,
		&job.SourceVideoKey, &job.SourceLanguage, &job.TargetLanguage,
		&job.MinSpeakers, &job.MaxSpeakers,
		&job.DubAudioKey, &job.TranscriptKey, &job.ResultVideoKey,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, fmt.Errorf("failed to get job: %w", err)
	}

	stepsQuery := `
		SELECT id, job_id, step, status, attempt, started_at, ended_at, error, metrics_json, created_at, updated_at
		FROM job_steps WHERE job_id = $1 ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, stepsQuery, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get job steps: %w", err)
	}
	defer rows.Close()

	var steps []models.JobStep
	for rows.Next() {
		var step models.JobStep
		if err := rows.Scan(
			&step.ID, &step.JobID, &step.Step, &step.Status, &step.Attempt,
			&step.StartedAt, &step.EndedAt, &step.Error, &step.MetricsJSON,
			&step.CreatedAt, &step.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}

	return &job, steps, rows.Err()
}

// GetTranscript returns the job's bilingual segment timeline.
func (s *JobService) GetTranscript(ctx context.Context, jobID uuid.UUID) ([]models.Segment, error) {
	job, _, err := s.GetJobWithSteps(ctx, jobID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, job_id, idx, start_ms, end_ms, duration_ms,
		       src_text, translated_text, speaker, emotion, audio_key,
		       created_at, updated_at
		FROM segments WHERE job_id = $1 ORDER BY idx
	`
	rows, err := s.db.QueryContext(ctx, query, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(
			&seg.ID, &seg.JobID, &seg.Idx, &seg.StartMs, &seg.EndMs, &seg.DurationMs,
			&seg.SrcText, &seg.TranslatedText, &seg.Speaker, &seg.Emotion, &seg.AudioKey,
			&seg.CreatedAt, &seg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}

	return segments, rows.Err()
}

// GetDownloadURL generates a presigned download URL for a job artifact.
func (s *JobService) GetDownloadURL(ctx context.Context, jobID uuid.UUID, downloadType string) (string, error) {
	job, _, err := s.GetJobWithSteps(ctx, jobID)
	if err != nil {
		return "", err
	}

	var key *string
	switch downloadType {
	case "video":
		key = job.ResultVideoKey
	case "audio":
		key = job.DubAudioKey
	case "transcript":
		key = job.TranscriptKey
	default:
		return "", fmt.Errorf("invalid download type: %s", downloadType)
	}
	if key == nil {
		return "", ErrJobNotCompleted
	}

	url, err := s.storage.PresignedGetURL(ctx, *key, time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// ListJobs lists jobs with pagination and an optional status filter.
func (s *JobService) ListJobs(ctx context.Context, status string, page, pageSize int) ([]models.Job, int, error) {
	offset := (page - 1) * pageSize

	var query string
	var countQuery string
	var args []interface{}

	if status != "" {
		query = `SELECT id, status, progress, stage, error, source_language, target_language, created_at, updated_at
		         FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		countQuery = `SELECT COUNT(*) FROM jobs WHERE status = $1`
		args = []interface{}{status, pageSize, offset}
	} else {
		query = `SELECT id, status, progress, stage, error, source_language, target_language, created_at, updated_at
		         FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		countQuery = `SELECT COUNT(*) FROM jobs`
		args = []interface{}{pageSize, offset}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(
			&job.ID, &job.Status, &job.Progress, &job.Stage, &job.Error,
			&job.SourceLanguage, &job.TargetLanguage,
			&job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, total, rows.Err()
}

// CancelJob marks a queued or processing job as canceled. Workers drop any
// in-flight step messages for canceled jobs.
func (s *JobService) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3 AND status IN ($4, $5)`,
		models.JobStatusCanceled, time.Now(), jobID,
		models.JobStatusQueued, models.JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cancellation: %w", err)
	}
	if affected > 0 {
		// Drop intermediate audio; the source object is kept.
		_ = s.storage.DeletePrefix(ctx, fmt.Sprintf("jobs/%s/audio/", jobID))
		return nil
	}

	// Distinguish a missing job from one already finished.
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)", jobID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrJobNotCancelable
}

// DeleteJob deletes a job, its steps and segments, and its stored artifacts.
func (s *JobService) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)", jobID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}

	// Cascade removes steps and segments.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", jobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	if err := s.storage.DeletePrefix(ctx, fmt.Sprintf("jobs/%s/", jobID)); err != nil {
		return fmt.Errorf("failed to delete job artifacts: %w", err)
	}

	return nil
}
