package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses as stored in the jobs table.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusError      = "error"
	JobStatusCanceled   = "canceled"
)

// JobInfo is the subset of the job row the pipeline steps need.
type JobInfo struct {
	ID             uuid.UUID
	Status         string
	SourceVideoKey string
	SourceLanguage string
	TargetLanguage string
	MinSpeakers    int
	MaxSpeakers    int
	CreatedAt      time.Time
}

// JobStore reads and updates job rows from the worker side.
type JobStore struct {
	db *DB
}

// NewJobStore creates a job store.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// Get loads the job row.
func (s *JobStore) Get(ctx context.Context, jobID uuid.UUID) (*JobInfo, error) {
	query := `
		SELECT id, status, source_video_key, source_language, target_language,
		       COALESCE(min_speakers, 0), COALESCE(max_speakers, 0), created_at
		FROM jobs WHERE id = $1
	`
	var job JobInfo
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Status, &job.SourceVideoKey,
		&job.SourceLanguage, &job.TargetLanguage,
		&job.MinSpeakers, &job.MaxSpeakers, &job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

// SetStatus updates the job status and optional error message.
func (s *JobStore) SetStatus(ctx context.Context, jobID uuid.UUID, status string, errorMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		status, errorMsg, time.Now(), jobID,
	)
	return err
}

// SetProgress advances the progress and stage of a running job. Progress
// never moves backwards, so a redelivered earlier step cannot undo what a
// later step already reported.
func (s *JobStore) SetProgress(ctx context.Context, jobID uuid.UUID, progress int, stage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = GREATEST(progress, $1), stage = $2, updated_at = $3 WHERE id = $4 AND progress <= $1`,
		progress, stage, time.Now(), jobID,
	)
	return err
}

// SetDubAudioKey records where the reconstructed dub track landed.
func (s *JobStore) SetDubAudioKey(ctx context.Context, jobID uuid.UUID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET dub_audio_key = $1, updated_at = $2 WHERE id = $3`,
		key, time.Now(), jobID,
	)
	return err
}

// SetTranscriptKey records where the transcript artifact landed.
func (s *JobStore) SetTranscriptKey(ctx context.Context, jobID uuid.UUID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET transcript_key = $1, updated_at = $2 WHERE id = $3`,
		key, time.Now(), jobID,
	)
	return err
}

// SetResultVideoKey records where the final dubbed video landed.
func (s *JobStore) SetResultVideoKey(ctx context.Context, jobID uuid.UUID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET result_video_key = $1, updated_at = $2 WHERE id = $3`,
		key, time.Now(), jobID,
	)
	return err
}
