package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a dubbing job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
	JobStatusCanceled   JobStatus = "canceled"
)

// Job represents a video dubbing job.
type Job struct {
	ID             uuid.UUID `json:"job_id" db:"id"`
	Status         JobStatus `json:"status" db:"status"`
	Progress       int       `json:"progress" db:"progress"`
	Stage          *string   `json:"stage,omitempty" db:"stage"`
	Error          *string   `json:"error,omitempty" db:"error"`
	SourceVideoKey string    `json:"-" db:"source_video_key"`
	SourceLanguage string    `json:"source_language" db:"source_language"`
	TargetLanguage string    `json:"target_language" db:"target_language"`
	MinSpeakers    *int      `json:"min_speakers,omitempty" db:"min_speakers"`
	MaxSpeakers    *int      `json:"max_speakers,omitempty" db:"max_speakers"`
	DubAudioKey    *string   `json:"-" db:"dub_audio_key"`
	TranscriptKey  *string   `json:"-" db:"transcript_key"`
	ResultVideoKey *string   `json:"-" db:"result_video_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// JobStepStatus represents the status of a pipeline step.
type JobStepStatus string

const (
	JobStepStatusPending   JobStepStatus = "pending"
	JobStepStatusRunning   JobStepStatus = "running"
	JobStepStatusSucceeded JobStepStatus = "succeeded"
	JobStepStatusFailed    JobStepStatus = "failed"
)

// JobStep represents one pipeline step execution for a job.
type JobStep struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	JobID       uuid.UUID     `json:"job_id" db:"job_id"`
	Step        string        `json:"step" db:"step"`
	Status      JobStepStatus `json:"status" db:"status"`
	Attempt     int           `json:"attempt" db:"attempt"`
	StartedAt   *time.Time    `json:"started_at,omitempty" db:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty" db:"ended_at"`
	Error       *string       `json:"error,omitempty" db:"error"`
	MetricsJSON *string       `json:"metrics_json,omitempty" db:"metrics_json"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Segment represents one span of speech on the job's timeline.
type Segment struct {
	ID             uuid.UUID `json:"id" db:"id"`
	JobID          uuid.UUID `json:"job_id" db:"job_id"`
	Idx            int       `json:"idx" db:"idx"`
	StartMs        int       `json:"start_ms" db:"start_ms"`
	EndMs          int       `json:"end_ms" db:"end_ms"`
	DurationMs     int       `json:"duration_ms" db:"duration_ms"`
	SrcText        string    `json:"src_text" db:"src_text"`
	TranslatedText *string   `json:"translated_text,omitempty" db:"translated_text"`
	Speaker        *string   `json:"speaker,omitempty" db:"speaker"`
	Emotion        *string   `json:"emotion,omitempty" db:"emotion"`
	AudioKey       *string   `json:"audio_key,omitempty" db:"audio_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
