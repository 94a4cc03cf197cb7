package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bharathbs2003/cinehack/shared/storage"
	"github.com/bharathbs2003/cinehack/worker/internal/config"
	"github.com/bharathbs2003/cinehack/worker/internal/database"
	"github.com/bharathbs2003/cinehack/worker/internal/diarize"
	"github.com/bharathbs2003/cinehack/worker/internal/emotion"
	"github.com/bharathbs2003/cinehack/worker/internal/media"
	"github.com/bharathbs2003/cinehack/worker/internal/models"
	"github.com/bharathbs2003/cinehack/worker/internal/transcribe"
	"github.com/bharathbs2003/cinehack/worker/internal/translate"
	"github.com/bharathbs2003/cinehack/worker/internal/tts"
	"github.com/bharathbs2003/cinehack/worker/internal/voice"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// presignExpiry is how long the URLs handed to external services stay valid.
const presignExpiry = time.Hour

// Publisher defines the minimal behaviour for publishing next-step messages.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Deps groups common dependencies shared across step processors.
type Deps struct {
	DB        *database.DB
	Jobs      *database.JobStore
	Segments  *database.SegmentStore
	Storage   storage.ObjectStorage
	Publisher Publisher
	Config    *config.Config
	Logger    *zap.Logger

	Media      *media.Tool
	Transcribe *transcribe.Client
	Diarize    *diarize.Client
	Emotion    *emotion.Client
	Translate  *translate.Client
	Synthesis  *tts.Chain
	Voices     *voice.Catalog
}

// Object keys for a job's working artifacts.
func speechAudioKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/audio/speech.wav", jobID)
}

func backgroundKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/audio/background.wav", jobID)
}

func segmentClipKey(jobID uuid.UUID, idx int) string {
	return fmt.Sprintf("jobs/%s/audio/segments/%d.wav", jobID, idx)
}

func dubAudioKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/audio/dub.wav", jobID)
}

func speakersKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/meta/speakers.json", jobID)
}

func transcriptKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/meta/transcript.json", jobID)
}

func resultVideoKey(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/result/dubbed.mp4", jobID)
}

// parsePayload decodes the message payload map into a typed payload struct.
func parsePayload(msg models.JobMessage, out interface{}) error {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}
	return nil
}

// nextMessage builds the message for the following pipeline step.
func nextMessage(jobID uuid.UUID, step, traceID string, payload interface{}) (models.JobMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.JobMessage{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var payloadMap map[string]interface{}
	if err := json.Unmarshal(raw, &payloadMap); err != nil {
		return models.JobMessage{}, fmt.Errorf("failed to build payload: %w", err)
	}

	return models.JobMessage{
		JobID:     jobID.String(),
		Step:      step,
		Attempt:   1,
		TraceID:   traceID,
		CreatedAt: time.Now().Format(time.RFC3339),
		Payload:   payloadMap,
	}, nil
}

// downloadToFile fetches an object into a file under the OS temp directory
// and returns its path. The caller owns removing the file.
func downloadToFile(ctx context.Context, store storage.ObjectStorage, key, pattern string) (string, error) {
	reader, err := store.GetObject(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer reader.Close()

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return path, nil
}

// uploadFile pushes a local file into object storage.
func uploadFile(ctx context.Context, store storage.ObjectStorage, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("refusing to upload empty file as %s", key)
	}

	return store.PutObject(ctx, key, f, stat.Size(), contentType)
}

// uploadJSON marshals v and stores it under key.
func uploadJSON(ctx context.Context, store storage.ObjectStorage, key string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return store.PutObject(ctx, key, bytes.NewReader(raw), int64(len(raw)), "application/json")
}
