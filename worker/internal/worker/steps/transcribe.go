package steps

import (
	"context"
	"fmt"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TranscribeProcessor runs speech recognition over the extracted speech
// track and seeds the segment timeline.
type TranscribeProcessor struct {
	deps Deps
}

func NewTranscribeProcessor(deps Deps) *TranscribeProcessor {
	return &TranscribeProcessor{deps: deps}
}

func (p *TranscribeProcessor) Name() string {
	return "transcribe"
}

func (p *TranscribeProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.TranscribePayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	audioURL, err := p.deps.Storage.PresignedGetURL(ctx, payload.SpeechAudioKey, presignExpiry)
	if err != nil {
		return fmt.Errorf("failed to presign speech audio: %w", err)
	}

	result, err := p.deps.Transcribe.Transcribe(ctx, audioURL, payload.Language)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if len(result.Segments) == 0 {
		return fmt.Errorf("no speech detected in source audio")
	}

	if err := p.deps.Segments.Replace(ctx, jobID, result.Segments); err != nil {
		return err
	}

	p.deps.Logger.Info("Transcription stored",
		zap.String("job_id", jobID.String()),
		zap.Int("segments", len(result.Segments)),
		zap.String("language", result.Language),
	)

	job, err := p.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	next, err := nextMessage(jobID, "diarize", msg.TraceID, models.DiarizePayload{
		SpeechAudioKey: payload.SpeechAudioKey,
		BackgroundKey:  payload.BackgroundKey,
		MinSpeakers:    job.MinSpeakers,
		MaxSpeakers:    job.MaxSpeakers,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("diarize"), next); err != nil {
		return fmt.Errorf("failed to publish diarize step: %w", err)
	}

	return nil
}
