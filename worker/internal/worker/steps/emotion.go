package steps

import (
	"context"
	"fmt"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/emotion"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmotionProcessor annotates each segment with an emotion label. The
// classifier is optional; any failure leaves the segments neutral and the
// pipeline moves on.
type EmotionProcessor struct {
	deps Deps
}

func NewEmotionProcessor(deps Deps) *EmotionProcessor {
	return &EmotionProcessor{deps: deps}
}

func (p *EmotionProcessor) Name() string {
	return "emotion"
}

func (p *EmotionProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.EmotionPayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	segments, err := p.deps.Segments.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no segments to annotate")
	}

	emotions := p.annotate(ctx, jobID, payload, segments)
	for i, seg := range segments {
		if err := p.deps.Segments.UpdateEmotion(ctx, jobID, seg.Idx, emotions[i]); err != nil {
			return fmt.Errorf("failed to store emotion for segment %d: %w", seg.Idx, err)
		}
	}

	job, err := p.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	next, err := nextMessage(jobID, "translate", msg.TraceID, models.TranslatePayload{
		SourceLanguage: job.SourceLanguage,
		TargetLanguage: job.TargetLanguage,
		BackgroundKey:  payload.BackgroundKey,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("translate"), next); err != nil {
		return fmt.Errorf("failed to publish translate step: %w", err)
	}

	return nil
}

// annotate calls the emotion service when configured. The returned slice is
// index-aligned with segments and defaults to neutral on any failure.
func (p *EmotionProcessor) annotate(ctx context.Context, jobID uuid.UUID, payload models.EmotionPayload, segments []models.TimeSegment) []string {
	neutral := func() []string {
		labels := make([]string, len(segments))
		for i := range labels {
			labels[i] = emotion.Neutral
		}
		return labels
	}

	if !p.deps.Emotion.Enabled() {
		return neutral()
	}

	audioURL, err := p.deps.Storage.PresignedGetURL(ctx, payload.SpeechAudioKey, presignExpiry)
	if err != nil {
		p.deps.Logger.Warn("Emotion annotation skipped, presign failed",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
		return neutral()
	}

	emotions, err := p.deps.Emotion.Annotate(ctx, audioURL, segments)
	if err != nil {
		p.deps.Logger.Warn("Emotion annotation failed, keeping neutral labels",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
	}
	return emotions
}
