package steps

import (
	"context"
	"fmt"
	"os"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExtractAudioProcessor pulls two audio tracks out of the source video: a
// 16 kHz mono speech track for the recognition services and a full-bandwidth
// mono track kept as the background bed for reconstruction.
type ExtractAudioProcessor struct {
	deps Deps
}

func NewExtractAudioProcessor(deps Deps) *ExtractAudioProcessor {
	return &ExtractAudioProcessor{deps: deps}
}

func (p *ExtractAudioProcessor) Name() string {
	return "extract_audio"
}

func (p *ExtractAudioProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.ExtractAudioPayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	p.deps.Logger.Info("Extracting audio",
		zap.String("job_id", jobID.String()),
		zap.String("source_video_key", payload.SourceVideoKey),
	)

	videoPath, err := downloadToFile(ctx, p.deps.Storage, payload.SourceVideoKey, "source-*.mp4")
	if err != nil {
		return err
	}
	defer os.Remove(videoPath)

	speechPath := videoPath + "-speech.wav"
	if err := p.deps.Media.ExtractSpeech(ctx, videoPath, speechPath); err != nil {
		return err
	}
	defer os.Remove(speechPath)

	backgroundPath := videoPath + "-background.wav"
	if err := p.deps.Media.ExtractBackground(ctx, videoPath, backgroundPath, p.deps.Config.Audio.TrackSampleRate); err != nil {
		return err
	}
	defer os.Remove(backgroundPath)

	speechKey := payload.SpeechAudioKey
	if speechKey == "" {
		speechKey = speechAudioKey(jobID)
	}
	bgKey := payload.BackgroundKey
	if bgKey == "" {
		bgKey = backgroundKey(jobID)
	}

	if err := uploadFile(ctx, p.deps.Storage, speechKey, speechPath, "audio/wav"); err != nil {
		return fmt.Errorf("failed to upload speech track: %w", err)
	}
	if err := uploadFile(ctx, p.deps.Storage, bgKey, backgroundPath, "audio/wav"); err != nil {
		return fmt.Errorf("failed to upload background track: %w", err)
	}

	job, err := p.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	next, err := nextMessage(jobID, "transcribe", msg.TraceID, models.TranscribePayload{
		SpeechAudioKey: speechKey,
		BackgroundKey:  bgKey,
		Language:       job.SourceLanguage,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("transcribe"), next); err != nil {
		return fmt.Errorf("failed to publish transcribe step: %w", err)
	}

	return nil
}
