package steps

import (
	"context"
	"fmt"
	"os"

	"github.com/bharathbs2003/cinehack/worker/internal/database"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MuxVideoProcessor replaces the source video's audio with the dub track
// and publishes the finished video. This is the terminal pipeline step; it
// marks the job done.
type MuxVideoProcessor struct {
	deps Deps
}

func NewMuxVideoProcessor(deps Deps) *MuxVideoProcessor {
	return &MuxVideoProcessor{deps: deps}
}

func (p *MuxVideoProcessor) Name() string {
	return "mux_video"
}

func (p *MuxVideoProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.MuxVideoPayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	videoPath, err := downloadToFile(ctx, p.deps.Storage, payload.SourceVideoKey, "source-*.mp4")
	if err != nil {
		return err
	}
	defer os.Remove(videoPath)

	audioPath, err := downloadToFile(ctx, p.deps.Storage, payload.DubAudioKey, "dub-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(audioPath)

	outputPath := videoPath + "-dubbed.mp4"
	defer os.Remove(outputPath)

	if err := p.deps.Media.Mux(ctx, videoPath, audioPath, outputPath); err != nil {
		return err
	}

	outputKey := payload.OutputVideoKey
	if outputKey == "" {
		outputKey = resultVideoKey(jobID)
	}
	if err := uploadFile(ctx, p.deps.Storage, outputKey, outputPath, "video/mp4"); err != nil {
		return fmt.Errorf("failed to upload dubbed video: %w", err)
	}

	if err := p.deps.Jobs.SetResultVideoKey(ctx, jobID, outputKey); err != nil {
		return err
	}
	if err := p.deps.Jobs.SetStatus(ctx, jobID, database.JobStatusDone, nil); err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	if err := p.deps.Jobs.SetProgress(ctx, jobID, 100, "done"); err != nil {
		return err
	}

	p.deps.Logger.Info("Dubbed video published",
		zap.String("job_id", jobID.String()),
		zap.String("result_video_key", outputKey),
	)

	return nil
}
