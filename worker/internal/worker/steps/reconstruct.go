package steps

import (
	"context"
	"fmt"
	"os"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/audio"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// syncDriftToleranceMs is how far the rebuilt track may run past the source
// audio before it is worth flagging in the logs.
const syncDriftToleranceMs = 1500

// ReconstructProcessor lays the synthesized clips onto a fresh timeline at
// their original positions, mixes in the attenuated background bed and
// normalizes the result into the final dub track.
type ReconstructProcessor struct {
	deps Deps
}

func NewReconstructProcessor(deps Deps) *ReconstructProcessor {
	return &ReconstructProcessor{deps: deps}
}

func (p *ReconstructProcessor) Name() string {
	return "reconstruct"
}

func (p *ReconstructProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.ReconstructPayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	segments, err := p.deps.Segments.Load(ctx, jobID)
	if err != nil {
		return err
	}

	placements, cleanup, err := p.downloadClips(ctx, segments)
	defer cleanup()
	if err != nil {
		return err
	}

	backgroundPath := ""
	totalDurationMs := 0
	if payload.BackgroundKey != "" {
		path, err := downloadToFile(ctx, p.deps.Storage, payload.BackgroundKey, "background-*.wav")
		if err != nil {
			p.deps.Logger.Warn("Background track unavailable, building dialogue-only mix",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
		} else {
			defer os.Remove(path)
			backgroundPath = path
			if bg, err := audio.LoadWAV(path); err == nil {
				totalDurationMs = bg.DurationMs()
			}
		}
	}

	reconstructor := audio.NewReconstructor(p.deps.Config.Audio.TrackSampleRate, p.deps.Logger)
	track := reconstructor.Build(placements, backgroundPath, totalDurationMs)
	if track == nil {
		return fmt.Errorf("no segment audio available to reconstruct the dub track")
	}

	if totalDurationMs > 0 && track.DurationMs() > totalDurationMs+syncDriftToleranceMs {
		p.deps.Logger.Warn("Dub track runs past the source audio",
			zap.String("job_id", jobID.String()),
			zap.Int("track_ms", track.DurationMs()),
			zap.Int("source_ms", totalDurationMs),
		)
	}

	trackPath, err := p.saveTrack(track)
	if err != nil {
		return err
	}
	defer os.Remove(trackPath)

	dubKey := dubAudioKey(jobID)
	if err := uploadFile(ctx, p.deps.Storage, dubKey, trackPath, "audio/wav"); err != nil {
		return fmt.Errorf("failed to upload dub track: %w", err)
	}
	if err := p.deps.Jobs.SetDubAudioKey(ctx, jobID, dubKey); err != nil {
		return err
	}

	if err := p.storeTranscript(ctx, jobID, segments); err != nil {
		return err
	}

	p.deps.Logger.Info("Dub track reconstructed",
		zap.String("job_id", jobID.String()),
		zap.Int("clips", len(placements)),
		zap.Int("duration_ms", track.DurationMs()),
	)

	next, err := nextMessage(jobID, "mux_video", msg.TraceID, models.MuxVideoPayload{
		SourceVideoKey: payload.SourceVideoKey,
		DubAudioKey:    dubKey,
		OutputVideoKey: resultVideoKey(jobID),
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("mux_video"), next); err != nil {
		return fmt.Errorf("failed to publish mux_video step: %w", err)
	}

	return nil
}

// downloadClips fetches every synthesized clip and pairs it with its start
// offset. Segments whose synthesis failed have no audio key and are skipped.
func (p *ReconstructProcessor) downloadClips(ctx context.Context, segments []models.TimeSegment) ([]audio.Placement, func(), error) {
	var paths []string
	cleanup := func() {
		for _, path := range paths {
			os.Remove(path)
		}
	}

	var placements []audio.Placement
	for _, seg := range segments {
		if seg.AudioPath == "" {
			continue
		}

		path, err := downloadToFile(ctx, p.deps.Storage, seg.AudioPath, fmt.Sprintf("clip-%d-*.wav", seg.Idx))
		if err != nil {
			return nil, cleanup, err
		}
		paths = append(paths, path)
		placements = append(placements, audio.Placement{Start: seg.Start, Path: path})
	}

	return placements, cleanup, nil
}

func (p *ReconstructProcessor) saveTrack(track *audio.Clip) (string, error) {
	f, err := os.CreateTemp("", "dub-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := audio.SaveWAV(path, track); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write dub track: %w", err)
	}
	return path, nil
}

// storeTranscript writes the bilingual transcript artifact next to the dub
// track and records its key on the job.
func (p *ReconstructProcessor) storeTranscript(ctx context.Context, jobID uuid.UUID, segments []models.TimeSegment) error {
	type entry struct {
		Idx        int     `json:"idx"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Speaker    string  `json:"speaker"`
		Emotion    string  `json:"emotion,omitempty"`
		Text       string  `json:"text"`
		Translated string  `json:"translated_text,omitempty"`
	}

	entries := make([]entry, len(segments))
	for i, seg := range segments {
		entries[i] = entry{
			Idx:        seg.Idx,
			Start:      seg.Start,
			End:        seg.End,
			Speaker:    seg.Speaker,
			Emotion:    seg.Emotion,
			Text:       seg.Text,
			Translated: seg.TranslatedText,
		}
	}

	key := transcriptKey(jobID)
	if err := uploadJSON(ctx, p.deps.Storage, key, entries); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}
	return p.deps.Jobs.SetTranscriptKey(ctx, jobID, key)
}
