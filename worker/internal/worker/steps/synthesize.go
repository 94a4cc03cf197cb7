package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/audio"
	"github.com/bharathbs2003/cinehack/worker/internal/models"
	"github.com/bharathbs2003/cinehack/worker/internal/tts"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SynthesizeProcessor renders each translated segment as a speech clip in
// its speaker's voice and stretches it to fit the source segment duration.
// Segment failures do not fail the job; the failed slot stays silent and
// its audio_key is left NULL.
type SynthesizeProcessor struct {
	deps    Deps
	matcher *audio.Matcher
}

func NewSynthesizeProcessor(deps Deps) *SynthesizeProcessor {
	return &SynthesizeProcessor{
		deps:    deps,
		matcher: audio.NewMatcher(deps.Config.FFmpeg.Path, deps.Logger),
	}
}

func (p *SynthesizeProcessor) Name() string {
	return "synthesize"
}

func (p *SynthesizeProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.SynthesizePayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	segments, err := p.deps.Segments.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no segments to synthesize")
	}

	profiles, err := p.loadProfiles(ctx, jobID)
	if err != nil {
		return err
	}

	concurrency := p.deps.Config.Pipeline.SynthesisConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, concurrency)
		succeeded atomic.Int64
	)

	for _, seg := range segments {
		if seg.TranslatedText == "" {
			p.deps.Logger.Warn("Segment has no translation, leaving silent",
				zap.String("job_id", jobID.String()),
				zap.Int("idx", seg.Idx),
			)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(seg models.TimeSegment) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := p.synthesizeSegment(ctx, jobID, payload.TargetLanguage, seg, profiles); err != nil {
				p.deps.Logger.Warn("Segment synthesis failed, leaving silent",
					zap.String("job_id", jobID.String()),
					zap.Int("idx", seg.Idx),
					zap.Error(err),
				)
				if dberr := p.deps.Segments.SetAudioKey(ctx, jobID, seg.Idx, nil); dberr != nil {
					p.deps.Logger.Error("Failed to clear segment audio key", zap.Error(dberr))
				}
				return
			}
			succeeded.Add(1)
		}(seg)
	}

	wg.Wait()

	if succeeded.Load() == 0 {
		return fmt.Errorf("synthesis produced no audio for any segment")
	}

	p.deps.Logger.Info("Synthesis completed",
		zap.String("job_id", jobID.String()),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int("total", len(segments)),
	)

	job, err := p.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	next, err := nextMessage(jobID, "reconstruct", msg.TraceID, models.ReconstructPayload{
		BackgroundKey:  payload.BackgroundKey,
		SourceVideoKey: job.SourceVideoKey,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("reconstruct"), next); err != nil {
		return fmt.Errorf("failed to publish reconstruct step: %w", err)
	}

	return nil
}

// synthesizeSegment renders one clip, fits it to the segment window and
// uploads it.
func (p *SynthesizeProcessor) synthesizeSegment(ctx context.Context, jobID uuid.UUID, language string, seg models.TimeSegment, profiles map[string]models.SpeakerProfile) error {
	req := tts.Request{
		Text:       seg.TranslatedText,
		Language:   language,
		Emotion:    seg.Emotion,
		SampleRate: p.deps.Config.Audio.TrackSampleRate,
		Format:     "wav",
	}
	if profile, ok := profiles[seg.Speaker]; ok {
		req.VoiceID = profile.VoiceID
	}

	body, err := p.deps.Synthesis.Synthesize(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	rawFile, err := os.CreateTemp("", fmt.Sprintf("seg-%d-raw-*.wav", seg.Idx))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	rawPath := rawFile.Name()
	defer os.Remove(rawPath)

	if _, err := io.Copy(rawFile, body); err != nil {
		rawFile.Close()
		return fmt.Errorf("failed to buffer synthesized audio: %w", err)
	}
	rawFile.Close()

	clip, err := audio.LoadWAV(rawPath)
	if err != nil {
		return fmt.Errorf("synthesized audio unreadable: %w", err)
	}

	targetMs := int(seg.Duration() * 1000)
	fittedPath := rawPath + "-fit.wav"
	defer os.Remove(fittedPath)

	factor, err := p.matcher.Match(ctx, rawPath, fittedPath, clip.DurationMs(), targetMs)
	if err != nil {
		return fmt.Errorf("duration matching failed: %w", err)
	}

	key := segmentClipKey(jobID, seg.Idx)
	if err := uploadFile(ctx, p.deps.Storage, key, fittedPath, "audio/wav"); err != nil {
		return fmt.Errorf("failed to upload clip: %w", err)
	}

	p.deps.Logger.Debug("Segment synthesized",
		zap.String("job_id", jobID.String()),
		zap.Int("idx", seg.Idx),
		zap.Float64("speed_factor", factor),
	)

	return p.deps.Segments.SetAudioKey(ctx, jobID, seg.Idx, &key)
}

// loadProfiles reads the speaker voice assignments stored by the diarize
// step.
func (p *SynthesizeProcessor) loadProfiles(ctx context.Context, jobID uuid.UUID) (map[string]models.SpeakerProfile, error) {
	reader, err := p.deps.Storage.GetObject(ctx, speakersKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to load speaker profiles: %w", err)
	}
	defer reader.Close()

	var profiles map[string]models.SpeakerProfile
	if err := json.NewDecoder(reader).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to decode speaker profiles: %w", err)
	}
	return profiles, nil
}
