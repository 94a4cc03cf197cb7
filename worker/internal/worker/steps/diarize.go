package steps

import (
	"context"
	"fmt"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/models"
	"github.com/bharathbs2003/cinehack/worker/internal/speaker"
	"github.com/bharathbs2003/cinehack/worker/internal/voice"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DiarizeProcessor labels each segment with a speaker, merges consecutive
// same-speaker runs, infers a gender per speaker from the transcript, and
// assigns a synthesis voice to each speaker.
//
// The diarization service is optional. When it is not configured or fails,
// the step falls back to a pause heuristic instead of failing the job.
type DiarizeProcessor struct {
	deps Deps
}

func NewDiarizeProcessor(deps Deps) *DiarizeProcessor {
	return &DiarizeProcessor{deps: deps}
}

func (p *DiarizeProcessor) Name() string {
	return "diarize"
}

func (p *DiarizeProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.DiarizePayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	segments, err := p.deps.Segments.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no segments to diarize")
	}

	segments = p.assignSpeakers(ctx, jobID, payload, segments)
	segments = speaker.MergeRuns(segments)

	stats := speaker.Analyze(segments)
	genders := speaker.DetectGenders(stats)

	job, err := p.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	pools := p.deps.Voices.PoolsForLanguage(ctx, job.TargetLanguage)
	allocator, err := voice.NewAllocator(pools, p.deps.Logger)
	if err != nil {
		return fmt.Errorf("voice allocation failed: %w", err)
	}
	profiles := allocator.Assign(genders)
	for id, profile := range profiles {
		if st, ok := stats[id]; ok {
			profile.SegmentCount = st.SegmentCount
			profiles[id] = profile
		}
	}

	if err := uploadJSON(ctx, p.deps.Storage, speakersKey(jobID), profiles); err != nil {
		return fmt.Errorf("failed to store speaker profiles: %w", err)
	}

	if err := p.deps.Segments.Replace(ctx, jobID, segments); err != nil {
		return err
	}

	p.deps.Logger.Info("Speaker assignment completed",
		zap.String("job_id", jobID.String()),
		zap.Int("segments", len(segments)),
		zap.Int("speakers", len(profiles)),
	)

	next, err := nextMessage(jobID, "emotion", msg.TraceID, models.EmotionPayload{
		SpeechAudioKey: payload.SpeechAudioKey,
		BackgroundKey:  payload.BackgroundKey,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("emotion"), next); err != nil {
		return fmt.Errorf("failed to publish emotion step: %w", err)
	}

	return nil
}

// assignSpeakers prefers the diarization service's turns and falls back to
// the pause heuristic when the service is unavailable.
func (p *DiarizeProcessor) assignSpeakers(ctx context.Context, jobID uuid.UUID, payload models.DiarizePayload, segments []models.TimeSegment) []models.TimeSegment {
	if p.deps.Diarize.Enabled() {
		audioURL, err := p.deps.Storage.PresignedGetURL(ctx, payload.SpeechAudioKey, presignExpiry)
		if err == nil {
			turns, derr := p.deps.Diarize.Diarize(ctx, audioURL, payload.MinSpeakers, payload.MaxSpeakers)
			if derr == nil && len(turns) > 0 {
				return speaker.NewTurnAssigner(turns, p.deps.Logger).Assign(segments)
			}
			err = derr
		}
		p.deps.Logger.Warn("Diarization unavailable, falling back to pause heuristic",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
	}

	return speaker.NewPauseAssigner(p.deps.Logger).Assign(segments)
}
