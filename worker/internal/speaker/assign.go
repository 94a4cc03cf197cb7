package speaker

import (
	"fmt"

	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"go.uber.org/zap"
)

// DefaultSpeaker is assigned when no diarization turn overlaps a segment.
const DefaultSpeaker = "SPEAKER_00"

// pauseThreshold is the minimum silence between segments that counts as a
// speaker change for the pause heuristic, in seconds.
const pauseThreshold = 0.8

// Assigner labels each segment with a speaker identity. Implementations must
// preserve segment order and never drop segments.
type Assigner interface {
	Assign(segments []models.TimeSegment) []models.TimeSegment
}

// TurnAssigner assigns speakers by maximum overlap with diarization turns.
type TurnAssigner struct {
	turns  []models.DiarizationTurn
	logger *zap.Logger
}

// NewTurnAssigner creates an assigner over the given diarization turns.
func NewTurnAssigner(turns []models.DiarizationTurn, logger *zap.Logger) *TurnAssigner {
	return &TurnAssigner{turns: turns, logger: logger}
}

// Assign labels each segment with the turn that overlaps it the most.
// Ties keep the earliest turn in the list, and a segment overlapping no
// turn at all gets DefaultSpeaker.
func (a *TurnAssigner) Assign(segments []models.TimeSegment) []models.TimeSegment {
	out := make([]models.TimeSegment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		out[i].Speaker = a.speakerFor(seg.Start, seg.End)
	}

	a.logger.Info("Assigned speakers from diarization turns",
		zap.Int("segments", len(out)),
		zap.Int("turns", len(a.turns)),
	)
	return out
}

func (a *TurnAssigner) speakerFor(start, end float64) string {
	maxOverlap := 0.0
	assigned := DefaultSpeaker

	for _, turn := range a.turns {
		overlapStart := max(start, turn.Start)
		overlapEnd := min(end, turn.End)
		overlap := overlapEnd - overlapStart

		// Strictly greater keeps the earliest turn on ties.
		if overlap > maxOverlap {
			maxOverlap = overlap
			assigned = turn.Speaker
		}
	}

	return assigned
}

// PauseAssigner assigns speakers from silence gaps between segments: every
// pause longer than the threshold starts a new speaker. It is the fallback
// when no diarization turns are available.
type PauseAssigner struct {
	logger *zap.Logger
}

// NewPauseAssigner creates a pause-heuristic assigner.
func NewPauseAssigner(logger *zap.Logger) *PauseAssigner {
	return &PauseAssigner{logger: logger}
}

// Assign labels segments SPEAKER_00, SPEAKER_01, ... in order of appearance,
// bumping the speaker index whenever the silence before a segment exceeds
// the pause threshold.
func (a *PauseAssigner) Assign(segments []models.TimeSegment) []models.TimeSegment {
	out := make([]models.TimeSegment, len(segments))
	speakerID := 0

	for i, seg := range segments {
		if i > 0 {
			pause := seg.Start - segments[i-1].End
			if pause > pauseThreshold {
				speakerID++
			}
		}
		out[i] = seg
		out[i].Speaker = fmt.Sprintf("SPEAKER_%02d", speakerID)
	}

	if len(out) > 0 {
		a.logger.Info("Assigned speakers from pauses",
			zap.Int("segments", len(out)),
			zap.Int("speakers", speakerID+1),
		)
	}
	return out
}
