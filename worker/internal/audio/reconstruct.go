package audio

import (
	"math"

	"go.uber.org/zap"
)

const (
	// backgroundGain attenuates the background bed under the dialogue.
	backgroundGain = 0.3

	// endBufferMs pads the track past the last segment.
	endBufferMs = 1000

	// targetDBFS is the loudness the finished track is normalized toward.
	targetDBFS = -20.0

	// normalizeEpsilonDB skips normalization for tracks already close enough.
	normalizeEpsilonDB = 0.5
)

// Placement positions a synthesized clip on the dub timeline. Start is
// seconds from the beginning of the source media.
type Placement struct {
	Start float64
	Path  string
}

// Reconstructor assembles the dubbed audio track from per-segment clips.
type Reconstructor struct {
	sampleRate int
	logger     *zap.Logger
}

// NewReconstructor creates a reconstructor producing mono tracks at the
// given sample rate.
func NewReconstructor(sampleRate int, logger *zap.Logger) *Reconstructor {
	if sampleRate <= 0 {
		sampleRate = TrackSampleRate
	}
	return &Reconstructor{sampleRate: sampleRate, logger: logger}
}

// Build lays every clip onto a silent base track at its original position,
// over an attenuated background bed when one is given. Overlapping clips
// are summed, not replaced, so simultaneous speakers both stay audible.
//
// Clips that cannot be read are skipped with a warning. The result is nil
// only when not a single clip could be placed. totalDurationMs <= 0 sizes
// the track to the last clip end plus a one second buffer.
func (r *Reconstructor) Build(placements []Placement, backgroundPath string, totalDurationMs int) *Clip {
	type loaded struct {
		startMs int
		clip    *Clip
	}

	clips := make([]loaded, 0, len(placements))
	lastEndMs := 0

	for _, p := range placements {
		clip, err := LoadWAV(p.Path)
		if err != nil {
			r.logger.Warn("Skipping unreadable segment clip",
				zap.String("path", p.Path),
				zap.Error(err),
			)
			continue
		}

		if clip.SampleRate != r.sampleRate {
			clip = clip.Resample(r.sampleRate)
		}

		startMs := int(p.Start * 1000)
		clips = append(clips, loaded{startMs: startMs, clip: clip})
		if end := startMs + clip.DurationMs(); end > lastEndMs {
			lastEndMs = end
		}
	}

	if len(clips) == 0 {
		r.logger.Warn("No valid segment clips, skipping track reconstruction")
		return nil
	}

	if totalDurationMs <= 0 {
		totalDurationMs = lastEndMs + endBufferMs
	}

	samples := totalDurationMs * r.sampleRate / 1000
	mix := make([]int32, samples)

	if backgroundPath != "" {
		r.layBackground(mix, backgroundPath)
	}

	for _, l := range clips {
		offset := l.startMs * r.sampleRate / 1000
		for i, s := range l.clip.Data {
			pos := offset + i
			if pos >= len(mix) {
				break
			}
			mix[pos] += int32(s)
		}
	}

	track := &Clip{Data: make([]int, len(mix)), SampleRate: r.sampleRate}
	for i, s := range mix {
		track.Data[i] = clampSample(int(s))
	}

	r.normalize(track)

	r.logger.Info("Reconstructed dub track",
		zap.Int("segments", len(clips)),
		zap.Int("duration_ms", track.DurationMs()),
		zap.Float64("dbfs", track.DBFS()),
	)

	return track
}

// layBackground mixes the attenuated background bed into the accumulator,
// trimmed to the track length.
func (r *Reconstructor) layBackground(mix []int32, path string) {
	bed, err := LoadWAV(path)
	if err != nil {
		r.logger.Warn("Background bed unreadable, building dialogue-only track",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	if bed.SampleRate != r.sampleRate {
		bed = bed.Resample(r.sampleRate)
	}

	for i, s := range bed.Data {
		if i >= len(mix) {
			break
		}
		mix[i] += int32(float64(s) * backgroundGain)
	}
}

// normalize pulls the track toward the target loudness, leaving it alone
// when the delta is within half a decibel or the track is silent.
func (r *Reconstructor) normalize(track *Clip) {
	current := track.DBFS()
	if math.IsInf(current, -1) {
		return
	}

	delta := targetDBFS - current
	if math.Abs(delta) <= normalizeEpsilonDB {
		return
	}

	track.ApplyGain(math.Pow(10, delta/20))
}
