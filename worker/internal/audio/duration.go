package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Speed factors outside this range audibly distort speech, so the matcher
// accepts the residual timing error instead of stretching further.
const (
	MinSpeedFactor = 0.5
	MaxSpeedFactor = 2.0
)

// SpeedFactor computes the tempo multiplier that stretches a clip of
// currentMs to targetMs, clamped to the supported range. A non-positive
// target leaves the clip untouched.
func SpeedFactor(currentMs, targetMs int) float64 {
	if targetMs <= 0 || currentMs <= 0 {
		return 1.0
	}

	factor := float64(currentMs) / float64(targetMs)
	if factor < MinSpeedFactor {
		return MinSpeedFactor
	}
	if factor > MaxSpeedFactor {
		return MaxSpeedFactor
	}
	return factor
}

// Matcher stretches synthesized clips to the source segment duration using
// ffmpeg's pitch-preserving atempo filter.
type Matcher struct {
	ffmpegPath string
	logger     *zap.Logger
}

// NewMatcher creates a duration matcher.
func NewMatcher(ffmpegPath string, logger *zap.Logger) *Matcher {
	return &Matcher{ffmpegPath: ffmpegPath, logger: logger}
}

// Match writes a tempo-adjusted copy of inPath to outPath so its duration
// approaches targetMs. When the stretch fails the clip is copied verbatim,
// so a segment is never lost to a failed adjustment. Returns the factor
// that was applied (1.0 for a verbatim copy).
func (m *Matcher) Match(ctx context.Context, inPath, outPath string, currentMs, targetMs int) (float64, error) {
	factor := SpeedFactor(currentMs, targetMs)

	if factor == 1.0 {
		if err := copyFile(inPath, outPath); err != nil {
			return 0, fmt.Errorf("failed to copy clip: %w", err)
		}
		return 1.0, nil
	}

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-i", inPath,
		"-filter:a", fmt.Sprintf("atempo=%.4f", factor),
		"-y",
		outPath,
	)

	if err := cmd.Run(); err != nil {
		m.logger.Warn("Time stretch failed, using clip verbatim",
			zap.String("input", inPath),
			zap.Float64("factor", factor),
			zap.Error(err),
		)
		if copyErr := copyFile(inPath, outPath); copyErr != nil {
			return 0, fmt.Errorf("failed to copy clip after stretch failure: %w", copyErr)
		}
		return 1.0, nil
	}

	return factor, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
