package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// speechSampleRate matches what the transcription and diarization services
// expect.
const speechSampleRate = 16000

// Tool wraps the ffmpeg binary for the extraction, stretch and mux work the
// pipeline cannot do on raw PCM.
type Tool struct {
	ffmpegPath string
	logger     *zap.Logger
}

// NewTool creates an ffmpeg wrapper.
func NewTool(ffmpegPath string, logger *zap.Logger) *Tool {
	return &Tool{ffmpegPath: ffmpegPath, logger: logger}
}

// ExtractSpeech pulls a 16 kHz mono WAV from the video, suitable for the
// recognition services.
func (t *Tool) ExtractSpeech(ctx context.Context, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(speechSampleRate),
		"-ac", "1",
		"-y",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg speech extraction failed: %w: %s", err, tail(out))
	}
	return nil
}

// ExtractBackground pulls the full-bandwidth mono audio used as the
// background bed under the dubbed dialogue.
func (t *Tool) ExtractBackground(ctx context.Context, videoPath, outPath string, sampleRate int) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-y",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg background extraction failed: %w: %s", err, tail(out))
	}
	return nil
}

// Mux replaces the video's audio track with the dubbed one. The video
// stream is copied untouched; audio is re-encoded to AAC.
func (t *Tool) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-y",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg muxing failed: %w: %s", err, tail(out))
	}
	return nil
}

// ProbeDurationMs reads the media duration via ffprobe, which ships next to
// ffmpeg.
func (t *Tool) ProbeDurationMs(ctx context.Context, path string) (int, error) {
	probe := strings.Replace(t.ffmpegPath, "ffmpeg", "ffprobe", 1)
	cmd := exec.CommandContext(ctx, probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", out, err)
	}

	return int(seconds * 1000), nil
}

// tail trims command output to its last line for error messages.
func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
