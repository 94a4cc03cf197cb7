package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// TrackSampleRate is the rate the dub track is assembled at.
	TrackSampleRate = 44100

	bitDepth     = 16
	maxAmplitude = 32768.0
)

// Clip is a decoded 16-bit mono PCM buffer.
type Clip struct {
	Data       []int
	SampleRate int
}

// LoadWAV decodes a WAV file into a mono clip at its native sample rate.
// Multi-channel audio is downmixed by averaging the channels.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("wav %s has no format information", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 1 {
		return &Clip{Data: buf.Data, SampleRate: buf.Format.SampleRate}, nil
	}

	frames := len(buf.Data) / channels
	mono := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i*channels+ch]
		}
		mono[i] = sum / channels
	}

	return &Clip{Data: mono, SampleRate: buf.Format.SampleRate}, nil
}

// SaveWAV writes the clip as a 16-bit mono WAV file.
func SaveWAV(path string, c *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}

	encoder := wav.NewEncoder(f, c.SampleRate, bitDepth, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:           c.Data,
		Format:         &goaudio.Format{SampleRate: c.SampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		encoder.Close()
		f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return f.Close()
}

// Silent returns a clip of silence with the given duration.
func Silent(durationMs, sampleRate int) *Clip {
	samples := durationMs * sampleRate / 1000
	return &Clip{Data: make([]int, samples), SampleRate: sampleRate}
}

// DurationMs returns the clip length in milliseconds.
func (c *Clip) DurationMs() int {
	if c.SampleRate == 0 {
		return 0
	}
	return len(c.Data) * 1000 / c.SampleRate
}

// Resample converts the clip to the target rate with linear interpolation.
// Good enough for speech clips that already come from a resampling codec.
func (c *Clip) Resample(rate int) *Clip {
	if rate == c.SampleRate || len(c.Data) == 0 {
		return &Clip{Data: append([]int(nil), c.Data...), SampleRate: rate}
	}

	ratio := float64(c.SampleRate) / float64(rate)
	outLen := int(float64(len(c.Data)) / ratio)
	out := make([]int, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(c.Data)-1 {
			out[i] = c.Data[len(c.Data)-1]
			continue
		}
		frac := pos - float64(left)
		out[i] = int(float64(c.Data[left])*(1-frac) + float64(c.Data[left+1])*frac)
	}

	return &Clip{Data: out, SampleRate: rate}
}

// DBFS measures the clip loudness in dB relative to full scale. Pure
// silence measures as negative infinity.
func (c *Clip) DBFS() float64 {
	if len(c.Data) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, s := range c.Data {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(c.Data)))
	if rms == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(rms/maxAmplitude)
}

// ApplyGain scales every sample, clamping to the 16-bit range.
func (c *Clip) ApplyGain(factor float64) {
	for i, s := range c.Data {
		c.Data[i] = clampSample(int(float64(s) * factor))
	}
}

func clampSample(v int) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}
