package audio

import (
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeClip(t *testing.T, dir, name string, amplitude, durationMs int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := SaveWAV(path, constantClip(amplitude, durationMs, TrackSampleRate)); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func sampleAt(track *Clip, atMs int) int {
	return track.Data[atMs*track.SampleRate/1000]
}

func TestBuildReturnsNilWithoutValidClips(t *testing.T) {
	r := NewReconstructor(TrackSampleRate, zap.NewNop())

	track := r.Build([]Placement{
		{Start: 0, Path: "/nonexistent/a.wav"},
		{Start: 1, Path: "/nonexistent/b.wav"},
	}, "", 0)

	if track != nil {
		t.Fatalf("expected nil track when no clip is readable, got %d samples", len(track.Data))
	}
}

func TestBuildSkipsMissingClips(t *testing.T) {
	dir := t.TempDir()
	good := writeClip(t, dir, "good.wav", 1000, 500)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{
		{Start: 0, Path: good},
		{Start: 2, Path: filepath.Join(dir, "missing.wav")},
	}, "", 0)

	if track == nil {
		t.Fatal("expected a track from the one readable clip")
	}
	// Only the first clip landed: 500ms clip + 1000ms buffer.
	if track.DurationMs() != 1500 {
		t.Fatalf("expected 1500ms track, got %dms", track.DurationMs())
	}
}

func TestBuildHonorsRequestedDuration(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "clip.wav", 1000, 300)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{{Start: 0, Path: clip}}, "", 5000)

	if track.DurationMs() != 5000 {
		t.Fatalf("expected 5000ms track, got %dms", track.DurationMs())
	}
}

func TestBuildAddsTrailingBuffer(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "clip.wav", 1000, 400)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{{Start: 2.0, Path: clip}}, "", 0)

	// Last clip ends at 2400ms, plus the one second buffer.
	if track.DurationMs() != 3400 {
		t.Fatalf("expected 3400ms track, got %dms", track.DurationMs())
	}
}

func TestBuildMixesOverlapsAdditively(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.wav", 1000, 1000)
	b := writeClip(t, dir, "b.wav", 1000, 1000)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{
		{Start: 0.0, Path: a},
		{Start: 0.5, Path: b},
	}, "", 0)

	solo := sampleAt(track, 250)    // only clip a
	overlap := sampleAt(track, 750) // both clips

	// Global normalization scales everything equally, so the overlap region
	// must still carry twice the solo amplitude. Replacement would give 1x.
	ratio := float64(overlap) / float64(solo)
	if math.Abs(ratio-2.0) > 0.1 {
		t.Fatalf("expected additive mix (ratio 2.0), got ratio %.3f (solo=%d overlap=%d)",
			ratio, solo, overlap)
	}
}

func TestBuildPlacesClipAtStartOffset(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "clip.wav", 2000, 500)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{{Start: 1.0, Path: clip}}, "", 3000)

	if got := sampleAt(track, 500); got != 0 {
		t.Fatalf("expected silence before the placement, got %d", got)
	}
	if got := sampleAt(track, 1250); got == 0 {
		t.Fatal("expected signal inside the placement window")
	}
}

func TestBuildLaysAttenuatedBackground(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "clip.wav", 1000, 500)
	bed := writeClip(t, dir, "bed.wav", 10000, 3000)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{{Start: 0, Path: clip}}, bed, 3000)

	// 2000ms is background only. The bed must be audible but attenuated
	// to 30% relative to the dialogue-plus-bed region at 250ms.
	bedOnly := float64(sampleAt(track, 2000))
	mixed := float64(sampleAt(track, 250))

	if bedOnly == 0 {
		t.Fatal("background bed missing from the track")
	}
	wantRatio := (10000*backgroundGain + 1000) / (10000 * backgroundGain)
	if got := mixed / bedOnly; math.Abs(got-wantRatio) > 0.05 {
		t.Fatalf("background attenuation off: ratio %.3f, want %.3f", got, wantRatio)
	}
}

func TestBuildNormalizesTowardTarget(t *testing.T) {
	dir := t.TempDir()
	quiet := writeClip(t, dir, "quiet.wav", 200, 2000)

	r := NewReconstructor(TrackSampleRate, zap.NewNop())
	track := r.Build([]Placement{{Start: 0, Path: quiet}}, "", 2000)

	// The track is dominated by the constant clip; after normalization its
	// loudness should sit near the -20 dBFS target.
	if got := track.DBFS(); math.Abs(got-(-20.0)) > 1.0 {
		t.Fatalf("expected about -20 dBFS after normalization, got %.2f", got)
	}
}
