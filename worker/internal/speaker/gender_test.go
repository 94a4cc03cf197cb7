package speaker

import (
	"testing"

	"github.com/bharathbs2003/cinehack/worker/internal/models"
)

func TestDetectGendersFromKeywords(t *testing.T) {
	segments := []models.TimeSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 1, Text: "he told his brother about the plan"},
		{Speaker: "SPEAKER_01", Start: 2, End: 3, Text: "she asked her mother and her sister"},
	}

	genders := DetectGenders(Analyze(segments))

	if genders["SPEAKER_00"] != "male" {
		t.Fatalf("SPEAKER_00: expected male, got %s", genders["SPEAKER_00"])
	}
	if genders["SPEAKER_01"] != "female" {
		t.Fatalf("SPEAKER_01: expected female, got %s", genders["SPEAKER_01"])
	}
}

func TestDetectGendersTieAlternates(t *testing.T) {
	segments := []models.TimeSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 1, Text: "the weather is nice today"},
		{Speaker: "SPEAKER_01", Start: 2, End: 3, Text: "indeed it is quite warm"},
		{Speaker: "SPEAKER_02", Start: 4, End: 5, Text: "perhaps it will rain later"},
	}

	genders := DetectGenders(Analyze(segments))

	if genders["SPEAKER_00"] != "male" {
		t.Fatalf("even speaker on tie: expected male, got %s", genders["SPEAKER_00"])
	}
	if genders["SPEAKER_01"] != "female" {
		t.Fatalf("odd speaker on tie: expected female, got %s", genders["SPEAKER_01"])
	}
	if genders["SPEAKER_02"] != "male" {
		t.Fatalf("even speaker on tie: expected male, got %s", genders["SPEAKER_02"])
	}
}

func TestDetectGendersCoversAllSpeakers(t *testing.T) {
	segments := []models.TimeSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 1, Text: ""},
		{Speaker: "SPEAKER_01", Start: 2, End: 3, Text: "hm"},
	}

	genders := DetectGenders(Analyze(segments))

	for _, id := range []string{"SPEAKER_00", "SPEAKER_01"} {
		g, ok := genders[id]
		if !ok || (g != "male" && g != "female") {
			t.Fatalf("%s: missing or invalid gender %q", id, g)
		}
	}
}

func TestAnalyzeAggregatesPerSpeaker(t *testing.T) {
	segments := []models.TimeSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 2, Text: "one two three"},
		{Speaker: "SPEAKER_00", Start: 3, End: 4, Text: "four"},
		{Speaker: "SPEAKER_01", Start: 5, End: 6, Text: "five"},
	}

	stats := Analyze(segments)

	s0 := stats["SPEAKER_00"]
	if s0 == nil || s0.SegmentCount != 2 || s0.TotalWords != 4 {
		t.Fatalf("unexpected stats for SPEAKER_00: %+v", s0)
	}
	if s0.TotalDuration != 3.0 {
		t.Fatalf("expected 3.0s total duration, got %v", s0.TotalDuration)
	}
	if stats["SPEAKER_01"].SegmentCount != 1 {
		t.Fatalf("unexpected stats for SPEAKER_01: %+v", stats["SPEAKER_01"])
	}
}
