package speaker

import (
	"strings"
	"testing"

	"github.com/bharathbs2003/cinehack/worker/internal/models"
)

func spoken(start, end float64, speaker, text string) models.TimeSegment {
	return models.TimeSegment{Start: start, End: end, Speaker: speaker, Text: text}
}

func TestMergeRunsJoinsSameSpeaker(t *testing.T) {
	segments := []models.TimeSegment{
		spoken(0.0, 1.0, "SPEAKER_00", "good"),
		spoken(1.2, 2.0, "SPEAKER_00", "morning"),
		spoken(2.1, 3.0, "SPEAKER_00", "everyone"),
	}

	merged := MergeRuns(segments)

	if len(merged) != 1 {
		t.Fatalf("expected 1 merged turn, got %d", len(merged))
	}
	if merged[0].Text != "good morning everyone" {
		t.Fatalf("unexpected merged text: %q", merged[0].Text)
	}
	if merged[0].Start != 0.0 || merged[0].End != 3.0 {
		t.Fatalf("unexpected merged bounds: [%v, %v]", merged[0].Start, merged[0].End)
	}
}

func TestMergeRunsRespectsGapLimit(t *testing.T) {
	segments := []models.TimeSegment{
		spoken(0.0, 1.0, "SPEAKER_00", "first"),
		spoken(2.0, 3.0, "SPEAKER_00", "second"), // 1.0s gap, not merged
	}

	merged := MergeRuns(segments)

	if len(merged) != 2 {
		t.Fatalf("expected 2 turns across a 1.0s gap, got %d", len(merged))
	}
}

func TestMergeRunsKeepsSpeakerBoundaries(t *testing.T) {
	segments := []models.TimeSegment{
		spoken(0.0, 1.0, "SPEAKER_00", "hi"),
		spoken(1.1, 2.0, "SPEAKER_01", "hello"),
		spoken(2.1, 3.0, "SPEAKER_01", "there"),
	}

	merged := MergeRuns(segments)

	if len(merged) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(merged))
	}
	if merged[1].Text != "hello there" {
		t.Fatalf("unexpected second turn text: %q", merged[1].Text)
	}
}

func TestMergeRunsPreservesAllText(t *testing.T) {
	segments := []models.TimeSegment{
		spoken(0.0, 0.5, "SPEAKER_00", "alpha"),
		spoken(0.6, 1.0, "SPEAKER_00", "beta"),
		spoken(2.5, 3.0, "SPEAKER_01", "gamma"),
		spoken(3.1, 3.5, "SPEAKER_00", "delta"),
	}

	merged := MergeRuns(segments)

	var joined []string
	for _, m := range merged {
		joined = append(joined, m.Text)
	}
	all := strings.Join(joined, " ")

	for _, word := range []string{"alpha", "beta", "gamma", "delta"} {
		if !strings.Contains(all, word) {
			t.Fatalf("merged output lost %q: %q", word, all)
		}
	}
	if all != "alpha beta gamma delta" {
		t.Fatalf("merged output reordered text: %q", all)
	}
}

func TestMergeRunsCarriesWords(t *testing.T) {
	segments := []models.TimeSegment{
		{Start: 0, End: 1, Speaker: "SPEAKER_00", Text: "a b",
			Words: []models.Word{{Word: "a", Start: 0, End: 0.4}, {Word: "b", Start: 0.5, End: 1}}},
		{Start: 1.2, End: 2, Speaker: "SPEAKER_00", Text: "c",
			Words: []models.Word{{Word: "c", Start: 1.2, End: 2}}},
	}

	merged := MergeRuns(segments)

	if len(merged) != 1 || len(merged[0].Words) != 3 {
		t.Fatalf("expected 3 carried words, got %+v", merged)
	}
}

func TestMergeRunsReindexes(t *testing.T) {
	segments := []models.TimeSegment{
		spoken(0.0, 1.0, "SPEAKER_00", "a"),
		spoken(1.1, 2.0, "SPEAKER_00", "b"),
		spoken(4.0, 5.0, "SPEAKER_01", "c"),
	}

	merged := MergeRuns(segments)

	for i, m := range merged {
		if m.Idx != i {
			t.Fatalf("turn %d has idx %d", i, m.Idx)
		}
	}
}

func TestMergeRunsEmptyInput(t *testing.T) {
	if out := MergeRuns(nil); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}
