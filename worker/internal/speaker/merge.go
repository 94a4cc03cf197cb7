package speaker

import (
	"github.com/bharathbs2003/cinehack/worker/internal/models"
)

// mergeGap is the maximum silence between two segments of the same speaker
// that still merges them into one turn, in seconds.
const mergeGap = 1.0

// MergeRuns collapses consecutive segments spoken by the same speaker into a
// single turn when the gap between them is under a second. Text is joined in
// order with a single space and word timings are carried over, so no spoken
// content is lost or reordered.
func MergeRuns(segments []models.TimeSegment) []models.TimeSegment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]models.TimeSegment, 0, len(segments))
	current := segments[0]
	current.Words = append([]models.Word(nil), segments[0].Words...)

	for _, seg := range segments[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End < mergeGap {
			current.Text += " " + seg.Text
			current.End = seg.End
			current.Words = append(current.Words, seg.Words...)
			continue
		}

		merged = append(merged, current)
		current = seg
		current.Words = append([]models.Word(nil), seg.Words...)
	}

	merged = append(merged, current)

	for i := range merged {
		merged[i].Idx = i
	}

	return merged
}

// Stats aggregates per-speaker speaking time, word counts and transcript text.
type Stats struct {
	TotalDuration float64
	TotalWords    int
	SegmentCount  int
	Texts         []string
}

// Analyze collects per-speaker statistics over the merged segments. The
// gender heuristic and the voice allocator both work from this view.
func Analyze(segments []models.TimeSegment) map[string]*Stats {
	stats := make(map[string]*Stats)

	for _, seg := range segments {
		s, ok := stats[seg.Speaker]
		if !ok {
			s = &Stats{}
			stats[seg.Speaker] = s
		}

		s.TotalDuration += seg.Duration()
		s.TotalWords += len(splitWords(seg.Text))
		s.SegmentCount++
		s.Texts = append(s.Texts, seg.Text)
	}

	return stats
}
