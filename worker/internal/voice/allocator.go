package voice

import (
	"fmt"
	"sort"

	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"go.uber.org/zap"
)

// bucketFallback is the order buckets are tried when the requested
// gender has no voices.
var bucketFallback = []string{"male", "female", "neutral"}

// Allocator hands out voices round-robin per gender so distinct speakers get
// distinct voices until a pool wraps. All pool state lives on the instance;
// build a fresh Allocator per job.
type Allocator struct {
	pools   map[string][]models.Voice
	cursors map[string]int
	logger  *zap.Logger
}

// NewAllocator creates an allocator over the given gender pools. It fails
// when every bucket is empty, since no speaker could ever receive a voice.
func NewAllocator(pools map[string][]models.Voice, logger *zap.Logger) (*Allocator, error) {
	total := 0
	for _, bucket := range bucketFallback {
		total += len(pools[bucket])
	}
	if total == 0 {
		return nil, fmt.Errorf("voice allocator: no voices configured in any gender pool")
	}

	return &Allocator{
		pools:   pools,
		cursors: make(map[string]int),
		logger:  logger,
	}, nil
}

// Next returns the next voice for the given gender, advancing that gender's
// cursor. An empty bucket falls back to male, then female, then neutral.
func (a *Allocator) Next(gender string) models.Voice {
	bucket := gender
	if len(a.pools[bucket]) == 0 {
		for _, fb := range bucketFallback {
			if len(a.pools[fb]) > 0 {
				bucket = fb
				break
			}
		}
	}

	voices := a.pools[bucket]
	v := voices[a.cursors[bucket]%len(voices)]
	a.cursors[bucket]++
	return v
}

// Assign builds a voice profile for every speaker. Speakers are visited in
// sorted label order, so the same input always produces the same mapping.
func (a *Allocator) Assign(speakerGenders map[string]string) map[string]models.SpeakerProfile {
	speakerIDs := make([]string, 0, len(speakerGenders))
	for id := range speakerGenders {
		speakerIDs = append(speakerIDs, id)
	}
	sort.Strings(speakerIDs)

	profiles := make(map[string]models.SpeakerProfile, len(speakerIDs))
	for _, id := range speakerIDs {
		gender := speakerGenders[id]
		v := a.Next(gender)
		profiles[id] = models.SpeakerProfile{
			SpeakerID: id,
			Gender:    gender,
			VoiceID:   v.ID,
			VoiceName: v.Name,
		}
		a.logger.Info("Assigned voice",
			zap.String("speaker", id),
			zap.String("gender", gender),
			zap.String("voice_id", v.ID),
		)
	}

	return profiles
}
