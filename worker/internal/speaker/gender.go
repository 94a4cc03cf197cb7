package speaker

import (
	"sort"
	"strconv"
	"strings"
)

// Text cues that hint at a speaker's gender. Audio-based classification is
// out of scope; these lists catch the common pronouns and honorifics.
var femaleKeywords = []string{
	"she", "her", "hers", "herself",
	"mrs", "ms", "miss", "ma'am", "madam",
	"lady", "woman", "women", "girl", "girls",
	"mother", "mom", "sister", "daughter", "wife",
	"actress", "queen", "princess",
}

var maleKeywords = []string{
	"he", "him", "his", "himself",
	"mr", "sir", "gentleman",
	"man", "men", "boy", "boys",
	"father", "dad", "brother", "son", "husband",
	"actor", "king", "prince",
}

// DetectGenders guesses a gender for every speaker from the words they spoke.
// When the keyword scores tie, the speaker's numeric suffix decides: odd
// speakers become female, even ones male. The result always covers every
// speaker in stats.
func DetectGenders(stats map[string]*Stats) map[string]string {
	genders := make(map[string]string, len(stats))

	speakerIDs := make([]string, 0, len(stats))
	for id := range stats {
		speakerIDs = append(speakerIDs, id)
	}
	sort.Strings(speakerIDs)

	for _, id := range speakerIDs {
		words := wordSet(strings.Join(stats[id].Texts, " "))

		femaleScore := scoreKeywords(words, femaleKeywords)
		maleScore := scoreKeywords(words, maleKeywords)

		switch {
		case femaleScore > maleScore:
			genders[id] = "female"
		case maleScore > femaleScore:
			genders[id] = "male"
		default:
			if speakerNumber(id)%2 == 1 {
				genders[id] = "female"
			} else {
				genders[id] = "male"
			}
		}
	}

	return genders
}

func scoreKeywords(words map[string]struct{}, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if _, ok := words[kw]; ok {
			score++
		}
	}
	return score
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitWords(text) {
		set[w] = struct{}{}
	}
	return set
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
}

// speakerNumber extracts the numeric suffix of labels like SPEAKER_03.
// Unparseable labels count as speaker zero.
func speakerNumber(id string) int {
	idx := strings.LastIndex(id, "_")
	if idx < 0 || idx+1 >= len(id) {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
