package models

// Word is a single recognized word with its timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimeSegment is a span of speech on the source timeline. Start and End are
// seconds from the beginning of the media. Speaker, Emotion, TranslatedText
// and AudioPath are filled in by successive pipeline stages.
type TimeSegment struct {
	Idx            int     `json:"idx"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	TranslatedText string  `json:"translated_text,omitempty"`
	Words          []Word  `json:"words,omitempty"`
	Speaker        string  `json:"speaker,omitempty"`
	Emotion        string  `json:"emotion,omitempty"`
	// AudioPath is the storage key of the synthesized clip. It stays empty
	// when synthesis failed for this segment; the slot is left silent.
	AudioPath string `json:"audio_path,omitempty"`
}

// Duration returns the segment length in seconds.
func (s TimeSegment) Duration() float64 {
	return s.End - s.Start
}

// DiarizationTurn is a speaker turn reported by the diarization service.
type DiarizationTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Voice is a synthesis voice from the catalog.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Language string `json:"language"`
}

// SpeakerProfile carries everything the synthesis stage needs for one speaker.
type SpeakerProfile struct {
	SpeakerID    string `json:"speaker_id"`
	Gender       string `json:"gender"`
	VoiceID      string `json:"voice_id"`
	VoiceName    string `json:"voice_name,omitempty"`
	SegmentCount int    `json:"segment_count"`
}
