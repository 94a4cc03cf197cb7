package models

// JobMessage represents a pipeline step message from RabbitMQ.
type JobMessage struct {
	JobID     string                 `json:"job_id"`
	Step      string                 `json:"step"`
	Attempt   int                    `json:"attempt"`
	TraceID   string                 `json:"trace_id"`
	CreatedAt string                 `json:"created_at"`
	Payload   map[string]interface{} `json:"payload"`
}

// ExtractAudioPayload is the payload for the extract_audio step.
type ExtractAudioPayload struct {
	SourceVideoKey   string `json:"source_video_key"`
	SpeechAudioKey   string `json:"speech_audio_key"`
	BackgroundKey    string `json:"background_key"`
}

// TranscribePayload is the payload for the transcribe step.
type TranscribePayload struct {
	SpeechAudioKey string `json:"speech_audio_key"`
	BackgroundKey  string `json:"background_key"`
	Language       string `json:"language"`
}

// DiarizePayload is the payload for the diarize step.
type DiarizePayload struct {
	SpeechAudioKey string `json:"speech_audio_key"`
	BackgroundKey  string `json:"background_key"`
	MinSpeakers    int    `json:"min_speakers"`
	MaxSpeakers    int    `json:"max_speakers"`
}

// EmotionPayload is the payload for the emotion step.
type EmotionPayload struct {
	SpeechAudioKey string `json:"speech_audio_key"`
	BackgroundKey  string `json:"background_key"`
}

// TranslatePayload is the payload for the translate step.
type TranslatePayload struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	BackgroundKey  string `json:"background_key"`
}

// SynthesizePayload is the payload for the synthesize step.
type SynthesizePayload struct {
	TargetLanguage string `json:"target_language"`
	BackgroundKey  string `json:"background_key"`
}

// ReconstructPayload is the payload for the reconstruct step.
type ReconstructPayload struct {
	BackgroundKey  string `json:"background_key"`
	SourceVideoKey string `json:"source_video_key"`
}

// MuxVideoPayload is the payload for the mux_video step.
type MuxVideoPayload struct {
	SourceVideoKey string `json:"source_video_key"`
	DubAudioKey    string `json:"dub_audio_key"`
	OutputVideoKey string `json:"output_video_key"`
}
