package config

import (
	"fmt"
	"time"

	sharedconfig "github.com/bharathbs2003/cinehack/shared/config"
)

// Aliases for shared configuration structures used throughout the worker.
type DatabaseConfig = sharedconfig.DatabaseConfig
type MinIOConfig = sharedconfig.MinIOConfig
type RabbitMQConfig = sharedconfig.RabbitMQConfig
type ServicesConfig = sharedconfig.ServicesConfig

// Config holds all configuration for the worker.
type Config struct {
	sharedconfig.BaseConfig
	FFmpeg   FFmpegConfig
	Audio    AudioConfig
	Pipeline PipelineConfig
	Timeouts StepTimeouts
}

// FFmpegConfig holds the media tool configuration.
type FFmpegConfig struct {
	Path string
}

// AudioConfig tunes the reconstructed track.
type AudioConfig struct {
	TrackSampleRate int
}

// PipelineConfig tunes job-level concurrency and deadlines.
type PipelineConfig struct {
	// SynthesisConcurrency bounds how many segment clips are synthesized
	// at once within a single job.
	SynthesisConcurrency int
	// JobDeadline is the wall-clock ceiling for a whole job, measured
	// from creation.
	JobDeadline time.Duration
}

// StepTimeouts contains per-step timeout configuration.
type StepTimeouts struct {
	ExtractAudio time.Duration
	Transcribe   time.Duration
	Diarize      time.Duration
	Emotion      time.Duration
	Translate    time.Duration
	Synthesize   time.Duration
	Reconstruct  time.Duration
	Mux          time.Duration
}

// Load loads the worker configuration from environment variables.
func Load() (*Config, error) {
	loader := sharedconfig.NewLoader(
		sharedconfig.WithMinIOPublicFallback(),
	)

	v := loader.Viper()
	v.SetDefault("FFMPEG_PATH", "/usr/bin/ffmpeg")
	v.SetDefault("TRACK_SAMPLE_RATE", 44100)
	v.SetDefault("SYNTHESIS_CONCURRENCY", 4)
	v.SetDefault("JOB_DEADLINE_MINUTES", 60)
	v.SetDefault("TIMEOUT_EXTRACT_AUDIO_SECONDS", 600)
	v.SetDefault("TIMEOUT_TRANSCRIBE_SECONDS", 900)
	v.SetDefault("TIMEOUT_DIARIZE_SECONDS", 600)
	v.SetDefault("TIMEOUT_EMOTION_SECONDS", 300)
	v.SetDefault("TIMEOUT_TRANSLATE_SECONDS", 600)
	v.SetDefault("TIMEOUT_SYNTHESIZE_SECONDS", 1800)
	v.SetDefault("TIMEOUT_RECONSTRUCT_SECONDS", 600)
	v.SetDefault("TIMEOUT_MUX_SECONDS", 900)

	baseCfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		BaseConfig: *baseCfg,
		FFmpeg: FFmpegConfig{
			Path: v.GetString("FFMPEG_PATH"),
		},
		Audio: AudioConfig{
			TrackSampleRate: v.GetInt("TRACK_SAMPLE_RATE"),
		},
		Pipeline: PipelineConfig{
			SynthesisConcurrency: v.GetInt("SYNTHESIS_CONCURRENCY"),
			JobDeadline:          time.Duration(v.GetInt("JOB_DEADLINE_MINUTES")) * time.Minute,
		},
		Timeouts: StepTimeouts{
			ExtractAudio: time.Duration(v.GetInt("TIMEOUT_EXTRACT_AUDIO_SECONDS")) * time.Second,
			Transcribe:   time.Duration(v.GetInt("TIMEOUT_TRANSCRIBE_SECONDS")) * time.Second,
			Diarize:      time.Duration(v.GetInt("TIMEOUT_DIARIZE_SECONDS")) * time.Second,
			Emotion:      time.Duration(v.GetInt("TIMEOUT_EMOTION_SECONDS")) * time.Second,
			Translate:    time.Duration(v.GetInt("TIMEOUT_TRANSLATE_SECONDS")) * time.Second,
			Synthesize:   time.Duration(v.GetInt("TIMEOUT_SYNTHESIZE_SECONDS")) * time.Second,
			Reconstruct:  time.Duration(v.GetInt("TIMEOUT_RECONSTRUCT_SECONDS")) * time.Second,
			Mux:          time.Duration(v.GetInt("TIMEOUT_MUX_SECONDS")) * time.Second,
		},
	}

	return cfg, nil
}
