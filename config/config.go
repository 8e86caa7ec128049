// Package config handles application configuration.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Realtime API audio constants. The service expects 24kHz mono PCM16 and the
// capture side reads one 1024-sample chunk at a time.
const (
	DefaultSampleRate   = 24000
	DefaultFrameSamples = 1024
)

// Config represents the application configuration, sourced from the
// environment. Call Load to populate and validate it.
type Config struct {
	// APIKey authenticates against the OpenAI APIs. May be empty at load
	// time; session start fails without it.
	APIKey string `env:"OPENAI_API_KEY"`

	// Realtime streaming session.
	RealtimeURL   string `env:"LEXICONIC_REALTIME_URL" envDefault:"wss://api.openai.com/v1/realtime"`
	RealtimeModel string `env:"LEXICONIC_REALTIME_MODEL" envDefault:"gpt-4o-realtime-preview-2024-10-01"`
	SampleRate    int    `env:"LEXICONIC_SAMPLE_RATE" envDefault:"24000"`
	FrameSamples  int    `env:"LEXICONIC_FRAME_SAMPLES" envDefault:"1024"`

	// Session instructions and output voice sent in the configuration event.
	Instructions string `env:"LEXICONIC_INSTRUCTIONS" envDefault:"You are a helpful assistant that transcribes audio in real-time."`
	Voice        string `env:"LEXICONIC_VOICE" envDefault:"alloy"`

	// Inline transcription model for the streaming session.
	TranscriptionModel string `env:"LEXICONIC_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`

	// Server-side voice activity detection.
	VADThreshold float64 `env:"LEXICONIC_VAD_THRESHOLD" envDefault:"0.7"`
	VADPrefixMs  int     `env:"LEXICONIC_VAD_PREFIX_MS" envDefault:"500"`
	VADSilenceMs int     `env:"LEXICONIC_VAD_SILENCE_MS" envDefault:"500"`

	// Batch transcription (one-shot Whisper call).
	WhisperModel string `env:"LEXICONIC_WHISPER_MODEL" envDefault:"whisper-1"`

	// Optional LLM cleanup of finished transcripts.
	CleanupModel   string `env:"LEXICONIC_CLEANUP_MODEL" envDefault:"gpt-3.5-turbo"`
	CleanupEnabled bool   `env:"LEXICONIC_CLEANUP_ENABLED" envDefault:"false"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameSamples <= 0 {
		return fmt.Errorf("frame samples must be positive, got %d", c.FrameSamples)
	}
	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		return fmt.Errorf("vad threshold must be in [0,1], got %g", c.VADThreshold)
	}
	if c.VADPrefixMs < 0 || c.VADSilenceMs < 0 {
		return fmt.Errorf("vad padding durations must not be negative")
	}
	return nil
}
