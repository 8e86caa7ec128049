package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.SampleRate, DefaultSampleRate)
	}
	if cfg.FrameSamples != DefaultFrameSamples {
		t.Errorf("FrameSamples = %d, want %d", cfg.FrameSamples, DefaultFrameSamples)
	}
	if cfg.RealtimeModel != "gpt-4o-realtime-preview-2024-10-01" {
		t.Errorf("RealtimeModel = %q", cfg.RealtimeModel)
	}
	if cfg.VADThreshold != 0.7 {
		t.Errorf("VADThreshold = %g, want 0.7", cfg.VADThreshold)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Errorf("TranscriptionModel = %q, want whisper-1", cfg.TranscriptionModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LEXICONIC_SAMPLE_RATE", "16000")
	t.Setenv("LEXICONIC_VAD_THRESHOLD", "0.5")
	t.Setenv("LEXICONIC_CLEANUP_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.APIKey)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
	}
	if cfg.VADThreshold != 0.5 {
		t.Errorf("VADThreshold = %g, want 0.5", cfg.VADThreshold)
	}
	if !cfg.CleanupEnabled {
		t.Error("CleanupEnabled = false, want true")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"zero_sample_rate", "LEXICONIC_SAMPLE_RATE", "0", "sample rate"},
		{"negative_frame", "LEXICONIC_FRAME_SAMPLES", "-1", "frame samples"},
		{"threshold_too_high", "LEXICONIC_VAD_THRESHOLD", "1.5", "vad threshold"},
		{"threshold_negative", "LEXICONIC_VAD_THRESHOLD", "-0.1", "vad threshold"},
		{"negative_silence", "LEXICONIC_VAD_SILENCE_MS", "-100", "padding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
