// Package stt provides one-shot Whisper transcription of audio files.
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrFileNotFound is returned when the audio file does not exist.
var ErrFileNotFound = errors.New("stt: audio file not found")

// Translator transcribes audio files to English text using the Whisper
// translations endpoint. It is a single blocking call, not a streaming
// protocol.
type Translator struct {
	client openai.Client
	model  string
}

// Config holds configuration for the Translator.
type Config struct {
	APIKey string
	Model  string // defaults to whisper-1
}

// NewTranslator creates a Translator.
func NewTranslator(cfg Config) *Translator {
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &Translator{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

// Transcribe translates the audio file at path to English text. prompt
// guides the model's style or continues a previous segment.
func (t *Translator) Transcribe(ctx context.Context, path, prompt string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranslationNewParams{
		Model: openai.AudioModel(t.model),
		File:  f,
	}
	if prompt != "" {
		params.Prompt = openai.String(prompt)
	}

	translation, err := t.client.Audio.Translations.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("translate audio: %w", err)
	}

	return translation.Text, nil
}
