// Package app glues the external shell to the transcription core. It owns
// the current live session and the batch/cleanup collaborators, so the shell
// only ever talks to one controller.
package app

import (
	"context"
	"log/slog"
	"sync"

	"go.lexiconic.app/lexiconic/config"
	"go.lexiconic.app/lexiconic/llm"
	"go.lexiconic.app/lexiconic/realtime"
	"go.lexiconic.app/lexiconic/stt"
)

// filePrompt guides batch transcription of arbitrary recordings.
const filePrompt = "This is an audio recording that needs to be transcribed accurately."

// App is the application controller consumed by the shell.
type App struct {
	cfg *config.Config

	mu   sync.Mutex
	live *realtime.Service

	translator *stt.Translator
	cleaner    *llm.Completer
}

// New creates the controller. Nothing connects until a session starts.
func New(cfg *config.Config) *App {
	return &App{
		cfg: cfg,
		translator: stt.NewTranslator(stt.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.WhisperModel,
		}),
		cleaner: llm.NewCompleter(llm.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.CleanupModel,
		}),
	}
}

func (a *App) serviceConfig() realtime.ServiceConfig {
	return realtime.ServiceConfig{
		APIKey:             a.cfg.APIKey,
		URL:                a.cfg.RealtimeURL,
		Model:              a.cfg.RealtimeModel,
		SampleRate:         a.cfg.SampleRate,
		FrameSamples:       a.cfg.FrameSamples,
		Instructions:       a.cfg.Instructions,
		Voice:              a.cfg.Voice,
		TranscriptionModel: a.cfg.TranscriptionModel,
		VADThreshold:       a.cfg.VADThreshold,
		VADPrefixMs:        a.cfg.VADPrefixMs,
		VADSilenceMs:       a.cfg.VADSilenceMs,
	}
}

// StartLive begins a microphone transcription session. Any previous session
// is torn down first; each start constructs a fresh session.
func (a *App) StartLive(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.live != nil {
		if state := a.live.State(); state == realtime.StateStreaming || state == realtime.StateConfiguring {
			return realtime.ErrAlreadyActive
		}
		_ = a.live.Cleanup()
	}

	live := realtime.NewService(a.serviceConfig())
	if err := live.Start(ctx); err != nil {
		return err
	}
	a.live = live
	return nil
}

// StreamLiveFile streams an audio file through a fresh session as if it were
// microphone input.
func (a *App) StreamLiveFile(ctx context.Context, path string, speedFactor float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.live != nil {
		if state := a.live.State(); state == realtime.StateStreaming || state == realtime.StateConfiguring {
			return realtime.ErrAlreadyActive
		}
		_ = a.live.Cleanup()
	}

	live := realtime.NewService(a.serviceConfig())
	if err := live.StreamFile(ctx, path, speedFactor); err != nil {
		return err
	}
	a.live = live
	return nil
}

// StopLive drains the current session. A no-op without one.
func (a *App) StopLive() error {
	a.mu.Lock()
	live := a.live
	a.mu.Unlock()

	if live == nil {
		return nil
	}
	return live.Stop()
}

// ToggleLive starts a session if none is recording and stops it otherwise —
// the hotkey semantics of the shell.
func (a *App) ToggleLive(ctx context.Context) error {
	a.mu.Lock()
	recording := a.live != nil && a.live.IsRecording()
	a.mu.Unlock()

	if recording {
		return a.StopLive()
	}
	return a.StartLive(ctx)
}

// Transcriptions returns a snapshot of the current session's transcripts.
func (a *App) Transcriptions() []string {
	a.mu.Lock()
	live := a.live
	a.mu.Unlock()

	if live == nil {
		return nil
	}
	return live.Transcriptions()
}

// Latest returns the most recent transcript, or "" if none.
func (a *App) Latest() string {
	a.mu.Lock()
	live := a.live
	a.mu.Unlock()

	if live == nil {
		return ""
	}
	return live.Latest()
}

// Recording reports whether audio is being transmitted right now.
func (a *App) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live != nil && a.live.IsRecording()
}

// Errors returns the current session's error channel, or nil without one.
func (a *App) Errors() <-chan error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.live == nil {
		return nil
	}
	return a.live.Errors()
}

// Watch polls for new transcripts and emits each one exactly once, in
// arrival order, until ctx is canceled.
func (a *App) Watch(ctx context.Context, emit func(text string)) {
	watch(ctx, a.Transcriptions, emit)
}

// TranscribeFile performs the one-shot batch transcription of an audio file,
// optionally cleaned up by the LLM collaborator.
func (a *App) TranscribeFile(ctx context.Context, path string) (string, error) {
	text, err := a.translator.Transcribe(ctx, path, filePrompt)
	if err != nil {
		return "", err
	}

	if a.cfg.CleanupEnabled {
		cleaned, err := a.cleaner.CleanTranscript(ctx, text)
		if err != nil {
			slog.Warn("transcript cleanup failed", "error", err)
			return text, nil
		}
		return cleaned, nil
	}

	return text, nil
}

// CleanLatest runs the LLM cleanup over the most recent live transcript.
func (a *App) CleanLatest(ctx context.Context) (string, error) {
	latest := a.Latest()
	if latest == "" {
		return "", nil
	}
	return a.cleaner.CleanTranscript(ctx, latest)
}

// Shutdown tears down the current session. Safe to call multiple times.
func (a *App) Shutdown() {
	a.mu.Lock()
	live := a.live
	a.mu.Unlock()

	if live != nil {
		if err := live.Cleanup(); err != nil {
			slog.Error("cleanup live session", "error", err)
		}
	}
}
