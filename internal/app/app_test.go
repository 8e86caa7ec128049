package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.lexiconic.app/lexiconic/config"
)

func testConfig() *config.Config {
	return &config.Config{
		RealtimeURL:        "wss://example.invalid/v1/realtime",
		RealtimeModel:      "gpt-4o-realtime-preview-2024-10-01",
		SampleRate:         config.DefaultSampleRate,
		FrameSamples:       config.DefaultFrameSamples,
		Voice:              "alloy",
		TranscriptionModel: "whisper-1",
		VADThreshold:       0.7,
		VADPrefixMs:        500,
		VADSilenceMs:       500,
		WhisperModel:       "whisper-1",
		CleanupModel:       "gpt-3.5-turbo",
	}
}

func TestNewHasNoSession(t *testing.T) {
	a := New(testConfig())

	if a.Recording() {
		t.Fatal("Recording() = true before any session")
	}
	if got := a.Transcriptions(); got != nil {
		t.Fatalf("Transcriptions() = %v, want nil", got)
	}
	if got := a.Latest(); got != "" {
		t.Fatalf("Latest() = %q, want empty", got)
	}
	if a.Errors() != nil {
		t.Fatal("Errors() != nil before any session")
	}
}

func TestStopLiveWithoutSession(t *testing.T) {
	a := New(testConfig())
	if err := a.StopLive(); err != nil {
		t.Fatalf("StopLive() = %v, want nil", err)
	}
}

func TestStartLiveWithoutAPIKey(t *testing.T) {
	a := New(testConfig())
	if err := a.StartLive(context.Background()); err == nil {
		t.Fatal("StartLive() with no API key succeeded")
	}
	// Failed start must not leave a half-built session behind.
	if a.Recording() {
		t.Fatal("Recording() = true after failed start")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	a := New(testConfig())
	a.Shutdown()
	a.Shutdown()
}

func TestWatchEmitsInOrder(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	poll := func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(lines))
		copy(out, lines)
		return out
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitted := make(chan string, 8)
	go watch(ctx, poll, func(s string) { emitted <- s })

	mu.Lock()
	lines = append(lines, "first")
	mu.Unlock()

	if got := <-emitted; got != "first" {
		t.Fatalf("emitted %q, want %q", got, "first")
	}

	mu.Lock()
	lines = append(lines, "second", "third")
	mu.Unlock()

	for _, want := range []string{"second", "third"} {
		select {
		case got := <-emitted:
			if got != want {
				t.Fatalf("emitted %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestWatchDoesNotReplay(t *testing.T) {
	poll := func() []string { return []string{"only"} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitted := make(chan string, 8)
	go watch(ctx, poll, func(s string) { emitted <- s })

	if got := <-emitted; got != "only" {
		t.Fatalf("emitted %q, want %q", got, "only")
	}

	select {
	case got := <-emitted:
		t.Fatalf("replayed %q", got)
	case <-time.After(400 * time.Millisecond):
	}
}
