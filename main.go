// Command lexiconic streams microphone or file audio to the OpenAI realtime
// API and prints live transcripts. It can also run one-shot Whisper
// transcription of a file with optional LLM cleanup.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"go.lexiconic.app/lexiconic/config"
	"go.lexiconic.app/lexiconic/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file       = flag.String("file", "", "stream an audio file through the realtime session instead of the microphone")
		speed      = flag.Float64("speed", 1.0, "playback speed factor when streaming a file")
		transcribe = flag.String("transcribe", "", "one-shot Whisper transcription of an audio file, then exit")
		cleanup    = flag.Bool("cleanup", false, "run LLM cleanup over the batch transcription result")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *cleanup {
		cfg.CleanupEnabled = true
	}

	a := app.New(cfg)
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *transcribe != "" {
		text, err := a.TranscribeFile(ctx, *transcribe)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	if *file != "" {
		if err := a.StreamLiveFile(ctx, *file, *speed); err != nil {
			return err
		}
		fmt.Printf("Streaming %s ...\n", *file)
	} else {
		if err := a.StartLive(ctx); err != nil {
			return err
		}
		fmt.Println("Recording... press Enter to stop.")
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go a.Watch(watchCtx, func(text string) {
		fmt.Println(">", text)
	})
	go func() {
		errs := a.Errors()
		if errs == nil {
			return
		}
		for {
			select {
			case <-watchCtx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				slog.Error("session error", "error", err)
			}
		}
	}()

	waitForStop(ctx)

	if err := a.StopLive(); err != nil {
		slog.Warn("stop session", "error", err)
	}

	// Give the server a moment to flush trailing transcripts.
	final := collectFinal(ctx, a)
	stopWatch()

	if len(final) == 0 {
		fmt.Println("No transcriptions.")
		return nil
	}
	fmt.Println("\nTranscriptions:")
	for i, text := range final {
		fmt.Printf("%d. %s\n", i+1, text)
	}
	return nil
}

// collectFinal waits for trailing transcripts after a stop. The server may
// still deliver a result for the committed tail, so poll until the snapshot
// stops growing or the window elapses.
func collectFinal(ctx context.Context, a *app.App) []string {
	deadline := time.After(3 * time.Second)
	prev := a.Transcriptions()
	for {
		select {
		case <-ctx.Done():
			return prev
		case <-deadline:
			return prev
		case <-time.After(500 * time.Millisecond):
			cur := a.Transcriptions()
			if len(cur) == len(prev) {
				return cur
			}
			prev = cur
		}
	}
}

// waitForStop blocks until the user presses Enter or ctx is canceled.
func waitForStop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bufio.NewReader(os.Stdin).ReadString('\n')
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}
