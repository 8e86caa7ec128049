package audiocapture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestDecodeFileRejectsSpeedFactor(t *testing.T) {
	cfg := Config{SampleRate: 24000, FrameSamples: 1024}

	for _, factor := range []float64{0, -1} {
		_, err := DecodeFile(context.Background(), "ignored.wav", cfg, factor)
		if err == nil {
			t.Fatalf("speed factor %g: expected error", factor)
		}
		if !strings.Contains(err.Error(), "speed factor") {
			t.Errorf("speed factor %g: error %q does not mention speed factor", factor, err)
		}
	}
}

func TestDecodeFileMissing(t *testing.T) {
	cfg := Config{SampleRate: 24000, FrameSamples: 1024}

	_, err := DecodeFile(context.Background(), "testdata/does-not-exist.m4a", cfg, 1.0)
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

// startStubStream builds a FileStream over an arbitrary command instead of
// ffmpeg so stream mechanics are testable without a decoder installed.
func startStubStream(t *testing.T, cfg Config, name string, args ...string) (*FileStream, io.WriteCloser) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}

	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", name, err)
	}

	return &FileStream{
		cfg:    cfg,
		cmd:    cmd,
		stdout: stdout,
		frames: &frameReader{r: stdout, size: cfg.FrameBytes()},
		ctx:    context.Background(),
	}, stdin
}

func TestFileStreamCloseDuringNext(t *testing.T) {
	cfg := Config{SampleRate: 24000, FrameSamples: 1024}
	fs, stdin := startStubStream(t, cfg, "cat")
	defer stdin.Close()

	// Park a reader inside Next: cat produces no output until stdin does.
	errCh := make(chan error, 1)
	go func() {
		_, err := fs.Next()
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := fs.Close(); err != nil {
		t.Fatalf("Close during Next: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Next returned a frame after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}

	if _, err := fs.Next(); err != io.EOF {
		t.Fatalf("Next after Close = %v, want io.EOF", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFileStreamNextHonorsContext(t *testing.T) {
	cfg := Config{SampleRate: 24000, FrameSamples: 4}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := &FileStream{
		cfg:    cfg,
		frames: &frameReader{r: bytes.NewReader(make([]byte, 64)), size: cfg.FrameBytes()},
		pace:   time.Hour,
		ctx:    ctx,
	}

	if _, err := fs.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next with canceled ctx = %v, want context.Canceled", err)
	}
}

func TestFramePeriod(t *testing.T) {
	cfg := Config{SampleRate: 24000, FrameSamples: 1024}
	frameSeconds := float64(cfg.FrameSamples) / float64(cfg.SampleRate)

	tests := []struct {
		name   string
		factor float64
		want   time.Duration
	}{
		{"realtime", 1.0, time.Duration(frameSeconds * float64(time.Second))},
		{"double_speed", 2.0, time.Duration(frameSeconds / 2 * float64(time.Second))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := framePeriod(cfg, tt.factor)
			if got != tt.want {
				t.Errorf("framePeriod = %v, want %v", got, tt.want)
			}
		})
	}

	// Independent check: 1024 samples at 24 kHz last about 42.7 ms.
	if rt := framePeriod(cfg, 1.0); rt < 42*time.Millisecond || rt > 43*time.Millisecond {
		t.Errorf("realtime frame period = %v, want about 42.7ms", rt)
	}
}
