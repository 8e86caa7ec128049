package audiocapture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// FileStream yields the frames of a decoded audio file, paced to simulate a
// live capture. The sequence is finite and not restartable; call DecodeFile
// again to replay a file. Next and Close may be called from different
// goroutines.
type FileStream struct {
	cfg    Config
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	frames *frameReader
	pace   time.Duration
	ctx    context.Context

	mu      sync.Mutex // guards done and the single Wait on cmd
	done    bool
	waited  bool
	waitErr error
}

// framePeriod is the real-time duration of one frame divided by the speed
// factor.
func framePeriod(cfg Config, speedFactor float64) time.Duration {
	seconds := float64(cfg.FrameSamples) / float64(cfg.SampleRate) / speedFactor
	return time.Duration(seconds * float64(time.Second))
}

// DecodeFile decodes path through ffmpeg into mono PCM16 at cfg.SampleRate
// and returns a FileStream over its fixed-size frames. speedFactor controls
// pacing: 1.0 yields frames at real-time speed, larger values faster; it must
// be positive.
func DecodeFile(ctx context.Context, path string, cfg Config, speedFactor float64) (*FileStream, error) {
	if speedFactor <= 0 {
		return nil, fmt.Errorf("speed factor must be positive, got %g", speedFactor)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrDecoderUnavailable
	}

	fs := &FileStream{
		cfg:  cfg,
		pace: framePeriod(cfg, speedFactor),
		ctx:  ctx,
	}

	fs.cmd = exec.CommandContext(ctx, ffmpeg,
		"-loglevel", "error",
		"-i", path,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", fmt.Sprint(cfg.SampleRate),
		"pipe:1",
	)
	fs.cmd.Stderr = &fs.stderr

	stdout, err := fs.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	fs.stdout = stdout
	fs.frames = &frameReader{r: stdout, size: cfg.FrameBytes()}

	if err := fs.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	return fs, nil
}

// Next returns the next decoded frame, sleeping one frame period beforehand
// so downstream consumers see live-capture timing. Returns io.EOF once the
// decoder output is exhausted, or an error describing a failed decode.
func (fs *FileStream) Next() ([]byte, error) {
	if fs.closed() {
		return nil, io.EOF
	}

	frame, err := fs.frames.next()
	if err != nil {
		// Reap before quoting stderr so the diagnostic is complete.
		if werr := fs.reap(); werr != nil {
			return nil, fmt.Errorf("decode failed: %v: %s", werr, fs.stderr.String())
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decoder read: %w", err)
	}

	if fs.pace > 0 {
		select {
		case <-time.After(fs.pace):
		case <-fs.ctx.Done():
			return nil, fs.ctx.Err()
		}
	}

	return frame, nil
}

// Close releases the decoder process early. Safe after exhaustion and safe
// to call while another goroutine is blocked in Next.
func (fs *FileStream) Close() error {
	fs.mu.Lock()
	if fs.done {
		fs.mu.Unlock()
		return nil
	}
	fs.done = true
	fs.mu.Unlock()

	fs.stdout.Close()
	if fs.cmd.Process != nil {
		fs.cmd.Process.Kill()
	}
	fs.reap()
	return nil
}

func (fs *FileStream) closed() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.done
}

// reap marks the stream done and waits for the decoder exactly once. Later
// calls return the recorded exit error.
func (fs *FileStream) reap() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.done = true
	if !fs.waited {
		fs.waited = true
		fs.waitErr = fs.cmd.Wait()
	}
	return fs.waitErr
}
