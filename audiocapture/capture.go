// Package audiocapture produces fixed-size PCM16 mono audio frames, either
// from the default microphone or by decoding an audio file. Both paths run
// the audio through an external ffmpeg process so the rest of the pipeline
// only ever sees raw little-endian 16-bit samples at the session rate.
package audiocapture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ErrDeviceUnavailable is returned when no capture device can be opened on
// this platform.
var ErrDeviceUnavailable = errors.New("audio capture device unavailable")

// ErrNotCapturing is returned when trying to read audio while not capturing.
var ErrNotCapturing = errors.New("not capturing audio")

// ErrDecoderUnavailable is returned when the external decoder (ffmpeg)
// cannot be located.
var ErrDecoderUnavailable = errors.New("audio decoder (ffmpeg) not found")

// ErrFileNotFound is returned when the audio file to decode does not exist.
var ErrFileNotFound = errors.New("audio file not found")

// Config holds the audio format shared by all frame sources.
type Config struct {
	SampleRate   int // samples per second, e.g. 24000
	FrameSamples int // samples per frame, e.g. 1024
}

// FrameBytes returns the size of one frame in bytes (16-bit mono).
func (c Config) FrameBytes() int {
	return c.FrameSamples * 2
}

// frameReader slices a raw PCM16 stream into fixed-size frames.
// A short tail that does not fill a whole frame is discarded.
type frameReader struct {
	r    io.Reader
	size int
}

// next returns the next full frame or io.EOF when the stream is exhausted.
// The returned slice is freshly allocated; ownership passes to the caller.
func (fr *frameReader) next() ([]byte, error) {
	frame := make([]byte, fr.size)
	if _, err := io.ReadFull(fr.r, frame); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return frame, nil
}

// Mic captures microphone audio as a sequence of frames. It spawns ffmpeg
// against the platform default input device and reads s16le samples from its
// stdout. Only one Mic should be open at a time.
type Mic struct {
	cfg    Config
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	frames *frameReader

	mu        sync.Mutex
	capturing bool
	waited    bool
	waitErr   error
}

// OpenMicrophone starts capturing from the default input device.
// Returns ErrDeviceUnavailable if the platform has no capture backend or
// ffmpeg is not installed.
func OpenMicrophone(cfg Config) (*Mic, error) {
	format, device, ok := defaultInputDevice()
	if !ok {
		return nil, ErrDeviceUnavailable
	}

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not in PATH", ErrDeviceUnavailable)
	}

	m := &Mic{cfg: cfg}

	// Decode whatever the device delivers into mono s16le at the target rate.
	m.cmd = exec.Command(ffmpeg,
		"-loglevel", "error",
		"-f", format, "-i", device,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", fmt.Sprint(cfg.SampleRate),
		"pipe:1",
	)
	m.cmd.Stderr = &m.stderr

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout pipe: %w", err)
	}
	m.stdout = stdout
	m.frames = &frameReader{r: stdout, size: cfg.FrameBytes()}

	if err := m.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start capture: %v", ErrDeviceUnavailable, err)
	}

	m.capturing = true
	return m, nil
}

// ReadFrame returns the next captured frame. It blocks until a full frame of
// device data is available. A device or process failure surfaces as an error
// that wraps the decoder's diagnostics.
func (m *Mic) ReadFrame() ([]byte, error) {
	m.mu.Lock()
	capturing := m.capturing
	m.mu.Unlock()

	if !capturing {
		return nil, ErrNotCapturing
	}

	frame, err := m.frames.next()
	if err != nil {
		// Reap the process first so its stderr is fully flushed before we
		// quote it.
		m.reap()
		if msg := m.stderr.String(); msg != "" {
			return nil, fmt.Errorf("capture read: %v: %s", err, msg)
		}
		return nil, fmt.Errorf("capture read: %w", err)
	}
	return frame, nil
}

// Close stops the capture process and releases the device. Safe to call
// multiple times.
func (m *Mic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.capturing {
		return nil
	}
	m.capturing = false

	m.stdout.Close()
	if m.cmd.Process != nil {
		m.cmd.Process.Kill()
	}
	if !m.waited {
		m.waited = true
		m.waitErr = m.cmd.Wait()
	}
	return nil
}

// reap waits for the capture process exactly once.
func (m *Mic) reap() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.waited {
		m.waited = true
		m.waitErr = m.cmd.Wait()
	}
	return m.waitErr
}

// SampleRate returns the configured sample rate.
func (m *Mic) SampleRate() int {
	return m.cfg.SampleRate
}
