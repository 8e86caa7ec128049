// Package realtime implements the live transcription core: the session
// protocol codec, the WebSocket transport, the inbound event dispatcher, the
// transcript buffer, and the session controller that supervises them.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.lexiconic.app/lexiconic/audiocapture"
)

// ErrAlreadyActive is returned by Start while a session is active.
var ErrAlreadyActive = errors.New("realtime: session already active")

// ErrMissingAPIKey is returned by Start when no credential is configured.
var ErrMissingAPIKey = errors.New("realtime: API key required")

// ErrSessionClosed is returned by Start after Cleanup. Construct a new
// Service to stream again.
var ErrSessionClosed = errors.New("realtime: session closed")

// sendInterval paces the microphone send loop so it does not saturate the
// transport. Stop is observed within one interval.
const sendInterval = 10 * time.Millisecond

// State is the lifecycle state of a Service.
type State int32

const (
	StateIdle State = iota
	StateConfiguring
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FrameSource produces fixed-size PCM16 frames. Both the microphone and the
// file decoder satisfy it. ReadFrame returns io.EOF when a finite source is
// exhausted.
type FrameSource interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// ServiceConfig holds configuration for a transcription session.
type ServiceConfig struct {
	APIKey string
	URL    string // defaults to DefaultURL
	Model  string // defaults to DefaultModel

	SampleRate   int // defaults to 24000
	FrameSamples int // defaults to 1024

	Instructions       string
	Voice              string
	TranscriptionModel string // defaults to "whisper-1"

	VADThreshold float64
	VADPrefixMs  int
	VADSilenceMs int
}

func (c *ServiceConfig) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 24000
	}
	if c.FrameSamples == 0 {
		c.FrameSamples = 1024
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "whisper-1"
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.VADThreshold == 0 {
		c.VADThreshold = 0.7
	}
	if c.VADPrefixMs == 0 {
		c.VADPrefixMs = 500
	}
	if c.VADSilenceMs == 0 {
		c.VADSilenceMs = 500
	}
}

// Service is one logical transcription session and the public API consumed
// by the external shell. It owns the transport and the frame source while
// active; the transcript buffer and the recording flag are the only state
// shared with the consumer.
type Service struct {
	cfg ServiceConfig

	mu        sync.Mutex
	state     State
	sessionID string
	client    *Client
	source    FrameSource
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	recording atomic.Bool
	buffer    *TranscriptBuffer
	errs      chan error
}

// NewService creates a session controller. Nothing connects until Start.
func NewService(cfg ServiceConfig) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:    cfg,
		buffer: NewTranscriptBuffer(),
		errs:   make(chan error, 10),
	}
}

// Start connects, configures the session, opens the microphone, and launches
// the send and receive pumps. It returns once streaming has begun; the
// caller is never blocked for the session's duration.
func (s *Service) Start(ctx context.Context) error {
	return s.begin(ctx, func(context.Context) (FrameSource, error) {
		return audiocapture.OpenMicrophone(audiocapture.Config{
			SampleRate:   s.cfg.SampleRate,
			FrameSamples: s.cfg.FrameSamples,
		})
	}, sendInterval, false)
}

// StreamFile streams a decoded audio file through the session in place of
// the microphone, paced by speedFactor, and commits the buffered audio when
// the file is exhausted.
func (s *Service) StreamFile(ctx context.Context, path string, speedFactor float64) error {
	// Validate the stream arguments before touching the network.
	if speedFactor <= 0 {
		return fmt.Errorf("speed factor must be positive, got %g", speedFactor)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", audiocapture.ErrFileNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	return s.begin(ctx, func(ctx context.Context) (FrameSource, error) {
		fs, err := audiocapture.DecodeFile(ctx, path, audiocapture.Config{
			SampleRate:   s.cfg.SampleRate,
			FrameSamples: s.cfg.FrameSamples,
		}, speedFactor)
		if err != nil {
			return nil, err
		}
		return &fileSource{fs}, nil
	}, 0, true)
}

func (s *Service) begin(ctx context.Context, open func(context.Context) (FrameSource, error), pace time.Duration, commitAtEOF bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateConfiguring, StateStreaming, StateDraining:
		return ErrAlreadyActive
	}
	if s.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}

	ctx, cancel := context.WithCancel(ctx)

	client := NewClient(ClientConfig{
		APIKey: s.cfg.APIKey,
		Model:  s.cfg.Model,
		URL:    s.cfg.URL,
	})

	s.state = StateConfiguring
	if err := client.Connect(ctx); err != nil {
		s.state = StateIdle
		cancel()
		return fmt.Errorf("connect: %w", err)
	}

	// Configuration is sent before any audio frame. session.created is
	// advisory; streaming proceeds without waiting for it.
	if err := client.Send(ctx, s.configEvent()); err != nil {
		client.Close()
		s.state = StateIdle
		cancel()
		return fmt.Errorf("configure session: %w", err)
	}

	// The derived ctx reaches the frame source so Cleanup's cancel stops a
	// file decode as well as the pumps.
	source, err := open(ctx)
	if err != nil {
		client.Close()
		s.state = StateIdle
		cancel()
		return fmt.Errorf("open frame source: %w", err)
	}

	s.sessionID = uuid.NewString()
	s.client = client
	s.source = source
	s.cancel = cancel
	s.state = StateStreaming
	s.recording.Store(true)

	s.wg.Add(2)
	go s.sendLoop(ctx, client, source, pace, commitAtEOF)
	go s.receiveLoop(ctx, client)

	slog.Info("realtime session started", "session", s.sessionID, "model", s.cfg.Model)
	return nil
}

func (s *Service) configEvent() SessionUpdateEvent {
	return NewSessionUpdate(SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      s.cfg.Instructions,
		Voice:             s.cfg.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &Transcription{
			Model: s.cfg.TranscriptionModel,
		},
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         s.cfg.VADThreshold,
			PrefixPaddingMs:   s.cfg.VADPrefixMs,
			SilenceDurationMs: s.cfg.VADSilenceMs,
		},
	})
}

// sendLoop repeatedly reads one frame and transmits it until recording stops,
// the source is exhausted, or the session ends.
func (s *Service) sendLoop(ctx context.Context, client *Client, source FrameSource, pace time.Duration, commitAtEOF bool) {
	defer s.wg.Done()

	for s.recording.Load() && ctx.Err() == nil {
		frame, err := source.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				if commitAtEOF {
					if cerr := client.Send(ctx, NewCommit()); cerr != nil {
						slog.Error("send commit", "error", cerr)
					}
				}
				s.finishSending()
				return
			}
			slog.Error("frame source failed", "error", err)
			s.surfaceError(err)
			s.finishSending()
			return
		}

		if err := client.Send(ctx, NewAppend(frame)); err != nil {
			if ctx.Err() == nil {
				slog.Error("send audio frame", "error", err)
				s.surfaceError(err)
			}
			s.finishSending()
			return
		}

		if pace > 0 {
			select {
			case <-time.After(pace):
			case <-ctx.Done():
				return
			}
		}
	}
}

// receiveLoop dispatches inbound events until the connection closes. A
// transport failure is reported exactly once; the core never retries.
func (s *Service) receiveLoop(ctx context.Context, client *Client) {
	defer s.wg.Done()

	if err := client.ReadLoop(ctx, s.handleEvent); err != nil {
		slog.Error("receive loop terminated", "error", err)
		s.surfaceError(err)
	}
}

// handleEvent classifies one inbound event and updates shared state. Errors
// are surfaced without terminating the loop; unknown events are ignored.
func (s *Service) handleEvent(event Event) {
	switch e := event.(type) {
	case SessionCreatedEvent:
		slog.Info("session created", "session", s.sessionID)
	case SpeechStartedEvent:
		slog.Debug("speech started", "audio_start_ms", e.AudioStartMs)
	case SpeechStoppedEvent:
		slog.Debug("speech stopped", "audio_end_ms", e.AudioEndMs)
	case TranscriptEvent:
		if e.Transcript == "" {
			return
		}
		s.buffer.Append(e.Transcript)
		slog.Info("transcription completed", "transcript", e.Transcript)
	case TranscriptionFailedEvent:
		slog.Warn("transcription failed",
			"code", e.Error.Code, "message", e.Error.Message)
		s.surfaceError(fmt.Errorf("transcription failed: %s", e.Error.Message))
	case ErrorEvent:
		slog.Error("realtime api error",
			"type", e.Error.Type, "code", e.Error.Code, "message", e.Error.Message)
		s.surfaceError(fmt.Errorf("api error [%s]: %s", e.Error.Code, e.Error.Message))
	case UnknownEvent:
		slog.Debug("ignoring event", "type", e.Type)
	}
}

// Stop transitions Streaming to Draining: audio sending ceases within one
// pacing interval and a commit flushes buffered audio server-side. The
// receive loop keeps collecting late transcripts until Cleanup. A no-op
// unless streaming.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDraining
	client := s.client
	s.mu.Unlock()

	s.recording.Store(false)

	// The commit can stall on a wedged connection; flush it in the
	// background so Stop returns as soon as draining begins.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Send(ctx, NewCommit()); err != nil && !errors.Is(err, ErrNotConnected) {
			slog.Warn("commit on stop", "error", err)
		}
	}()

	slog.Info("realtime session draining", "session", s.sessionID)
	return nil
}

// finishSending marks the session as draining once the send side is done.
func (s *Service) finishSending() {
	s.recording.Store(false)
	s.mu.Lock()
	if s.state == StateStreaming {
		s.state = StateDraining
	}
	s.mu.Unlock()
}

// Cleanup tears the session down from any state: capture stops, the
// transport closes (unblocking a pump stuck in a network read), and the
// state becomes Closed. Safe to call multiple times, and safe even if Start
// never succeeded.
func (s *Service) Cleanup() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	client := s.client
	source := s.source
	cancel := s.cancel
	s.client = nil
	s.source = nil
	s.cancel = nil
	s.mu.Unlock()

	s.recording.Store(false)
	if cancel != nil {
		cancel()
	}
	if client != nil {
		if err := client.Close(); err != nil {
			slog.Warn("close transport", "error", err)
		}
	}
	if source != nil {
		if err := source.Close(); err != nil {
			slog.Warn("close frame source", "error", err)
		}
	}
	s.wg.Wait()

	slog.Info("realtime session closed", "session", s.sessionID)
	return nil
}

// Transcriptions returns a snapshot of all finalized transcripts in arrival
// order.
func (s *Service) Transcriptions() []string {
	return s.buffer.Snapshot()
}

// Latest returns the most recent transcript, or "" if none arrived yet.
func (s *Service) Latest() string {
	return s.buffer.Latest()
}

// Errors returns a channel of non-fatal service-reported errors. The channel
// is buffered and never closed; events are dropped when no one is reading.
func (s *Service) Errors() <-chan error {
	return s.errs
}

// IsRecording reports whether the send loop is actively transmitting audio.
func (s *Service) IsRecording() bool {
	return s.recording.Load()
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the identifier assigned at Start, or "" before it.
func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Service) surfaceError(err error) {
	select {
	case s.errs <- err:
	default:
		// Channel full, skip
	}
}

// fileSource adapts a FileStream to the FrameSource interface.
type fileSource struct {
	fs *audiocapture.FileStream
}

func (f *fileSource) ReadFrame() ([]byte, error) { return f.fs.Next() }
func (f *fileSource) Close() error               { return f.fs.Close() }
