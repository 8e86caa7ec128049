package realtime

import (
	"encoding/base64"
	"encoding/json"
)

// Client event types sent to the Realtime API.
const (
	TypeSessionUpdate = "session.update"
	TypeAppend        = "input_audio_buffer.append"
	TypeCommit        = "input_audio_buffer.commit"
)

// Server event types consumed from the Realtime API.
const (
	EventSessionCreated         = "session.created"
	EventSpeechStarted          = "input_audio_buffer.speech_started"
	EventSpeechStopped          = "input_audio_buffer.speech_stopped"
	EventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	EventError                  = "error"
)

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Transcription selects the inline transcription model for the session.
type Transcription struct {
	Model string `json:"model"`
}

// SessionConfig is the session payload of the configuration event.
type SessionConfig struct {
	Modalities              []string       `json:"modalities"`
	Instructions            string         `json:"instructions,omitempty"`
	Voice                   string         `json:"voice,omitempty"`
	InputAudioFormat        string         `json:"input_audio_format"`
	OutputAudioFormat       string         `json:"output_audio_format"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
}

// SessionUpdateEvent is the client event that configures the session.
// It must be sent before any audio frame.
type SessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// NewSessionUpdate builds a session.update event.
func NewSessionUpdate(session SessionConfig) SessionUpdateEvent {
	return SessionUpdateEvent{Type: TypeSessionUpdate, Session: session}
}

// AppendEvent carries one base64-encoded PCM16 frame.
type AppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// NewAppend builds an input_audio_buffer.append event for one frame.
func NewAppend(frame []byte) AppendEvent {
	return AppendEvent{
		Type:  TypeAppend,
		Audio: base64.StdEncoding.EncodeToString(frame),
	}
}

// DecodeAudio recovers the raw frame bytes from an append event.
func (e AppendEvent) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Audio)
}

// CommitEvent asks the service to finalize processing of buffered audio.
type CommitEvent struct {
	Type string `json:"type"`
}

// NewCommit builds an input_audio_buffer.commit event.
func NewCommit() CommitEvent {
	return CommitEvent{Type: TypeCommit}
}

// APIError is the error payload carried by failure events.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// Event is a discriminated union for Realtime API server events.
// Check the concrete type via type switch.
type Event interface {
	eventType() string
}

// SessionCreatedEvent acknowledges the session. It is advisory: audio may be
// sent before it arrives.
type SessionCreatedEvent struct {
	EventID string          `json:"event_id"`
	Session json.RawMessage `json:"session"`
}

func (SessionCreatedEvent) eventType() string { return EventSessionCreated }

// SpeechStartedEvent is emitted when server VAD detects speech.
type SpeechStartedEvent struct {
	EventID      string `json:"event_id"`
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

func (SpeechStartedEvent) eventType() string { return EventSpeechStarted }

// SpeechStoppedEvent is emitted when server VAD detects silence.
type SpeechStoppedEvent struct {
	EventID    string `json:"event_id"`
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func (SpeechStoppedEvent) eventType() string { return EventSpeechStopped }

// TranscriptEvent carries one finalized transcript segment.
type TranscriptEvent struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (TranscriptEvent) eventType() string { return EventTranscriptionCompleted }

// TranscriptionFailedEvent reports a failed transcription of one segment.
type TranscriptionFailedEvent struct {
	EventID string   `json:"event_id"`
	ItemID  string   `json:"item_id"`
	Error   APIError `json:"error"`
}

func (TranscriptionFailedEvent) eventType() string { return EventTranscriptionFailed }

// ErrorEvent reports an API-level error. It does not terminate the session.
type ErrorEvent struct {
	EventID string   `json:"event_id"`
	Error   APIError `json:"error"`
}

func (ErrorEvent) eventType() string { return EventError }

// UnknownEvent holds frames we don't recognize, including malformed JSON.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// ParseEvent unmarshals one received text frame into the appropriate Event
// type. A malformed frame never fails the caller: it is returned as an
// UnknownEvent together with the parse error so the receive loop can log it
// and move on.
func ParseEvent(data []byte) (Event, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return UnknownEvent{Raw: append([]byte(nil), data...)}, err
	}

	switch header.Type {
	case EventSessionCreated:
		var e SessionCreatedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	case EventSpeechStarted:
		var e SpeechStartedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	case EventSpeechStopped:
		var e SpeechStoppedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	case EventTranscriptionCompleted:
		var e TranscriptEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	case EventTranscriptionFailed:
		var e TranscriptionFailedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	case EventError:
		var e ErrorEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return UnknownEvent{Type: header.Type, Raw: data}, err
		}
		return e, nil
	default:
		return UnknownEvent{Type: header.Type, Raw: data}, nil
	}
}
