package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

const (
	// DefaultURL is the OpenAI Realtime API endpoint.
	DefaultURL = "wss://api.openai.com/v1/realtime"
	// DefaultModel is the default realtime model.
	DefaultModel = "gpt-4o-realtime-preview-2024-10-01"
)

// ErrAlreadyConnected is returned by Connect on an already-open client.
var ErrAlreadyConnected = errors.New("realtime: already connected")

// ErrNotConnected is returned by Send before Connect or after Close.
var ErrNotConnected = errors.New("realtime: not connected")

// Client owns the persistent WebSocket connection to the Realtime API.
// Sends are serialized; reads run concurrently on the full-duplex connection.
type Client struct {
	url    string
	apiKey string
	model  string

	mu     sync.Mutex // guards conn and closed, and serializes writes
	conn   *websocket.Conn
	closed bool
}

// ClientConfig holds configuration for the Client.
type ClientConfig struct {
	APIKey string
	Model  string
	URL    string
}

// NewClient creates a new Client. It does not connect.
func NewClient(cfg ClientConfig) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if url == DefaultURL {
		url = fmt.Sprintf("%s?model=%s", url, model)
	}

	return &Client{
		url:    url,
		apiKey: cfg.APIKey,
		model:  model,
	}
}

// Connect establishes the WebSocket connection with auth headers. Calling
// Connect on an already-open client returns ErrAlreadyConnected; construct a
// new Client after Close.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil || c.closed {
		return ErrAlreadyConnected
	}

	opts := &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": {"Bearer " + c.apiKey},
			"OpenAI-Beta":   {"realtime=v1"},
		},
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	// Transcript events can be large; lift the default read limit.
	conn.SetReadLimit(1 << 20)

	c.conn = conn
	return nil
}

// Send marshals one client event and writes it as a single text frame.
// Concurrent callers are serialized; no two sends interleave bytes.
func (c *Client) Send(ctx context.Context, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.closed {
		return ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return c.conn.Write(ctx, websocket.MessageText, data)
}

// ReadLoop reads inbound frames until the connection closes or ctx is
// canceled, decoding each one and invoking onEvent synchronously before the
// next read. Malformed frames are logged and delivered as UnknownEvent.
// A transport-level failure terminates the loop and is reported once via the
// return value; a clean close returns nil.
func (c *Client) ReadLoop(ctx context.Context, onEvent func(Event)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if c.isClosed() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		event, perr := ParseEvent(data)
		if perr != nil {
			slog.Warn("malformed event frame", "error", perr, "data", string(data))
		}
		onEvent(event)
	}
}

// Close releases the connection. Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn != nil {
		return c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
