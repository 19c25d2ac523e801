// Package gemini provides a client for Google's Gemini Live API.
//
// The client speaks the BidiGenerateContent WebSocket protocol and is
// configured for TEXT response modality: it streams user PCM16 audio up
// and receives the model's text responses down, handling speech
// recognition and language modeling in a single hosted service. The text
// output is intended to feed a downstream TTS service.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// liveURL is the Gemini Live BidiGenerateContent endpoint.
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the realtime model used when none is configured.
	DefaultModel = "models/gemini-live-2.5-flash-preview"
)

// Common errors.
var (
	ErrMissingAPIKey  = errors.New("gemini: API key required")
	ErrNotConnected   = errors.New("gemini: client not connected")
	ErrAlreadyStarted = errors.New("gemini: client already started")
)

// Config holds Gemini Live client settings.
type Config struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string

	// Model is the realtime model name. Defaults to DefaultModel.
	Model string

	// SystemInstruction steers the model's responses.
	SystemInstruction string

	// Logger for diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a Gemini Live session producing text responses.
type Client struct {
	cfg    Config
	logger *slog.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	closed    bool

	onResponse    func(text string, final bool)
	onTranscript  func(text string, final bool)
	onInterrupted func()
	onError       func(err error)
}

// NewClient creates a Gemini Live client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "gemini"),
	}, nil
}

// Start establishes the WebSocket connection and begins processing.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s?key=%s", liveURL, c.cfg.APIKey)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("gemini: failed to connect: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.closed = false
	c.mu.Unlock()

	if err := c.sendSetup(); err != nil {
		c.Stop()
		return fmt.Errorf("gemini: failed to configure session: %w", err)
	}

	go c.handleMessages()

	c.logger.Info("session connected", "model", c.cfg.Model)
	return nil
}

// sendSetup sends the initial session configuration. Response modality
// is TEXT so the model outputs text for a downstream TTS stage instead
// of synthesizing audio itself.
func (c *Client) sendSetup() error {
	setup := map[string]any{
		"setup": map[string]any{
			"model": c.cfg.Model,
			"generation_config": map[string]any{
				"response_modalities": []string{"TEXT"},
			},
			"system_instruction": map[string]any{
				"parts": []map[string]any{
					{"text": c.cfg.SystemInstruction},
				},
			},
		},
	}
	return c.sendJSON(setup)
}

// Stop gracefully shuts down the session.
func (c *Client) Stop() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// IsConnected returns true if the session is connected and ready.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// SendAudio streams PCM16 audio to the session.
// Gemini expects 16kHz mono PCM16.
func (c *Client) SendAudio(pcm16 []byte) error {
	c.mu.RLock()
	if !c.connected || c.closed {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(pcm16),
					"mime_type": "audio/pcm",
				},
			},
		},
	}
	return c.sendJSON(msg)
}

// SendText injects a user text turn, requesting an immediate response.
// Used to kick off the conversation when a client connects.
func (c *Client) SendText(text string) error {
	c.mu.RLock()
	if !c.connected || c.closed {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	msg := map[string]any{
		"client_content": map[string]any{
			"turns": []map[string]any{
				{
					"role":  "user",
					"parts": []map[string]any{{"text": text}},
				},
			},
			"turn_complete": true,
		},
	}
	return c.sendJSON(msg)
}

// OnResponse sets the callback for model text output. final is true on
// turn completion; partial text arrives with final=false as the model
// streams.
func (c *Client) OnResponse(fn func(text string, final bool)) {
	c.onResponse = fn
}

// OnTranscript sets the callback for input speech transcription.
func (c *Client) OnTranscript(fn func(text string, final bool)) {
	c.onTranscript = fn
}

// OnInterrupted sets the callback for barge-in: the user started
// speaking while the model was responding.
func (c *Client) OnInterrupted(fn func()) {
	c.onInterrupted = fn
}

// OnError sets the error callback.
func (c *Client) OnError(fn func(err error)) {
	c.onError = fn
}

// sendJSON marshals and writes a message under the write lock.
func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(v)
}

// handleMessages processes incoming WebSocket messages until the
// session closes.
func (c *Client) handleMessages() {
	for {
		c.mu.RLock()
		closed := c.closed
		ws := c.ws
		c.mu.RUnlock()

		if closed || ws == nil {
			return
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()

			if !closed && c.onError != nil {
				c.onError(err)
			}
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug("failed to parse message", "error", err)
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches a single Gemini Live message.
func (c *Client) handleMessage(msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		c.logger.Debug("session ready")
		return
	}

	if serverContent, ok := msg["serverContent"].(map[string]any); ok {
		c.handleServerContent(serverContent)
		return
	}

	c.logger.Debug("unhandled message", "keys", keysOf(msg))
}

// handleServerContent processes model output and turn signals.
func (c *Client) handleServerContent(content map[string]any) {
	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		if c.onResponse != nil {
			c.onResponse("", true)
		}
		return
	}

	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		if c.onInterrupted != nil {
			c.onInterrupted()
		}
		return
	}

	if transcript, ok := content["inputTranscription"].(map[string]any); ok {
		if text, ok := transcript["text"].(string); ok && c.onTranscript != nil {
			c.onTranscript(text, false)
		}
	}

	modelTurn, ok := content["modelTurn"].(map[string]any)
	if !ok {
		return
	}
	parts, ok := modelTurn["parts"].([]any)
	if !ok {
		return
	}

	for _, part := range parts {
		partMap, ok := part.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := partMap["text"].(string); ok && text != "" && c.onResponse != nil {
			c.onResponse(text, false)
		}
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
