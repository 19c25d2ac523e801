package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vibevoice/voicebridge/pkg/audio"
)

// WebSocket serves a single client over a raw WebSocket: binary frames
// carry PCM16 mono audio in both directions. The client sends at
// InputSampleRate; outbound audio is resampled to the rate announced in
// the session hello message.
type WebSocket struct {
	port   string
	logger *slog.Logger
	app    *fiber.App

	mu      sync.Mutex
	conn    *websocket.Conn
	client  string
	started bool
	outRate int

	onAudioIn            func(pcm []byte)
	onClientConnected    func(clientID string)
	onClientDisconnected func(clientID string)
}

// NewWebSocket creates a WebSocket transport serving on the given port.
// outRate is the PCM16 rate sent to clients.
func NewWebSocket(port string, outRate int, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}

	t := &WebSocket{
		port:    port,
		outRate: outRate,
		logger:  logger.With("component", "transport.websocket"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge",
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(t.handleClient))

	t.app = app
	return t
}

// Start begins serving in the background.
func (t *WebSocket) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	t.mu.Unlock()

	go func() {
		if err := t.app.Listen(":" + t.port); err != nil {
			t.logger.Error("server stopped", "error", err)
		}
	}()

	t.logger.Info("listening", "port", t.port)
	return nil
}

// Stop shuts the server down and disconnects any client.
func (t *WebSocket) Stop() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return t.app.Shutdown()
}

// WriteAudio sends one PCM16 chunk to the connected client.
func (t *WebSocket) WriteAudio(pcm []byte, sampleRate, channels int) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNoClient
	}

	pcm = t.outPCM(pcm, sampleRate)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNoClient
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// outPCM adapts a chunk to the announced output rate. Audio already at
// that rate passes through byte for byte.
func (t *WebSocket) outPCM(pcm []byte, sampleRate int) []byte {
	if sampleRate == t.outRate {
		return pcm
	}
	samples := audio.Resample(audio.BytesToInt16(pcm), sampleRate, t.outRate)
	return audio.Int16ToBytes(samples)
}

// OnAudioIn sets the callback for client audio.
func (t *WebSocket) OnAudioIn(fn func(pcm []byte)) {
	t.onAudioIn = fn
}

// OnClientConnected sets the callback for a client joining.
func (t *WebSocket) OnClientConnected(fn func(clientID string)) {
	t.onClientConnected = fn
}

// OnClientDisconnected sets the callback for a client leaving.
func (t *WebSocket) OnClientDisconnected(fn func(clientID string)) {
	t.onClientDisconnected = fn
}

// handleClient owns one client connection for its lifetime. A second
// client is rejected while one is active.
func (t *WebSocket) handleClient(conn *websocket.Conn) {
	clientID := uuid.NewString()

	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		t.logger.Warn("rejecting second client", "client", clientID)
		conn.Close()
		return
	}
	t.conn = conn
	t.client = clientID
	t.mu.Unlock()

	t.logger.Info("client connected", "client", clientID)

	// Hello tells the client what format to expect back.
	hello := fmt.Sprintf(`{"type":"hello","sample_rate":%d,"channels":1,"encoding":"pcm_s16le"}`, t.outRate)
	conn.WriteMessage(websocket.TextMessage, []byte(hello))

	if t.onClientConnected != nil {
		t.onClientConnected(clientID)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			if t.onAudioIn != nil {
				t.onAudioIn(data)
			}
		case websocket.TextMessage:
			t.logger.Debug("client message", "message", string(data))
		}
	}

	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		t.client = ""
	}
	t.mu.Unlock()
	conn.Close()

	t.logger.Info("client disconnected", "client", clientID)
	if t.onClientDisconnected != nil {
		t.onClientDisconnected(clientID)
	}
}

// Verify WebSocket implements Transport at compile time.
var _ Transport = (*WebSocket)(nil)
