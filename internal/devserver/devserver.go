// Package devserver runs a stand-in TTS backend for local development.
//
// It speaks both backend dialects on one port: the flat voice list at
// /config, the object voice list at /v1/voices, and a /stream WebSocket
// that emits silent PCM16 chunks sized to the requested text. Useful
// for exercising clients and the tunnel runner without a GPU server.
package devserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Defaults for a server that behaves like the 24kHz backend.
const (
	DefaultSampleRate  = 24000
	DefaultChunkMillis = 40
)

// DefaultVoices is the voice list served when none is configured.
var DefaultVoices = []string{
	"en-Carter_man",
	"en-Maya_woman",
	"en-Frank_man",
}

// Config holds devserver settings.
type Config struct {
	SampleRate  int
	ChunkMillis int
	Voices      []string
	Logger      *slog.Logger
}

// Server is the development TTS backend.
type Server struct {
	cfg    Config
	logger *slog.Logger
	app    *fiber.App
}

// New creates a devserver with defaults filled in.
func New(cfg Config) *Server {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.ChunkMillis <= 0 {
		cfg.ChunkMillis = DefaultChunkMillis
	}
	if len(cfg.Voices) == 0 {
		cfg.Voices = DefaultVoices
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "devserver"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge-devserver",
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/config", s.handleConfig)
	app.Get("/v1/voices", s.handleVoicesV1)

	app.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("text", c.Query("text"))
			c.Locals("voice", c.Query("voice"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/stream", websocket.New(s.handleStream))

	s.app = app
	return s
}

// Listen serves on the given port until Shutdown. Blocking.
func (s *Server) Listen(port string) error {
	s.logger.Info("listening", "port", port, "sample_rate", s.cfg.SampleRate)
	return s.app.Listen(":" + port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleConfig serves the flat voice list.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"voices":      s.cfg.Voices,
		"sample_rate": s.cfg.SampleRate,
	})
}

// handleVoicesV1 serves voices as objects under a data key.
func (s *Server) handleVoicesV1(c *fiber.Ctx) error {
	data := make([]fiber.Map, 0, len(s.cfg.Voices))
	for _, v := range s.cfg.Voices {
		data = append(data, fiber.Map{"id": v, "name": v})
	}
	return c.JSON(fiber.Map{"data": data})
}

// handleStream emits silent PCM16 sized to the requested text, one
// chunk per ChunkMillis, then closes normally.
func (s *Server) handleStream(conn *websocket.Conn) {
	defer conn.Close()

	text, _ := conn.Locals("text").(string)
	voice, _ := conn.Locals("voice").(string)

	s.logger.Info("stream request", "voice", voice, "text_len", len(text))

	if text == "" {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "empty text"),
			time.Now().Add(time.Second))
		return
	}

	chunkBytes := s.cfg.SampleRate * s.cfg.ChunkMillis / 1000 * 2
	chunk := make([]byte, chunkBytes)

	// Roughly one chunk per word keeps duration proportional to input.
	chunks := len(text)/5 + 1

	for i := 0; i < chunks; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.logger.Debug("client gone", "error", err)
			return
		}
		time.Sleep(time.Duration(s.cfg.ChunkMillis) * time.Millisecond)
	}

	status := fmt.Sprintf(`{"type":"done","chunks":%d}`, chunks)
	conn.WriteMessage(websocket.TextMessage, []byte(status))

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
