package tts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibevoice/voicebridge/internal/httpc"
)

// streamer owns the WebSocket lifecycle for one service instance. There
// is at most one live connection per instance; Stop and Cancel close it
// out-of-band while the receive loop is still iterating, which ends the
// loop via a closed-connection read error.
type streamer struct {
	backend string
	cfg     *Config
	logger  *slog.Logger
	client  *http.Client

	mu   sync.Mutex
	conn *websocket.Conn
}

func newStreamer(backend string, cfg *Config) *streamer {
	return &streamer{
		backend: backend,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "tts."+backend),
		client:  httpc.NewClient(cfg.Timeout),
	}
}

// run drives one synthesis call to completion. It owns the connection
// for the duration of the call and clears it on every exit path. Events
// are delivered in order: started, audio chunks, stopped. Network faults
// are logged and degrade to a truncated stream; the stopped event is
// still delivered.
func (s *streamer) run(ctx context.Context, target string, format AudioFormat, out chan<- Event) {
	defer close(out)

	emit := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	s.logger.Debug("connecting", "url", truncate(target, 100))

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			s.logger.Error("websocket dial failed", "status", resp.StatusCode, "error", err)
		} else {
			s.logger.Error("websocket dial failed", "error", err)
		}
		emit(Event{Type: EventStopped, Format: format})
		return
	}

	s.record(conn)
	defer s.release(conn)

	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	deadline := s.cfg.PingInterval + s.cfg.PongWait
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(ctx, conn, done)

	if !emit(Event{Type: EventStarted, Format: format}) {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("websocket stream ended", "error", err)
			}
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			// Raw PCM16 bytes, passed through unmodified.
			if !emit(Event{Type: EventAudio, Audio: data, Format: format}) {
				return
			}
		case websocket.TextMessage:
			// Out-of-band server diagnostics, never surfaced as audio.
			s.logger.Debug("server message", "message", string(data))
		}
	}

	emit(Event{Type: EventStopped, Format: format})
}

// keepalive sends periodic pings and closes the connection if the
// surrounding context is cancelled while the read loop is blocked.
func (s *streamer) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.CloseTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Warn("keepalive ping failed", "error", err)
				return
			}
		}
	}
}

// record stores the live connection so Stop and Cancel can reach it.
func (s *streamer) record(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// release clears the recorded connection if it is still the given one
// and closes the socket. Called on every exit path of run.
func (s *streamer) release(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

// close shuts down the recorded connection, if any. Closing is
// idempotent; close errors are logged, never propagated.
func (s *streamer) close() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}

	deadline := time.Now().Add(s.cfg.CloseTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.logger.Debug("close handshake failed", "error", err)
	}
	if err := conn.Close(); err != nil {
		s.logger.Warn("error closing websocket", "error", err)
	}
}

// live reports whether a connection is currently recorded.
func (s *streamer) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// fetchVoices performs the metadata GET and hands the body to the
// backend-specific parser. All failures degrade to an empty list with a
// logged warning.
func (s *streamer) fetchVoices(ctx context.Context, target string, parse func([]byte) ([]string, error)) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.logger.Warn("failed to build voices request", "error", err)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("failed to fetch voices", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("failed to fetch voices", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Warn("failed to read voices response", "error", err)
		return nil
	}

	voices, err := parse(body)
	if err != nil {
		s.logger.Warn("failed to parse voices response", "error", err)
		return nil
	}
	return voices
}

// service holds the state shared by both backend variants.
type service struct {
	cfg      *Config
	eng      *streamer
	buildURL func(text string) string

	mu    sync.RWMutex
	voice string
}

// Run converts text to a stream of synthesis events.
func (s *service) Run(ctx context.Context, text string) <-chan Event {
	out := make(chan Event)
	if strings.TrimSpace(text) == "" {
		s.eng.logger.Warn("empty text, skipping synthesis")
		close(out)
		return out
	}

	s.eng.logger.Debug("generating speech", "text", truncate(text, 50))
	go s.eng.run(ctx, s.buildURL(text), s.format(), out)
	return out
}

// SetVoice replaces the voice preset for subsequent calls.
func (s *service) SetVoice(voice string) {
	s.mu.Lock()
	s.voice = voice
	s.mu.Unlock()
	s.eng.logger.Info("voice changed", "voice", voice)
}

// Voice returns the active voice preset.
func (s *service) Voice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voice
}

// Start marks the service ready. No network activity happens here.
func (s *service) Start(ctx context.Context) error {
	s.eng.logger.Info("service started", "server", s.cfg.ServerURL)
	return nil
}

// Stop closes any live synthesis connection.
func (s *service) Stop() error {
	s.eng.close()
	s.eng.logger.Info("service stopped")
	return nil
}

// Cancel aborts an in-flight synthesis call.
func (s *service) Cancel() error {
	s.eng.close()
	s.eng.logger.Info("generation cancelled")
	return nil
}

func (s *service) format() AudioFormat {
	return AudioFormat{
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
		BitDepth:   16,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
