package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/vibevoice/voicebridge/pkg/audio"
)

// Opus framing for the outbound track. WebRTC audio is always clocked
// at 48kHz; 20ms frames are 960 samples.
const (
	opusSampleRate    = 48000
	opusFrameSamples  = 960
	opusFrameDuration = 20 * time.Millisecond
	maxOpusPacket     = 1400
)

// WebRTC serves a single browser client: Opus audio in both directions,
// with SDP offer/answer exchanged over a plain HTTP endpoint. Inbound
// audio is decoded straight to PCM16 at InputSampleRate; outbound PCM16
// is resampled to 48kHz and Opus-encoded in 20ms frames.
type WebRTC struct {
	port   string
	logger *slog.Logger
	app    *fiber.App

	mu      sync.Mutex
	pc      *webrtc.PeerConnection
	track   *webrtc.TrackLocalStaticSample
	client  string
	started bool

	encMu   sync.Mutex
	encoder *opus.Encoder
	pending []int16

	onAudioIn            func(pcm []byte)
	onClientConnected    func(clientID string)
	onClientDisconnected func(clientID string)
}

// NewWebRTC creates a WebRTC transport serving on the given port.
func NewWebRTC(port string, logger *slog.Logger) *WebRTC {
	if logger == nil {
		logger = slog.Default()
	}

	t := &WebRTC{
		port:   port,
		logger: logger.With("component", "transport.webrtc"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/api/offer", t.handleOffer)

	t.app = app
	return t
}

// Start begins serving in the background.
func (t *WebRTC) Start(ctx context.Context) error {
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

// Stop closes the peer connection and shuts the server down.
func (t *WebRTC) Stop() error {
	t.mu.Lock()
	pc := t.pc
	t.pc = nil
	t.track = nil
	t.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
	return t.app.Shutdown()
}

// WriteAudio queues PCM16 audio for the client, encoding complete 20ms
// Opus frames as enough samples accumulate.
func (t *WebRTC) WriteAudio(pcm []byte, sampleRate, channels int) error {
	t.mu.Lock()
	track := t.track
	t.mu.Unlock()

	if track == nil {
		return ErrNoClient
	}

	samples := audio.BytesToInt16(pcm)
	if sampleRate != opusSampleRate {
		samples = audio.Resample(samples, sampleRate, opusSampleRate)
	}

	t.encMu.Lock()
	defer t.encMu.Unlock()

	if t.encoder == nil {
		enc, err := opus.NewEncoder(opusSampleRate, 1, opus.AppVoIP)
		if err != nil {
			return fmt.Errorf("transport: create opus encoder: %w", err)
		}
		t.encoder = enc
	}

	t.pending = append(t.pending, samples...)

	buf := make([]byte, maxOpusPacket)
	for len(t.pending) >= opusFrameSamples {
		frame := t.pending[:opusFrameSamples]
		t.pending = t.pending[opusFrameSamples:]

		n, err := t.encoder.Encode(frame, buf)
		if err != nil {
			return fmt.Errorf("transport: opus encode: %w", err)
		}
		sample := media.Sample{Data: append([]byte(nil), buf[:n]...), Duration: opusFrameDuration}
		if err := track.WriteSample(sample); err != nil {
			return fmt.Errorf("transport: write sample: %w", err)
		}
	}

	return nil
}

// OnAudioIn sets the callback for client audio.
func (t *WebRTC) OnAudioIn(fn func(pcm []byte)) {
	t.onAudioIn = fn
}

// OnClientConnected sets the callback for a client joining.
func (t *WebRTC) OnClientConnected(fn func(clientID string)) {
	t.onClientConnected = fn
}

// OnClientDisconnected sets the callback for a client leaving.
func (t *WebRTC) OnClientDisconnected(fn func(clientID string)) {
	t.onClientDisconnected = fn
}

// handleOffer performs the SDP exchange for a new client. A new offer
// replaces any existing peer connection.
func (t *WebRTC) handleOffer(c *fiber.Ctx) error {
	var offer struct {
		SDP  string `json:"sdp"`
		Type string `json:"type"`
	}
	if err := c.BodyParser(&offer); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid offer")
	}

	clientID := uuid.NewString()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("transport: create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusSampleRate, Channels: 2},
		"audio", "voicebridge",
	)
	if err != nil {
		pc.Close()
		return fmt.Errorf("transport: create track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return fmt.Errorf("transport: add track: %w", err)
	}

	pc.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		t.logger.Info("got track", "kind", remote.Kind().String(), "codec", remote.Codec().MimeType)
		if remote.Kind() == webrtc.RTPCodecTypeAudio {
			go t.readClientAudio(remote)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		t.logger.Debug("connection state", "state", state.String(), "client", clientID)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			if t.onClientConnected != nil {
				t.onClientConnected(clientID)
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			t.mu.Lock()
			if t.client == clientID {
				t.pc = nil
				t.track = nil
				t.client = ""
			}
			t.mu.Unlock()
			if t.onClientDisconnected != nil {
				t.onClientDisconnected(clientID)
			}
		}
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		pc.Close()
		return fiber.NewError(fiber.StatusBadRequest, "bad SDP: "+err.Error())
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("transport: create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return fmt.Errorf("transport: set local description: %w", err)
	}
	<-gathered

	t.mu.Lock()
	old := t.pc
	t.pc = pc
	t.track = track
	t.client = clientID
	t.mu.Unlock()
	if old != nil {
		old.Close()
	}

	local := pc.LocalDescription()
	return c.JSON(fiber.Map{"sdp": local.SDP, "type": local.Type.String()})
}

// readClientAudio decodes the remote Opus track to PCM16 at
// InputSampleRate and hands it to the audio-in callback.
func (t *WebRTC) readClientAudio(remote *webrtc.TrackRemote) {
	decoder, err := opus.NewDecoder(InputSampleRate, 1)
	if err != nil {
		t.logger.Error("create opus decoder", "error", err)
		return
	}

	// Max Opus frame is 120ms: 1920 samples at 16kHz.
	frameBuf := make([]int16, 1920)

	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			t.logger.Debug("track read ended", "error", err)
			return
		}
		t.decodePacket(decoder, pkt, frameBuf)
	}
}

// decodePacket decodes one RTP payload and delivers the PCM.
func (t *WebRTC) decodePacket(decoder *opus.Decoder, pkt *rtp.Packet, frameBuf []int16) {
	if len(pkt.Payload) == 0 {
		return
	}
	n, err := decoder.Decode(pkt.Payload, frameBuf)
	if err != nil {
		t.logger.Debug("opus decode failed", "error", err)
		return
	}
	if t.onAudioIn != nil {
		t.onAudioIn(audio.Int16ToBytes(frameBuf[:n]))
	}
}

// Verify WebRTC implements Transport at compile time.
var _ Transport = (*WebRTC)(nil)
