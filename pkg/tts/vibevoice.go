package tts

import (
	"context"
	"encoding/json"
	"strconv"
)

const backendVibeVoice = "vibevoice"

// VibeVoice defaults. The server streams PCM16 at 24kHz mono.
const (
	// DefaultVibeVoiceVoice is the default voice preset.
	DefaultVibeVoiceVoice = "en-Carter_man"

	// DefaultVibeVoiceCFGScale is the classifier-free guidance scale.
	DefaultVibeVoiceCFGScale = 1.5

	// DefaultVibeVoiceSteps is the number of diffusion inference steps.
	DefaultVibeVoiceSteps = 5

	// VibeVoiceSampleRate is the server's output sample rate in Hz.
	VibeVoiceSampleRate = 24000

	// vibeVoiceMaxMessageSize caps inbound chunks at 1MB.
	vibeVoiceMaxMessageSize = 1 << 20
)

// VibeVoice is a streaming TTS client for a VibeVoice server.
type VibeVoice struct {
	service
}

// NewVibeVoice creates a VibeVoice TTS service. A server URL is
// required; construction fails before any network activity without one.
func NewVibeVoice(opts ...Option) (*VibeVoice, error) {
	cfg := DefaultConfig()
	cfg.Voice = DefaultVibeVoiceVoice
	cfg.CFGScale = DefaultVibeVoiceCFGScale
	cfg.Steps = DefaultVibeVoiceSteps
	cfg.SampleRate = VibeVoiceSampleRate
	cfg.MaxMessageSize = vibeVoiceMaxMessageSize
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(backendVibeVoice, err)
	}

	v := &VibeVoice{service{
		cfg:   cfg,
		eng:   newStreamer(backendVibeVoice, cfg),
		voice: cfg.Voice,
	}}
	v.buildURL = v.StreamURL

	v.eng.logger.Info("service initialized", "server", cfg.ServerURL, "voice", cfg.Voice)
	return v, nil
}

// StreamURL returns the synthesis target for text. Deterministic for a
// given configuration, text and voice.
func (v *VibeVoice) StreamURL(text string) string {
	return streamURL(v.cfg.ServerURL, text, v.Voice(), []param{
		{"cfg", strconv.FormatFloat(v.cfg.CFGScale, 'g', -1, 64)},
		{"steps", strconv.Itoa(v.cfg.Steps)},
	})
}

// Voices fetches the available voice presets from the server's /config
// endpoint, which returns a flat "voices" array.
func (v *VibeVoice) Voices(ctx context.Context) []string {
	target := HTTPURL(v.cfg.ServerURL) + "/config"
	return v.eng.fetchVoices(ctx, target, func(body []byte) ([]string, error) {
		var payload struct {
			Voices []string `json:"voices"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return payload.Voices, nil
	})
}

// Verify VibeVoice implements Service at compile time.
var _ Service = (*VibeVoice)(nil)
