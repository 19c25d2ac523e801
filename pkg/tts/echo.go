package tts

import (
	"context"
	"encoding/json"
	"strconv"
)

const backendEcho = "echo"

// Echo defaults. The server streams PCM16 at 44.1kHz mono and may emit
// binary chunks well past 1MB, so no inbound message cap is set.
const (
	// DefaultEchoVoice is the default voice preset.
	DefaultEchoVoice = "expresso_02_ex03-ex01_calm_005"

	// DefaultEchoCFGScaleText is the text guidance scale.
	DefaultEchoCFGScaleText = 2.5

	// DefaultEchoCFGScaleSpeaker is the speaker guidance scale.
	DefaultEchoCFGScaleSpeaker = 5.0

	// DefaultEchoSeed is the generation seed.
	DefaultEchoSeed = 0

	// EchoSampleRate is the server's output sample rate in Hz.
	EchoSampleRate = 44100
)

// Echo is a streaming TTS client for an Echo server.
type Echo struct {
	service
}

// NewEcho creates an Echo TTS service. A server URL is required;
// construction fails before any network activity without one.
func NewEcho(opts ...Option) (*Echo, error) {
	cfg := DefaultConfig()
	cfg.Voice = DefaultEchoVoice
	cfg.CFGScaleText = DefaultEchoCFGScaleText
	cfg.CFGScaleSpeaker = DefaultEchoCFGScaleSpeaker
	cfg.Seed = DefaultEchoSeed
	cfg.SampleRate = EchoSampleRate
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(backendEcho, err)
	}

	e := &Echo{service{
		cfg:   cfg,
		eng:   newStreamer(backendEcho, cfg),
		voice: cfg.Voice,
	}}
	e.buildURL = e.StreamURL

	e.eng.logger.Info("service initialized", "server", cfg.ServerURL, "voice", cfg.Voice)
	return e, nil
}

// StreamURL returns the synthesis target for text. Deterministic for a
// given configuration, text and voice.
func (e *Echo) StreamURL(text string) string {
	return streamURL(e.cfg.ServerURL, text, e.Voice(), []param{
		{"cfg_scale_text", strconv.FormatFloat(e.cfg.CFGScaleText, 'g', -1, 64)},
		{"cfg_scale_speaker", strconv.FormatFloat(e.cfg.CFGScaleSpeaker, 'g', -1, 64)},
		{"seed", strconv.Itoa(e.cfg.Seed)},
	})
}

// Voices fetches the available voice presets from the server's
// /v1/voices endpoint, which returns a "data" list of objects carrying
// an "id" field (falling back to "name" when "id" is absent).
func (e *Echo) Voices(ctx context.Context) []string {
	target := HTTPURL(e.cfg.ServerURL) + "/v1/voices"
	return e.eng.fetchVoices(ctx, target, func(body []byte) ([]string, error) {
		var payload struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		voices := make([]string, 0, len(payload.Data))
		for _, v := range payload.Data {
			if v.ID != "" {
				voices = append(voices, v.ID)
			} else {
				voices = append(voices, v.Name)
			}
		}
		return voices, nil
	})
}

// Verify Echo implements Service at compile time.
var _ Service = (*Echo)(nil)
