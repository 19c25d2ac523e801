package tts

import (
	"log/slog"
	"strings"
	"time"
)

// Config holds TTS service configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// ServerURL is the synthesis server base address. Required. Accepts
	// http(s):// or ws(s):// schemes; a bare host is treated as ws://.
	ServerURL string

	// Voice is the initial voice preset.
	Voice string

	// Guidance parameters. Which fields apply depends on the backend:
	// VibeVoice uses CFGScale and Steps, Echo uses CFGScaleText,
	// CFGScaleSpeaker and Seed.
	CFGScale        float64
	Steps           int
	CFGScaleText    float64
	CFGScaleSpeaker float64
	Seed            int

	// SampleRate of the audio the server emits, in Hz. Fixed per
	// instance; chunks are labeled with this rate regardless of what
	// the server actually sends.
	SampleRate int

	// MaxMessageSize caps inbound WebSocket messages in bytes.
	// Zero means no limit.
	MaxMessageSize int64

	// Connection keepalive and shutdown bounds.
	PingInterval     time.Duration
	PongWait         time.Duration
	CloseTimeout     time.Duration
	HandshakeTimeout time.Duration

	// Timeout for plain HTTP requests (voice listing).
	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS services.
type Option func(*Config)

// WithServerURL sets the synthesis server base address.
// Any trailing slash is removed.
func WithServerURL(url string) Option {
	return func(c *Config) {
		c.ServerURL = strings.TrimRight(url, "/")
	}
}

// WithVoice sets the initial voice preset.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.Voice = voice
	}
}

// WithCFGScale sets the classifier-free guidance scale (VibeVoice).
func WithCFGScale(scale float64) Option {
	return func(c *Config) {
		c.CFGScale = scale
	}
}

// WithSteps sets the number of diffusion inference steps (VibeVoice).
func WithSteps(steps int) Option {
	return func(c *Config) {
		c.Steps = steps
	}
}

// WithCFGScaleText sets the text guidance scale (Echo).
func WithCFGScaleText(scale float64) Option {
	return func(c *Config) {
		c.CFGScaleText = scale
	}
}

// WithCFGScaleSpeaker sets the speaker guidance scale (Echo).
func WithCFGScaleSpeaker(scale float64) Option {
	return func(c *Config) {
		c.CFGScaleSpeaker = scale
	}
}

// WithSeed sets the generation seed (Echo).
func WithSeed(seed int) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithSampleRate overrides the declared output sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithMaxMessageSize caps inbound message size. Zero disables the cap.
func WithMaxMessageSize(limit int64) Option {
	return func(c *Config) {
		c.MaxMessageSize = limit
	}
}

// WithTimeout sets the request timeout for plain HTTP requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithLogger sets the structured logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns the connection defaults shared by both backends.
// Voice, guidance and sample-rate defaults are backend specific and set
// by the variant constructors.
func DefaultConfig() *Config {
	return &Config{
		PingInterval:     20 * time.Second,
		PongWait:         20 * time.Second,
		CloseTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		Timeout:          30 * time.Second,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	return nil
}
