// Package transport connects remote clients to the bot pipeline.
//
// Two implementations are provided: a WebSocket transport for clients
// that stream raw PCM16 frames, and a WebRTC transport for browsers,
// which carries Opus audio both ways. Both expose the same capability
// set: PCM16 audio in via callback, PCM16 audio out via WriteAudio, and
// client lifecycle events.
package transport

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrNoClient       = errors.New("transport: no connected client")
	ErrAlreadyStarted = errors.New("transport: already started")
)

// InputSampleRate is the PCM16 rate delivered to OnAudioIn, matching
// what the speech service expects.
const InputSampleRate = 16000

// Transport moves audio between a remote client and the pipeline.
type Transport interface {
	// Start begins serving. Non-blocking; serving continues until Stop.
	Start(ctx context.Context) error

	// Stop shuts the transport down and disconnects any client.
	Stop() error

	// WriteAudio sends PCM16 audio to the connected client. The
	// transport adapts sample rate and framing as its wire format
	// requires.
	WriteAudio(pcm []byte, sampleRate, channels int) error

	// OnAudioIn sets the callback for client audio. Audio is PCM16
	// mono at InputSampleRate.
	OnAudioIn(fn func(pcm []byte))

	// OnClientConnected sets the callback for a client joining.
	OnClientConnected(fn func(clientID string))

	// OnClientDisconnected sets the callback for a client leaving.
	OnClientDisconnected(fn func(clientID string))
}
