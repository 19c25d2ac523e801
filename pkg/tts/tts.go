// Package tts provides streaming text-to-speech clients for self-hosted
// synthesis servers.
//
// The package supports two backend variants that share the same wire
// contract: VibeVoice (24kHz) and Echo (44.1kHz). Both speak a simple
// protocol where the request is encoded entirely in the query string of a
// WebSocket upgrade and the response is a stream of raw PCM16 binary
// frames. All services implement the Service interface, enabling seamless
// switching without changing caller code.
//
// Example usage:
//
//	svc, _ := tts.NewVibeVoice(
//	    tts.WithServerURL("http://localhost:8000"),
//	    tts.WithVoice("en-Carter_man"),
//	)
//	defer svc.Stop()
//
//	for ev := range svc.Run(ctx, "Hello world") {
//	    switch ev.Type {
//	    case tts.EventAudio:
//	        speaker.Write(ev.Audio)
//	    }
//	}
package tts

import (
	"context"
)

// Service defines the streaming TTS client interface.
// All implementations must satisfy this interface for seamless backend switching.
type Service interface {
	// Run converts text to a stream of synthesis events. The returned
	// channel yields exactly one EventStarted before any audio, zero or
	// more EventAudio, and exactly one EventStopped, then closes. Empty
	// or all-whitespace text yields no events and performs no network
	// I/O. Network faults degrade to a truncated stream plus a stopped
	// event; they are never surfaced as errors. The sequence is finite
	// and cannot be traversed twice.
	Run(ctx context.Context, text string) <-chan Event

	// SetVoice replaces the voice preset used by subsequent Run calls.
	// It does not affect a synthesis call already in flight.
	SetVoice(voice string)

	// Voice returns the active voice preset.
	Voice() string

	// Voices fetches the voice presets offered by the server. Any
	// failure degrades to an empty list with a logged warning.
	Voices(ctx context.Context) []string

	// Start marks the service ready. No network activity happens here.
	Start(ctx context.Context) error

	// Stop closes any live synthesis connection. Safe to call when no
	// connection is open, and safe to call more than once.
	Stop() error

	// Cancel aborts an in-flight synthesis call. Identical to Stop.
	Cancel() error
}

// EventType identifies a synthesis event.
type EventType int

const (
	// EventStarted signals that generation began. No payload.
	EventStarted EventType = iota

	// EventAudio carries one chunk of raw PCM16 audio.
	EventAudio

	// EventStopped signals that generation ended. Always the last event.
	EventStopped
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventAudio:
		return "audio"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is one element of a synthesis stream.
type Event struct {
	// Type is the event kind.
	Type EventType

	// Audio holds the raw audio bytes for EventAudio, nil otherwise.
	// Bytes arrive from the server unmodified: no resampling, no
	// transcoding.
	Audio []byte

	// Format describes the declared audio format. Fixed per service
	// instance; every audio event in a session carries the same value.
	Format AudioFormat
}

// AudioFormat describes the PCM encoding parameters of a stream.
type AudioFormat struct {
	// SampleRate in Hz (24000 for VibeVoice, 44100 for Echo).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (16 for PCM16).
	BitDepth int
}
