package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Service for testing.
// Behavior can be customized via function fields.
type Mock struct {
	// RunFunc is called when Run is invoked. If nil, the mock emits a
	// started event, one silent chunk sized to the text, and a stopped
	// event.
	RunFunc func(ctx context.Context, text string) <-chan Event

	// VoicesFunc is called when Voices is invoked.
	// If nil, returns a fixed two-voice list.
	VoicesFunc func(ctx context.Context) []string

	mu    sync.Mutex
	voice string
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// NewMock creates a mock service with sensible defaults.
func NewMock() *Mock {
	return &Mock{voice: "mock-voice"}
}

// Run emits a synthetic event sequence or delegates to RunFunc.
func (m *Mock) Run(ctx context.Context, text string) <-chan Event {
	m.recordCall("Run", text)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, text)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		if len(text) == 0 {
			return
		}
		format := AudioFormat{SampleRate: 24000, Channels: 1, BitDepth: 16}
		out <- Event{Type: EventStarted, Format: format}
		// ~20ms of silence per character gives roughly natural pacing.
		out <- Event{Type: EventAudio, Audio: make([]byte, len(text)*960), Format: format}
		out <- Event{Type: EventStopped, Format: format}
	}()
	return out
}

// SetVoice records the voice change.
func (m *Mock) SetVoice(voice string) {
	m.recordCall("SetVoice", voice)
	m.mu.Lock()
	m.voice = voice
	m.mu.Unlock()
}

// Voice returns the active voice.
func (m *Mock) Voice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice
}

// Voices returns VoicesFunc output or a fixed list.
func (m *Mock) Voices(ctx context.Context) []string {
	m.recordCall("Voices", "")
	if m.VoicesFunc != nil {
		return m.VoicesFunc(ctx)
	}
	return []string{"mock-voice", "mock-voice-2"}
}

// Start records the call.
func (m *Mock) Start(ctx context.Context) error {
	m.recordCall("Start", "")
	return nil
}

// Stop records the call.
func (m *Mock) Stop() error {
	m.recordCall("Stop", "")
	return nil
}

// Cancel records the call.
func (m *Mock) Cancel() error {
	m.recordCall("Cancel", "")
	return nil
}

func (m *Mock) recordCall(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Service at compile time.
var _ Service = (*Mock)(nil)
