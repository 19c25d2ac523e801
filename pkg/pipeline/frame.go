// Package pipeline provides the minimal frame plumbing that connects a
// transport, a speech/language service and a TTS service into one bot.
//
// It is intentionally small: frames are queued onto a Task, and a Runner
// pushes each frame through an ordered chain of processors. Processors
// forward frames they do not consume, so control frames reach every
// stage.
package pipeline

// Frame is a unit of data or control flowing through the pipeline.
type Frame interface {
	isFrame()
}

// LLMRunFrame triggers a language-model turn, used to kick off the
// conversation when a client connects.
type LLMRunFrame struct{}

// TextFrame carries model text. Final marks the end of a turn; partial
// text arrives with Final false.
type TextFrame struct {
	Text  string
	Final bool
}

// TTSStartedFrame signals that speech generation began.
type TTSStartedFrame struct{}

// TTSAudioFrame carries one chunk of raw PCM16 speech audio.
type TTSAudioFrame struct {
	Audio      []byte
	SampleRate int
	Channels   int
}

// TTSStoppedFrame signals that speech generation ended.
type TTSStoppedFrame struct{}

// EndFrame requests a graceful shutdown after queued frames drain.
type EndFrame struct{}

// CancelFrame requests an immediate abort of in-flight work.
type CancelFrame struct{}

func (LLMRunFrame) isFrame()     {}
func (TextFrame) isFrame()       {}
func (TTSStartedFrame) isFrame() {}
func (TTSAudioFrame) isFrame()   {}
func (TTSStoppedFrame) isFrame() {}
func (EndFrame) isFrame()        {}
func (CancelFrame) isFrame()     {}
