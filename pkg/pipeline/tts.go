package pipeline

import (
	"context"
	"log/slog"

	"github.com/vibevoice/voicebridge/pkg/tts"
)

// TTSProcessor turns final text frames into speech frames using a
// streaming TTS service. Audio is pushed downstream chunk by chunk as
// the server produces it, so playback can begin before the utterance is
// fully synthesized.
type TTSProcessor struct {
	svc    tts.Service
	logger *slog.Logger
}

// NewTTSProcessor creates a TTS pipeline stage.
func NewTTSProcessor(svc tts.Service, logger *slog.Logger) *TTSProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSProcessor{
		svc:    svc,
		logger: logger.With("component", "pipeline.tts"),
	}
}

// Name returns the processor name.
func (p *TTSProcessor) Name() string { return "tts" }

// Process synthesizes final text frames and forwards everything else.
func (p *TTSProcessor) Process(ctx context.Context, frame Frame, push func(Frame)) error {
	switch f := frame.(type) {
	case TextFrame:
		if !f.Final {
			push(frame)
			return nil
		}
		for ev := range p.svc.Run(ctx, f.Text) {
			switch ev.Type {
			case tts.EventStarted:
				push(TTSStartedFrame{})
			case tts.EventAudio:
				push(TTSAudioFrame{
					Audio:      ev.Audio,
					SampleRate: ev.Format.SampleRate,
					Channels:   ev.Format.Channels,
				})
			case tts.EventStopped:
				push(TTSStoppedFrame{})
			}
		}
		return nil

	case CancelFrame:
		if err := p.svc.Cancel(); err != nil {
			p.logger.Warn("cancel failed", "error", err)
		}
		push(frame)
		return nil

	case EndFrame:
		if err := p.svc.Stop(); err != nil {
			p.logger.Warn("stop failed", "error", err)
		}
		push(frame)
		return nil

	default:
		push(frame)
		return nil
	}
}

// Verify TTSProcessor implements Processor at compile time.
var _ Processor = (*TTSProcessor)(nil)
