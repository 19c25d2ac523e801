// Voicebridge bot: connects a browser or WebSocket client to Gemini
// Live for speech understanding and a streaming TTS server for the
// voice. Audio in, text through the model, audio out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/vibevoice/voicebridge/internal/config"
	"github.com/vibevoice/voicebridge/internal/log"
	"github.com/vibevoice/voicebridge/pkg/gemini"
	"github.com/vibevoice/voicebridge/pkg/pipeline"
	"github.com/vibevoice/voicebridge/pkg/transport"
	"github.com/vibevoice/voicebridge/pkg/tts"
)

const systemInstruction = "You are a friendly voice assistant. Keep replies short and conversational; they will be spoken aloud."

func main() {
	transportKind := flag.String("transport", "websocket", "Client transport: websocket or webrtc")
	port := flag.String("port", "7860", "Port to serve clients on")
	ttsKind := flag.String("tts", "vibevoice", "TTS backend: vibevoice or echo")
	serverURL := flag.String("server", "", "TTS server URL (overrides env)")
	voice := flag.String("voice", "", "Voice preset (overrides env)")
	model := flag.String("model", "", "Gemini Live model name")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	svc, ttsRate, err := buildTTS(*ttsKind, *serverURL, *voice)
	if err != nil {
		logger.Error("tts setup failed", "error", err)
		os.Exit(1)
	}

	if *model == "" {
		*model = config.String(config.EnvGeminiModel, "")
	}

	gem, err := gemini.NewClient(gemini.Config{
		APIKey:            config.Required(config.EnvGoogleAPIKey),
		Model:             *model,
		SystemInstruction: systemInstruction,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("gemini setup failed", "error", err)
		os.Exit(1)
	}

	var tr transport.Transport
	switch *transportKind {
	case "websocket":
		// Clients receive audio at the backend's native rate; the hello
		// message announces it.
		tr = transport.NewWebSocket(*port, ttsRate, logger)
	case "webrtc":
		tr = transport.NewWebRTC(*port, logger)
	default:
		logger.Error("unknown transport", "transport", *transportKind)
		os.Exit(1)
	}

	task := pipeline.NewTask()

	// Model text accumulates across partial responses and is released
	// to the pipeline as one utterance when the turn completes.
	var turnMu sync.Mutex
	var turn strings.Builder

	gem.OnResponse(func(text string, final bool) {
		turnMu.Lock()
		defer turnMu.Unlock()
		if !final {
			turn.WriteString(text)
			return
		}
		utterance := turn.String()
		turn.Reset()
		if utterance == "" {
			return
		}
		if err := task.QueueFrame(pipeline.TextFrame{Text: utterance, Final: true}); err != nil {
			logger.Warn("dropped model response", "error", err)
		}
	})

	gem.OnInterrupted(func() {
		logger.Info("barge-in, stopping speech")
		turnMu.Lock()
		turn.Reset()
		turnMu.Unlock()
		if err := svc.Cancel(); err != nil {
			logger.Warn("cancel failed", "error", err)
		}
	})

	gem.OnTranscript(func(text string, final bool) {
		logger.Debug("transcript", "text", text)
	})

	gem.OnError(func(err error) {
		logger.Error("gemini session error", "error", err)
		task.Cancel()
	})

	tr.OnAudioIn(func(pcm []byte) {
		if err := gem.SendAudio(pcm); err != nil {
			logger.Debug("audio upload failed", "error", err)
		}
	})

	tr.OnClientConnected(func(clientID string) {
		logger.Info("client connected", "client", clientID)
		task.QueueFrame(pipeline.LLMRunFrame{})
	})

	tr.OnClientDisconnected(func(clientID string) {
		logger.Info("client disconnected", "client", clientID)
		if err := svc.Cancel(); err != nil {
			logger.Warn("cancel failed", "error", err)
		}
	})

	llm := pipeline.ProcessorFunc{
		ProcessorName: "llm",
		Fn: func(ctx context.Context, frame pipeline.Frame, push func(pipeline.Frame)) error {
			if _, ok := frame.(pipeline.LLMRunFrame); ok {
				return gem.SendText("Greet the user and ask how you can help.")
			}
			push(frame)
			return nil
		},
	}

	sink := pipeline.ProcessorFunc{
		ProcessorName: "transport-out",
		Fn: func(ctx context.Context, frame pipeline.Frame, push func(pipeline.Frame)) error {
			if f, ok := frame.(pipeline.TTSAudioFrame); ok {
				if err := tr.WriteAudio(f.Audio, f.SampleRate, f.Channels); err != nil {
					logger.Debug("audio delivery failed", "error", err)
				}
			}
			return nil
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gem.Start(ctx); err != nil {
		logger.Error("gemini connect failed", "error", err)
		os.Exit(1)
	}
	defer gem.Stop()

	if err := tr.Start(ctx); err != nil {
		logger.Error("transport start failed", "error", err)
		os.Exit(1)
	}
	defer tr.Stop()

	logger.Info("bot running", "transport", *transportKind, "port", *port, "tts", *ttsKind)

	runner := pipeline.NewRunner(logger)
	if err := runner.Run(ctx, task, llm, pipeline.NewTTSProcessor(svc, logger), sink); err != nil && ctx.Err() == nil {
		logger.Error("pipeline failed", "error", err)
	}

	if err := svc.Stop(); err != nil {
		logger.Warn("tts stop failed", "error", err)
	}
}

// Bot-level Echo guidance fallbacks, applied when the env variables are
// unset. Deliberately hotter than the adapter's own defaults.
const (
	botEchoCFGScaleText    = 3.0
	botEchoCFGScaleSpeaker = 8.0
)

// buildTTS constructs the selected TTS backend from flags and env and
// reports its output sample rate.
func buildTTS(kind, serverURL, voice string) (tts.Service, int, error) {
	switch kind {
	case "vibevoice":
		if serverURL == "" {
			serverURL = config.Required(config.EnvVibeVoiceServerURL)
		}
		opts := []tts.Option{
			tts.WithServerURL(serverURL),
			tts.WithVoice(config.String(config.EnvVibeVoiceVoice, tts.DefaultVibeVoiceVoice)),
			tts.WithLogger(log.L()),
		}
		if voice != "" {
			opts = append(opts, tts.WithVoice(voice))
		}
		svc, err := tts.NewVibeVoice(opts...)
		if err != nil {
			return nil, 0, err
		}
		return svc, tts.VibeVoiceSampleRate, nil

	case "echo":
		if serverURL == "" {
			serverURL = config.Required(config.EnvEchoServerURL)
		}
		opts := []tts.Option{
			tts.WithServerURL(serverURL),
			tts.WithVoice(config.String(config.EnvEchoVoice, tts.DefaultEchoVoice)),
			tts.WithCFGScaleText(config.Float(config.EnvEchoCFGScaleText, botEchoCFGScaleText)),
			tts.WithCFGScaleSpeaker(config.Float(config.EnvEchoCFGScaleSpeaker, botEchoCFGScaleSpeaker)),
			tts.WithSeed(config.Int(config.EnvEchoSeed, tts.DefaultEchoSeed)),
			tts.WithLogger(log.L()),
		}
		if voice != "" {
			opts = append(opts, tts.WithVoice(voice))
		}
		svc, err := tts.NewEcho(opts...)
		if err != nil {
			return nil, 0, err
		}
		return svc, tts.EchoSampleRate, nil

	default:
		return nil, 0, fmt.Errorf("unknown tts backend %q", kind)
	}
}
