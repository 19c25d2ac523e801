// TTS smoke checker: lists a server's voices, synthesizes one
// utterance and writes the raw PCM16 to a file, reporting chunk and
// timing stats along the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibevoice/voicebridge/internal/config"
	"github.com/vibevoice/voicebridge/internal/log"
	"github.com/vibevoice/voicebridge/pkg/tts"
)

func main() {
	ttsKind := flag.String("tts", "vibevoice", "TTS backend: vibevoice or echo")
	serverURL := flag.String("server", "", "TTS server URL (overrides env)")
	voice := flag.String("voice", "", "Voice preset")
	text := flag.String("text", "Hello from voicebridge. This is a streaming synthesis check.", "Text to synthesize")
	out := flag.String("out", "out.pcm", "Output file for raw PCM16 audio")
	listOnly := flag.Bool("list", false, "List available voices and exit")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	svc, sampleRate, err := buildService(*ttsKind, *serverURL, *voice)
	if err != nil {
		logger.Error("tts setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	voices := svc.Voices(ctx)
	if len(voices) == 0 {
		fmt.Println("No voices reported (server unreachable or empty list).")
	} else {
		fmt.Printf("Voices (%d):\n", len(voices))
		for _, v := range voices {
			fmt.Printf("  %s\n", v)
		}
	}
	if *listOnly {
		return
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Error("cannot create output file", "path", *out, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("\nSynthesizing with voice %q...\n", svc.Voice())

	start := time.Now()
	var firstChunk time.Duration
	var chunks, bytes int

	for ev := range svc.Run(ctx, *text) {
		switch ev.Type {
		case tts.EventStarted:
			fmt.Println("stream started")
		case tts.EventAudio:
			if chunks == 0 {
				firstChunk = time.Since(start)
			}
			chunks++
			bytes += len(ev.Audio)
			if _, err := f.Write(ev.Audio); err != nil {
				logger.Error("write failed", "error", err)
				cancel()
			}
		case tts.EventStopped:
			fmt.Println("stream stopped")
		}
	}

	if chunks == 0 {
		fmt.Println("No audio received.")
		os.Exit(1)
	}

	audioSecs := float64(bytes) / 2 / float64(sampleRate)
	fmt.Printf("\n%d chunks, %d bytes, %.2fs of audio at %dHz\n", chunks, bytes, audioSecs, sampleRate)
	fmt.Printf("first chunk after %v, total %v\n", firstChunk.Round(time.Millisecond), time.Since(start).Round(time.Millisecond))
	fmt.Printf("wrote %s (play: ffplay -f s16le -ar %d -ch_layout mono %s)\n", *out, sampleRate, *out)
}

// buildService constructs the selected backend and reports its output
// sample rate.
func buildService(kind, serverURL, voice string) (tts.Service, int, error) {
	switch kind {
	case "vibevoice":
		if serverURL == "" {
			serverURL = config.Required(config.EnvVibeVoiceServerURL)
		}
		opts := []tts.Option{tts.WithServerURL(serverURL), tts.WithLogger(log.L())}
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
		opts := []tts.Option{tts.WithServerURL(serverURL), tts.WithLogger(log.L())}
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
