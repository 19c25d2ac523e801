// Tunnel runner: exposes a local TTS server to the internet through a
// cloudflared quick tunnel and prints the public URL to point clients
// at. With no -command it serves the built-in development TTS backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vibevoice/voicebridge/internal/devserver"
	"github.com/vibevoice/voicebridge/internal/log"
	"github.com/vibevoice/voicebridge/internal/tunnel"
)

func main() {
	port := flag.String("port", "8000", "Local port the server listens on")
	command := flag.String("command", "", "Server command to launch (default: built-in dev TTS server)")
	sampleRate := flag.Int("sample-rate", devserver.DefaultSampleRate, "Dev server output sample rate in Hz")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := tunnel.Config{
		Port:   *port,
		Logger: logger,
		OnURL: func(url string) {
			fmt.Printf("\n  Server is public at: %s\n", url)
			fmt.Printf("  VIBEVOICE_SERVER_URL=%s go run ./cmd/bot\n\n", url)
		},
	}

	var dev *devserver.Server
	if *command != "" {
		cfg.ServerCommand = strings.Fields(*command)
	} else {
		dev = devserver.New(devserver.Config{
			SampleRate: *sampleRate,
			Logger:     logger,
		})
		go func() {
			if err := dev.Listen(*port); err != nil {
				logger.Error("dev server stopped", "error", err)
				cancel()
			}
		}()
		defer dev.Shutdown()
	}

	runner, err := tunnel.New(cfg)
	if err != nil {
		logger.Error("tunnel setup failed", "error", err)
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("tunnel exited", "error", err)
		os.Exit(1)
	}
}
