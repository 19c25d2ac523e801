package main

import (
	"strings"
	"testing"

	"github.com/vibevoice/voicebridge/internal/config"
	"github.com/vibevoice/voicebridge/pkg/tts"
)

func TestBuildTTSSampleRates(t *testing.T) {
	_, rate, err := buildTTS("vibevoice", "http://localhost:8000", "")
	if err != nil {
		t.Fatalf("buildTTS vibevoice: %v", err)
	}
	if rate != tts.VibeVoiceSampleRate {
		t.Errorf("vibevoice rate = %d, want %d", rate, tts.VibeVoiceSampleRate)
	}

	_, rate, err = buildTTS("echo", "http://localhost:9000", "")
	if err != nil {
		t.Fatalf("buildTTS echo: %v", err)
	}
	if rate != tts.EchoSampleRate {
		t.Errorf("echo rate = %d, want %d", rate, tts.EchoSampleRate)
	}

	if _, _, err := buildTTS("nope", "http://localhost:1", ""); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestBuildTTSEchoGuidanceFallbacks(t *testing.T) {
	t.Setenv(config.EnvEchoCFGScaleText, "")
	t.Setenv(config.EnvEchoCFGScaleSpeaker, "")
	t.Setenv(config.EnvEchoSeed, "")

	svc, _, err := buildTTS("echo", "http://localhost:9000", "")
	if err != nil {
		t.Fatalf("buildTTS echo: %v", err)
	}
	echo, ok := svc.(*tts.Echo)
	if !ok {
		t.Fatalf("service type = %T, want *tts.Echo", svc)
	}

	url := echo.StreamURL("hi")
	for _, param := range []string{"cfg_scale_text=3&", "cfg_scale_speaker=8&", "seed=0"} {
		if !strings.Contains(url, param) {
			t.Errorf("stream URL %q missing %q", url, param)
		}
	}
}

func TestBuildTTSEchoGuidanceFromEnv(t *testing.T) {
	t.Setenv(config.EnvEchoCFGScaleText, "1.25")
	t.Setenv(config.EnvEchoCFGScaleSpeaker, "6.5")

	svc, _, err := buildTTS("echo", "http://localhost:9000", "")
	if err != nil {
		t.Fatalf("buildTTS echo: %v", err)
	}

	url := svc.(*tts.Echo).StreamURL("hi")
	if !strings.Contains(url, "cfg_scale_text=1.25&") || !strings.Contains(url, "cfg_scale_speaker=6.5&") {
		t.Errorf("stream URL %q should carry env-supplied guidance", url)
	}
}
