// Package config provides environment bootstrapping for voicebridge
// commands. Environment lookup happens here, once, at the CLI boundary;
// library packages receive explicit configuration instead of reading the
// process environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read at the CLI boundary.
const (
	EnvVibeVoiceServerURL = "VIBEVOICE_SERVER_URL"
	EnvEchoServerURL      = "ECHO_SERVER_URL"
	EnvGoogleAPIKey       = "GOOGLE_API_KEY"
	EnvGeminiModel        = "GEMINI_MODEL"

	EnvVibeVoiceVoice = "VIBEVOICE_VOICE"
	EnvEchoVoice      = "ECHO_VOICE"

	EnvEchoCFGScaleText    = "ECHO_CFG_SCALE_TEXT"
	EnvEchoCFGScaleSpeaker = "ECHO_CFG_SCALE_SPEAKER"
	EnvEchoSeed            = "ECHO_SEED"
)

// String returns the value of the named variable, or fallback if unset.
func String(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// Float returns the named variable parsed as a float, or fallback if
// unset or unparseable.
func Float(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Int returns the named variable parsed as an int, or fallback if unset
// or unparseable.
func Int(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Required returns the value of the named variable. It exits the process
// with a usage message when the variable is unset, so misconfiguration
// fails loudly at startup rather than deep inside a synthesis call.
func Required(name string) string {
	v := os.Getenv(name)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", name)
		fmt.Fprintf(os.Stderr, "Usage: %s=... go run ./cmd/...\n", name)
		os.Exit(1)
	}
	return v
}
