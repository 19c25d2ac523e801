package devserver

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
)

func TestVoiceEndpoints(t *testing.T) {
	s := New(Config{Voices: []string{"alpha", "beta"}})

	t.Run("config", func(t *testing.T) {
		resp, err := s.app.Test(httptest.NewRequest("GET", "/config", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		var payload struct {
			Voices     []string `json:"voices"`
			SampleRate int      `json:"sample_rate"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(payload.Voices) != 2 || payload.Voices[0] != "alpha" {
			t.Errorf("voices = %v", payload.Voices)
		}
		if payload.SampleRate != DefaultSampleRate {
			t.Errorf("sample_rate = %d, want %d", payload.SampleRate, DefaultSampleRate)
		}
	})

	t.Run("v1 voices", func(t *testing.T) {
		resp, err := s.app.Test(httptest.NewRequest("GET", "/v1/voices", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		var payload struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(payload.Data) != 2 || payload.Data[1].ID != "beta" {
			t.Errorf("data = %v", payload.Data)
		}
	})

	t.Run("health", func(t *testing.T) {
		resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestDefaults(t *testing.T) {
	s := New(Config{})
	if s.cfg.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d", s.cfg.SampleRate)
	}
	if s.cfg.ChunkMillis != DefaultChunkMillis {
		t.Errorf("chunk millis = %d", s.cfg.ChunkMillis)
	}
	if len(s.cfg.Voices) == 0 {
		t.Error("voices should default")
	}
}

func TestStreamRequiresUpgrade(t *testing.T) {
	s := New(Config{})
	resp, err := s.app.Test(httptest.NewRequest("GET", "/stream?text=hi", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 426 {
		t.Errorf("status = %d, want 426 upgrade required", resp.StatusCode)
	}
}
