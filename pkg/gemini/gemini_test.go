package gemini

import (
	"errors"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient without key = %v, want ErrMissingAPIKey", err)
	}

	c, err := NewClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.cfg.Model != DefaultModel {
		t.Errorf("model = %q, want default %q", c.cfg.Model, DefaultModel)
	}
	if c.IsConnected() {
		t.Error("new client should not report connected")
	}
}

func TestSendBeforeStart(t *testing.T) {
	c, err := NewClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.SendAudio([]byte{0, 0}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendAudio = %v, want ErrNotConnected", err)
	}
	if err := c.SendText("hi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendText = %v, want ErrNotConnected", err)
	}
}

func TestHandleServerContent(t *testing.T) {
	c, err := NewClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var texts []string
	var finals []bool
	c.OnResponse(func(text string, final bool) {
		texts = append(texts, text)
		finals = append(finals, final)
	})

	interrupted := false
	c.OnInterrupted(func() { interrupted = true })

	var transcript string
	c.OnTranscript(func(text string, final bool) { transcript = text })

	c.handleServerContent(map[string]any{
		"modelTurn": map[string]any{
			"parts": []any{
				map[string]any{"text": "Hello "},
				map[string]any{"text": "there."},
			},
		},
	})
	c.handleServerContent(map[string]any{"turnComplete": true})
	c.handleServerContent(map[string]any{"interrupted": true})
	c.handleServerContent(map[string]any{
		"inputTranscription": map[string]any{"text": "user said hi"},
	})

	if len(texts) != 3 {
		t.Fatalf("got %d response callbacks, want 3", len(texts))
	}
	if texts[0] != "Hello " || texts[1] != "there." {
		t.Errorf("partial texts = %q, %q", texts[0], texts[1])
	}
	if finals[0] || finals[1] || !finals[2] {
		t.Errorf("finals = %v, want final only on turn completion", finals)
	}
	if texts[2] != "" {
		t.Errorf("final callback text = %q, want empty", texts[2])
	}
	if !interrupted {
		t.Error("interrupted signal not delivered")
	}
	if transcript != "user said hi" {
		t.Errorf("transcript = %q", transcript)
	}
}

func TestHandleMessageIgnoresUnknown(t *testing.T) {
	c, err := NewClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	// Must not panic with no callbacks registered.
	c.handleMessage(map[string]any{"setupComplete": map[string]any{}})
	c.handleMessage(map[string]any{"toolCall": map[string]any{}})
	c.handleServerContent(map[string]any{"modelTurn": "malformed"})
}
