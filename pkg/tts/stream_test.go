package tts

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newStreamServer runs a WebSocket endpoint at /stream and hands each
// upgraded connection to handler.
func newStreamServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// collect drains the event channel, failing the test if it does not
// close within a bounded wait.
func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("event channel did not close; got %d events", len(events))
		}
	}
}

func normalClose(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	// Give the client a moment to read the close frame.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	conn.ReadMessage()
}

func TestRunEmptyText(t *testing.T) {
	var hits atomic.Int32
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		hits.Add(1)
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	for _, text := range []string{"", "   ", "\n\t"} {
		events := collect(t, svc.Run(context.Background(), text))
		if len(events) != 0 {
			t.Errorf("Run(%q) yielded %d events, want 0", text, len(events))
		}
	}

	if n := hits.Load(); n != 0 {
		t.Errorf("server contacted %d times for empty text, want 0", n)
	}
}

func TestRunEventBracket(t *testing.T) {
	chunks := [][]byte{{1, 1, 1, 1}, {2, 2}, {3, 3, 3, 3, 3, 3}}

	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		for _, c := range chunks {
			if err := conn.WriteMessage(websocket.BinaryMessage, c); err != nil {
				return
			}
		}
		normalClose(conn)
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	events := collect(t, svc.Run(context.Background(), "hello"))
	if len(events) != len(chunks)+2 {
		t.Fatalf("got %d events, want %d", len(events), len(chunks)+2)
	}

	if events[0].Type != EventStarted {
		t.Errorf("first event = %v, want started", events[0].Type)
	}
	if last := events[len(events)-1]; last.Type != EventStopped {
		t.Errorf("last event = %v, want stopped", last.Type)
	}

	for i, c := range chunks {
		ev := events[i+1]
		if ev.Type != EventAudio {
			t.Fatalf("event %d = %v, want audio", i+1, ev.Type)
		}
		if !bytes.Equal(ev.Audio, c) {
			t.Errorf("chunk %d = %v, want %v", i, ev.Audio, c)
		}
		if ev.Format.SampleRate != VibeVoiceSampleRate || ev.Format.Channels != 1 || ev.Format.BitDepth != 16 {
			t.Errorf("chunk %d format = %+v", i, ev.Format)
		}
	}

	if svc.eng.live() {
		t.Error("connection still recorded after stream ended")
	}
}

func TestRunServerClosesAbruptly(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.BinaryMessage, []byte{9, 9})
		conn.Close()
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	events := collect(t, svc.Run(context.Background(), "hello"))
	if len(events) < 2 {
		t.Fatalf("got %d events, want at least started and stopped", len(events))
	}
	if events[0].Type != EventStarted {
		t.Errorf("first event = %v, want started", events[0].Type)
	}
	if last := events[len(events)-1]; last.Type != EventStopped {
		t.Errorf("last event = %v, want stopped", last.Type)
	}
}

func TestRunTextMessagesNotSurfaced(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"generating"}`))
		conn.WriteMessage(websocket.BinaryMessage, []byte{5, 5, 5, 5})
		conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"done"}`))
		normalClose(conn)
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	events := collect(t, svc.Run(context.Background(), "hello"))

	var audio int
	for _, ev := range events {
		if ev.Type == EventAudio {
			audio++
		}
	}
	if audio != 1 {
		t.Errorf("got %d audio events, want 1 (text frames must not surface)", audio)
	}
}

func TestRunRequestQuery(t *testing.T) {
	queries := make(chan map[string][]string, 1)
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		queries <- r.URL.Query()
		normalClose(conn)
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), WithVoice("en-Maya_woman"), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	collect(t, svc.Run(context.Background(), "hello world"))

	q := <-queries
	want := map[string]string{
		"text":  "hello world",
		"voice": "en-Maya_woman",
		"cfg":   "1.5",
		"steps": "5",
	}
	for k, v := range want {
		if got := q[k]; len(got) != 1 || got[0] != v {
			t.Errorf("query %s = %v, want %q", k, got, v)
		}
	}
}

func TestRunDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	defer srv.Close()

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	events := collect(t, svc.Run(context.Background(), "hello"))
	if len(events) != 1 || events[0].Type != EventStopped {
		t.Fatalf("got %+v, want a single stopped event", events)
	}
	if svc.eng.live() {
		t.Error("connection recorded after failed dial")
	}
}

func TestStopEndsStream(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 64)); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	ch := svc.Run(context.Background(), "hello")

	var events []Event
	stopped := false
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				if last := events[len(events)-1]; last.Type != EventStopped {
					t.Errorf("last event = %v, want stopped", last.Type)
				}
				if svc.eng.live() {
					t.Error("connection still recorded after Stop")
				}
				// Stop is idempotent with no live connection.
				if err := svc.Stop(); err != nil {
					t.Errorf("second Stop: %v", err)
				}
				return
			}
			events = append(events, ev)
			if ev.Type == EventAudio && !stopped {
				stopped = true
				if err := svc.Stop(); err != nil {
					t.Fatalf("Stop: %v", err)
				}
			}
		case <-timeout:
			t.Fatal("stream did not end after Stop")
		}
	}
}

func TestCancelWithoutStream(t *testing.T) {
	svc, err := NewEcho(WithServerURL("http://localhost:1"), quiet())
	if err != nil {
		t.Fatalf("NewEcho: %v", err)
	}
	if err := svc.Cancel(); err != nil {
		t.Errorf("Cancel with no stream: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop with no stream: %v", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 64)); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := svc.Run(ctx, "hello")

	<-ch // started
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not end after context cancellation")
		}
	}
}

func TestVibeVoiceVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":["en-Carter_man","en-Maya_woman"],"sample_rate":24000}`))
	}))
	defer srv.Close()

	// A ws:// base must be rewritten back to http:// for metadata.
	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1)
	svc, err := NewVibeVoice(WithServerURL(wsURL), quiet())
	if err != nil {
		t.Fatalf("NewVibeVoice: %v", err)
	}

	voices := svc.Voices(context.Background())
	if len(voices) != 2 || voices[0] != "en-Carter_man" || voices[1] != "en-Maya_woman" {
		t.Errorf("Voices = %v", voices)
	}
}

func TestEchoVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"calm","name":"Calm"},{"name":"bright"}]}`))
	}))
	defer srv.Close()

	svc, err := NewEcho(WithServerURL(srv.URL), quiet())
	if err != nil {
		t.Fatalf("NewEcho: %v", err)
	}

	voices := svc.Voices(context.Background())
	if len(voices) != 2 || voices[0] != "calm" || voices[1] != "bright" {
		t.Errorf("Voices = %v", voices)
	}
}

func TestVoicesDegradeToEmpty(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc, err := NewVibeVoice(WithServerURL(srv.URL), quiet())
		if err != nil {
			t.Fatalf("NewVibeVoice: %v", err)
		}
		if voices := svc.Voices(context.Background()); len(voices) != 0 {
			t.Errorf("Voices = %v, want empty", voices)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		svc, err := NewEcho(WithServerURL(srv.URL), quiet())
		if err != nil {
			t.Fatalf("NewEcho: %v", err)
		}
		if voices := svc.Voices(context.Background()); len(voices) != 0 {
			t.Errorf("Voices = %v, want empty", voices)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		svc, err := NewVibeVoice(WithServerURL("http://127.0.0.1:1"), WithTimeout(time.Second), quiet())
		if err != nil {
			t.Fatalf("NewVibeVoice: %v", err)
		}
		if voices := svc.Voices(context.Background()); len(voices) != 0 {
			t.Errorf("Voices = %v, want empty", voices)
		}
	})
}
