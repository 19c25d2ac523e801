package tts

import (
	"net/url"
	"strings"
)

// streamPath is the synthesis endpoint shared by both backends.
const streamPath = "/stream"

// WebSocketURL rewrites a base address to its streaming-protocol
// equivalent: http becomes ws, https becomes wss. An address with no
// recognized scheme is treated as ws://<address>. The function is
// idempotent under its own output.
func WebSocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
		return base
	default:
		return "ws://" + base
	}
}

// HTTPURL rewrites a base address back to plain HTTP for metadata
// requests: ws becomes http, wss becomes https. An address with no
// recognized scheme is treated as http://<address>.
func HTTPURL(base string) string {
	switch {
	case strings.HasPrefix(base, "ws://"):
		return "http://" + strings.TrimPrefix(base, "ws://")
	case strings.HasPrefix(base, "wss://"):
		return "https://" + strings.TrimPrefix(base, "wss://")
	case strings.HasPrefix(base, "http://"), strings.HasPrefix(base, "https://"):
		return base
	default:
		return "http://" + base
	}
}

// streamURL builds the synthesis target for a request. It is a pure
// function of its inputs: the same base, text and parameters always
// produce the same URL string, which keeps the adapters unit-testable
// without a live server. Parameters are encoded in key order with text
// and voice leading, matching the server's documented contract.
func streamURL(base, text, voice string, params []param) string {
	var q strings.Builder
	q.WriteString("text=")
	q.WriteString(url.QueryEscape(text))
	q.WriteString("&voice=")
	q.WriteString(url.QueryEscape(voice))
	for _, p := range params {
		q.WriteByte('&')
		q.WriteString(url.QueryEscape(p.key))
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(p.value))
	}
	return WebSocketURL(base) + streamPath + "?" + q.String()
}

// param is one backend-specific query field, passed through verbatim.
type param struct {
	key   string
	value string
}
