package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"claude-router/internal/anthropic"
)

// SSEWriter writes named server-sent events in the Messages API framing:
// an event line, a data line with the JSON payload, and a blank separator,
// flushed immediately so frames reach the client as they are produced.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for SSE output. Fails when the ResponseWriter
// cannot flush, since buffered SSE defeats streaming.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteFrame writes one frame and flushes it.
func (s *SSEWriter) WriteFrame(frame anthropic.Frame) error {
	payload, err := json.Marshal(frame.Data)
	if err != nil {
		return fmt.Errorf("failed to encode frame payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", frame.Event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
