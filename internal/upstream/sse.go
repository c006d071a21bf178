package upstream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Event is a single SSE event from an upstream stream. Type comes from the
// event line when present, otherwise from the payload's "type" field.
type Event struct {
	Type string
	Data json.RawMessage
}

// SSEReader reads server-sent events from an upstream response body.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates a reader over r. The scanner buffer tolerates large
// single-event payloads such as base64 encrypted reasoning content.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	return &SSEReader{scanner: scanner}
}

// Next returns the next event. Returns io.EOF at end of stream or on the
// [DONE] terminator. Data-less frames and comment lines are skipped.
func (r *SSEReader) Next() (Event, error) {
	var eventName string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(line[len("data:"):])
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return Event{}, io.EOF
			}
			ev := Event{Type: eventName, Data: json.RawMessage(data)}
			if ev.Type == "" {
				var typed struct {
					Type string `json:"type"`
				}
				if err := json.Unmarshal(ev.Data, &typed); err == nil {
					ev.Type = typed.Type
				}
			}
			return ev, nil
		case line == "":
			eventName = ""
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
