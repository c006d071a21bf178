package adapter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"claude-router/internal/config"
	"claude-router/internal/upstream"
)

// hopHeaders are connection-scoped request and response headers that must not
// be forwarded (RFC 7230 section 6.1), plus the message-framing headers the
// transport recomputes.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Te":                  {},
	"Trailer":             {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Host":                {},
	"Content-Length":      {},
}

// Passthrough forwards requests byte-for-byte to the original Anthropic
// backend. It never interprets bodies, so every endpoint and both streaming
// modes work unchanged.
type Passthrough struct {
	Pool *upstream.Pool
}

// Forward proxies the request to the configured origin and streams the
// response back unbuffered. body is the already-consumed inbound body.
func (p *Passthrough) Forward(w http.ResponseWriter, r *http.Request, cfg *config.Config, body []byte) {
	ctx := r.Context()
	target := cfg.Router.OriginalBaseURL + r.URL.RequestURI()

	out, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(ctx, "failed to build passthrough request", "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	copyHeaders(out.Header, r.Header)

	slog.DebugContext(ctx, "forwarding to origin",
		"target", target,
		"authorization", RedactHeader("Authorization", r.Header.Get("Authorization")),
		"x_api_key", RedactHeader("X-Api-Key", r.Header.Get("X-Api-Key")),
	)

	client := p.Pool.ClientFor(cfg.Router.OriginalBaseURL, time.Duration(cfg.Timeouts.Connect)*time.Millisecond)
	resp, err := client.Do(out)
	if err != nil {
		slog.ErrorContext(ctx, "passthrough request failed", "target", target, "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	flushCopy(ctx, w, resp.Body)
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		if _, hop := hopHeaders[http.CanonicalHeaderKey(name)]; hop {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// flushCopy streams body to the client, flushing after every read so SSE
// events are delivered as they arrive.
func flushCopy(ctx context.Context, w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// RedactHeader masks credential-bearing header values for log output.
func RedactHeader(name, value string) string {
	switch http.CanonicalHeaderKey(name) {
	case "Authorization", "X-Api-Key":
		if len(value) > 10 {
			return value[:4] + "..." + value[len(value)-4:]
		}
		return "***"
	default:
		return value
	}
}
