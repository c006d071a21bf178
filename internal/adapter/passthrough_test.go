package adapter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"claude-router/internal/config"
	"claude-router/internal/upstream"
)

func TestForwardStripsHopHeaders(t *testing.T) {
	var seen http.Header
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Header().Set("X-Origin", "yes")
		w.Header().Set("Connection", "close")
		fmt.Fprint(w, "ok")
	}))
	defer origin.Close()

	cfg := config.Default()
	cfg.Router.OriginalBaseURL = origin.URL

	req := httptest.NewRequest(http.MethodPost, "/v1/messages?beta=true", strings.NewReader("ignored"))
	req.Header.Set("X-Api-Key", "sk-ant-test")
	req.Header.Set("Anthropic-Version", "2023-06-01")
	req.Header.Set("Proxy-Authorization", "secret")
	req.Header.Set("Connection", "keep-alive")

	rec := httptest.NewRecorder()
	p := &Passthrough{Pool: upstream.NewPool()}
	p.Forward(rec, req, cfg, []byte(`{"model":"claude-opus-4"}`))

	if seen.Get("X-Api-Key") != "sk-ant-test" || seen.Get("Anthropic-Version") != "2023-06-01" {
		t.Errorf("forwarded headers = %v", seen)
	}
	if seen.Get("Proxy-Authorization") != "" {
		t.Error("hop header Proxy-Authorization forwarded")
	}

	resp := rec.Result()
	defer resp.Body.Close()
	if resp.Header.Get("X-Origin") != "yes" {
		t.Errorf("response headers = %v", resp.Header)
	}
	if resp.Header.Get("Connection") == "close" {
		t.Error("hop header Connection copied from origin response")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
}

func TestForwardPreservesPathAndBody(t *testing.T) {
	var gotPath, gotBody string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer origin.Close()

	cfg := config.Default()
	cfg.Router.OriginalBaseURL = origin.URL

	req := httptest.NewRequest(http.MethodPost, "/v1/messages/count_tokens?beta=true", nil)
	rec := httptest.NewRecorder()
	p := &Passthrough{Pool: upstream.NewPool()}
	p.Forward(rec, req, cfg, []byte(`{"model":"m"}`))

	if gotPath != "/v1/messages/count_tokens?beta=true" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"model":"m"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestForwardUnreachableOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Router.OriginalBaseURL = "http://127.0.0.1:1"

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	rec := httptest.NewRecorder()
	p := &Passthrough{Pool: upstream.NewPool()}
	p.Forward(rec, req, cfg, nil)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestForwardLogsRedactedCredentials(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer origin.Close()

	cfg := config.Default()
	cfg.Router.OriginalBaseURL = origin.URL

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("X-Api-Key", "sk-ant-supersecretvalue")
	rec := httptest.NewRecorder()
	p := &Passthrough{Pool: upstream.NewPool()}
	p.Forward(rec, req, cfg, nil)

	out := logs.String()
	if strings.Contains(out, "sk-ant-supersecretvalue") {
		t.Errorf("log output leaked the credential: %s", out)
	}
	if !strings.Contains(out, "sk-a...alue") {
		t.Errorf("log output missing redacted credential: %s", out)
	}
}

func TestRedactHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"Authorization", "Bearer sk-1234567890abcdef", "Bear...cdef"},
		{"x-api-key", "short", "***"},
		{"Content-Type", "application/json", "application/json"},
	}

	for _, tt := range tests {
		if got := RedactHeader(tt.name, tt.value); got != tt.want {
			t.Errorf("RedactHeader(%q, %q) = %q, want %q", tt.name, tt.value, got, tt.want)
		}
	}
}
