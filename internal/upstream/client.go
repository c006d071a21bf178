// Package upstream owns the outbound HTTP plumbing shared by all adapters:
// pooled per-backend clients, credential resolution, JSON and SSE request
// helpers, and the error taxonomy handlers map to response status codes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"claude-router/internal/config"
)

// Pool caches one http.Client per backend. Clients carry no overall timeout so
// SSE streams stay open as long as the request context allows; non-streaming
// reads are bounded by a per-call deadline instead. Entries are written once
// per key; a duplicate build under contention is discarded harmlessly.
type Pool struct {
	clients sync.Map
}

// NewPool returns an empty client pool.
func NewPool() *Pool {
	return &Pool{}
}

// ClientFor returns the pooled client for the given base URL and connect
// timeout, building it on first use.
func (p *Pool) ClientFor(baseURL string, connectTimeout time.Duration) *http.Client {
	key := fmt.Sprintf("%s|%s", baseURL, connectTimeout)
	if cached, ok := p.clients.Load(key); ok {
		return cached.(*http.Client)
	}
	client := &http.Client{
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		// Client.Timeout = 0 keeps long-running SSE streams alive; the
		// request context bounds them instead.
	}
	actual, _ := p.clients.LoadOrStore(key, client)
	return actual.(*http.Client)
}

// APIKey resolves the credential for a provider from its configured
// environment variable, falling back to the global OpenAI key variable.
// Anthropic passthrough forwards the caller's own headers and never calls this.
func APIKey(cfg *config.Config, provider string) (string, error) {
	envVar := cfg.OpenAI.APIKeyEnv
	if p, ok := cfg.Providers[provider]; ok && p.APIKeyEnv != "" {
		envVar = p.APIKeyEnv
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", &AuthError{Message: fmt.Sprintf("no API key for provider %q: environment variable %s is empty", provider, envVar)}
	}
	return key, nil
}

// BaseURL resolves the API base URL for a provider, defaulting to the public
// OpenAI endpoint when the provider config omits one.
func BaseURL(cfg *config.Config, provider string) string {
	if p, ok := cfg.Providers[provider]; ok && p.BaseURL != "" {
		return p.BaseURL
	}
	return "https://api.openai.com/v1"
}

// PostJSON sends a JSON POST and decodes a successful JSON response body into
// out. The read timeout bounds the whole exchange. Non-2xx statuses are
// returned as StatusError (401/403 as AuthError), transport timeouts as
// TimeoutError.
func PostJSON(ctx context.Context, client *http.Client, url, apiKey string, readTimeout time.Duration, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	resp, err := send(ctx, client, url, apiKey, in, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return classify(fmt.Errorf("failed to decode upstream response: %w", err))
	}
	return nil
}

// PostStream sends a JSON POST expecting an SSE response and returns the open
// response body. The caller owns closing it; the request context bounds the
// stream's lifetime.
func PostStream(ctx context.Context, client *http.Client, url, apiKey string, in any) (io.ReadCloser, error) {
	resp, err := send(ctx, client, url, apiKey, in, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func send(ctx context.Context, client *http.Client, url, apiKey string, in any, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, &AuthError{Message: fmt.Sprintf("upstream rejected credentials (status %d): %s", resp.StatusCode, body)}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return resp, nil
}
