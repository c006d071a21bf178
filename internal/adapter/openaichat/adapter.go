package openaichat

import (
	"context"
	"iter"
	"time"

	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// ChatAdapter serves requests through the OpenAI Chat Completions dialect.
type ChatAdapter struct {
	Pool *upstream.Pool
}

// Compile-time check to ensure ChatAdapter implements adapter.Adapter
var _ adapter.Adapter = (*ChatAdapter)(nil)

// New creates a Chat Completions adapter over the shared client pool.
func New(pool *upstream.Pool) *ChatAdapter {
	return &ChatAdapter{Pool: pool}
}

// Complete implements adapter.Adapter.
func (a *ChatAdapter) Complete(ctx context.Context, call *adapter.Invocation) (*anthropic.MessagesResponse, error) {
	payload, err := adapter.ApplyOverrides(buildRequest(call, false), call.Decision)
	if err != nil {
		return nil, err
	}

	cfg := call.Config
	apiKey, err := upstream.APIKey(cfg, call.Decision.Provider)
	if err != nil {
		return nil, err
	}
	timeouts := cfg.ProviderTimeouts(call.Decision.Provider)
	baseURL := upstream.BaseURL(cfg, call.Decision.Provider)
	client := a.Pool.ClientFor(baseURL, time.Duration(timeouts.Connect)*time.Millisecond)

	var resp Response
	if err := upstream.PostJSON(ctx, client, baseURL+"/chat/completions", apiKey, time.Duration(timeouts.Read)*time.Millisecond, payload, &resp); err != nil {
		return nil, err
	}
	return toMessagesResponse(&resp, call.Decision.Model), nil
}

// Stream implements adapter.Adapter.
func (a *ChatAdapter) Stream(ctx context.Context, call *adapter.Invocation) (iter.Seq2[anthropic.Frame, error], error) {
	payload, err := adapter.ApplyOverrides(buildRequest(call, true), call.Decision)
	if err != nil {
		return nil, err
	}

	cfg := call.Config
	apiKey, err := upstream.APIKey(cfg, call.Decision.Provider)
	if err != nil {
		return nil, err
	}
	timeouts := cfg.ProviderTimeouts(call.Decision.Provider)
	baseURL := upstream.BaseURL(cfg, call.Decision.Provider)
	client := a.Pool.ClientFor(baseURL, time.Duration(timeouts.Connect)*time.Millisecond)

	body, err := upstream.PostStream(ctx, client, baseURL+"/chat/completions", apiKey, payload)
	if err != nil {
		return nil, err
	}

	trans := newTranslator(call.Decision.Model)
	return adapter.FrameStream(ctx, body, trans.translate, trans.finalize), nil
}
