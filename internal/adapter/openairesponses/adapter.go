package openairesponses

import (
	"context"
	"fmt"
	"iter"
	"time"

	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// ResponsesAdapter serves requests through the OpenAI Responses dialect.
type ResponsesAdapter struct {
	Pool *upstream.Pool
}

// Compile-time check to ensure ResponsesAdapter implements adapter.Adapter
var _ adapter.Adapter = (*ResponsesAdapter)(nil)

// New creates a Responses adapter over the shared client pool.
func New(pool *upstream.Pool) *ResponsesAdapter {
	return &ResponsesAdapter{Pool: pool}
}

// Complete implements adapter.Adapter.
func (a *ResponsesAdapter) Complete(ctx context.Context, call *adapter.Invocation) (*anthropic.MessagesResponse, error) {
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
	client := a.Pool.ClientFor(upstream.BaseURL(cfg, call.Decision.Provider), time.Duration(timeouts.Connect)*time.Millisecond)

	var resp Response
	url := upstream.BaseURL(cfg, call.Decision.Provider) + "/responses"
	if err := upstream.PostJSON(ctx, client, url, apiKey, time.Duration(timeouts.Read)*time.Millisecond, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("upstream response failed: %s", resp.Error.Message)
	}
	return toMessagesResponse(&resp, call.Decision.Model), nil
}

// Stream implements adapter.Adapter.
func (a *ResponsesAdapter) Stream(ctx context.Context, call *adapter.Invocation) (iter.Seq2[anthropic.Frame, error], error) {
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

	body, err := upstream.PostStream(ctx, client, baseURL+"/responses", apiKey, payload)
	if err != nil {
		return nil, err
	}

	trans := newTranslator(call.Decision.Model)
	return adapter.FrameStream(ctx, body, trans.translate, trans.finalize), nil
}
