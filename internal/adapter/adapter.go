// Package adapter defines the contract between the request handler and the
// protocol translators, plus translation helpers shared by the OpenAI
// dialects.
package adapter

import (
	"context"
	"iter"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
	"claude-router/internal/router"
)

// Invocation bundles everything an adapter needs to serve one request: the
// decoded inbound request, the routing decision, and the config snapshot the
// request started with.
type Invocation struct {
	Request  *anthropic.MessagesRequest
	Decision router.Decision
	Config   *config.Config
}

// Adapter transforms an inbound Messages API request into a provider API call
// and the provider's answer back into Messages API shape.
//
// Implementations must be stateless across calls; per-stream state lives in
// the returned iterator's closure.
type Adapter interface {
	// Complete serves a non-streaming request and returns the full response.
	Complete(ctx context.Context, call *Invocation) (*anthropic.MessagesResponse, error)

	// Stream serves a streaming request and returns an iterator of SSE frames.
	// The iterator yields a non-nil error at most once, as its final element.
	Stream(ctx context.Context, call *Invocation) (iter.Seq2[anthropic.Frame, error], error)
}
