package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
	"claude-router/internal/config"
	"claude-router/internal/filter"
	"claude-router/internal/observability/middleware"
	"claude-router/internal/router"
)

// MessagesHandler serves POST /v1/messages: it preprocesses the request,
// routes it, and dispatches to the decided adapter or to passthrough.
type MessagesHandler struct {
	Store       *config.Store
	Engine      *router.Engine
	Adapters    map[string]adapter.Adapter
	Passthrough *adapter.Passthrough
}

// Compile-time check to ensure MessagesHandler implements http.Handler
var _ http.Handler = (*MessagesHandler)(nil)

// ServeHTTP implements http.Handler for streaming or non-streaming requests.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSON(ctx, w,
				anthropic.NewError(anthropic.ErrTypeInvalidRequest, http.StatusText(http.StatusRequestEntityTooLarge)),
				http.StatusRequestEntityTooLarge)
			return
		}
		slog.ErrorContext(ctx, "failed to read request body", "error", err)
		writeJSON(ctx, w,
			anthropic.NewError(anthropic.ErrTypeInvalidRequest, http.StatusText(http.StatusBadRequest)),
			http.StatusBadRequest)
		return
	}

	var req anthropic.MessagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSON(ctx, w,
			anthropic.NewError(anthropic.ErrTypeInvalidRequest, "request body is not a valid messages request"),
			http.StatusBadRequest)
		return
	}
	var rawBody map[string]any
	if err := json.Unmarshal(body, &rawBody); err != nil {
		rawBody = map[string]any{}
	}

	cfg := h.Store.Current()
	filter.ApplyToolPolicy(ctx, cfg.ToolPolicy, &req)
	filter.ApplySystemPromptFilter(ctx, cfg.SystemPromptFilter, &req)

	decision := h.Engine.Decide(ctx, cfg, r.Header, &req, rawBody)
	middleware.SetLogAttrs(ctx,
		slog.String("route_provider", decision.Provider),
		slog.String("route_model", decision.Model),
		slog.String("route_adapter", decision.Adapter),
	)
	slog.DebugContext(ctx, "routing decision",
		"provider", decision.Provider,
		"model", decision.Model,
		"adapter", decision.Adapter,
		"reason", decision.Reason,
	)

	if decision.Adapter == config.AdapterAnthropicPassthrough {
		h.Passthrough.Forward(w, r, cfg, passthroughBody(ctx, cfg, &req, body))
		return
	}

	ad, ok := h.Adapters[decision.Adapter]
	if !ok {
		slog.ErrorContext(ctx, "decision names an unknown adapter", "adapter", decision.Adapter)
		writeJSON(ctx, w,
			anthropic.NewError(anthropic.ErrTypeAPI, "no adapter available for this route"),
			http.StatusInternalServerError)
		return
	}

	call := &adapter.Invocation{Request: &req, Decision: decision, Config: cfg}
	if req.Stream {
		h.streamResponse(ctx, w, ad, call)
	} else {
		h.writeResponse(ctx, w, ad, call)
	}
}

// passthroughBody returns the bytes to forward: the original body unless a
// preprocessing filter is configured, in which case the filtered request is
// re-serialized.
func passthroughBody(ctx context.Context, cfg *config.Config, req *anthropic.MessagesRequest, original []byte) []byte {
	if len(cfg.ToolPolicy.RestrictedToolNames) == 0 && len(cfg.SystemPromptFilter.ClauseFilters) == 0 {
		return original
	}
	filtered, err := json.Marshal(req)
	if err != nil {
		slog.ErrorContext(ctx, "failed to re-serialize filtered request, forwarding original", "error", err)
		return original
	}
	return filtered
}

// writeResponse handles non-streaming requests.
func (h *MessagesHandler) writeResponse(ctx context.Context, w http.ResponseWriter, ad adapter.Adapter, call *adapter.Invocation) {
	if ctx.Err() != nil {
		return
	}
	response, err := ad.Complete(ctx, call)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse forwards translated frames over SSE. Errors before the first
// frame become JSON error responses; errors after that terminate the stream
// with an error frame.
func (h *MessagesHandler) streamResponse(ctx context.Context, w http.ResponseWriter, ad adapter.Adapter, call *adapter.Invocation) {
	if ctx.Err() != nil {
		return
	}
	stream, err := ad.Stream(ctx, call)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeError(ctx, w, err)
		return
	}

	for frame, err := range stream {
		// Check for client disconnect before writing; a gone client cancels
		// the upstream through the shared request context.
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)
			errResp, _ := toErrorResponse(err)
			if writeErr := sse.WriteFrame(anthropic.Frame{Event: anthropic.EventError, Data: errResp}); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error frame", "error", writeErr)
			}
			return
		}

		if err := sse.WriteFrame(frame); err != nil {
			slog.ErrorContext(ctx, "failed to write frame", "error", err)
			return
		}
	}
}
