package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeError writes an Anthropic-shaped error response with the HTTP status
// implied by the error's classification: credential problems map to 401,
// upstream timeouts to 504, other upstream failures to 502.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	errResp, status := toErrorResponse(err)
	writeJSON(ctx, w, errResp, status)
}

// toErrorResponse normalizes any error into the Anthropic error envelope and
// its HTTP status.
func toErrorResponse(err error) (*anthropic.ErrorResponse, int) {
	var authErr *upstream.AuthError
	if errors.As(err, &authErr) {
		return anthropic.NewError(anthropic.ErrTypeAuthentication, authErr.Message), http.StatusUnauthorized
	}
	var timeoutErr *upstream.TimeoutError
	if errors.As(err, &timeoutErr) {
		return anthropic.NewError(anthropic.ErrTypeAPI, timeoutErr.Error()), http.StatusGatewayTimeout
	}
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return anthropic.NewError(anthropic.ErrTypeAPI, statusErr.Error()), http.StatusBadGateway
	}
	var apiErr *anthropic.ErrorResponse
	if errors.As(err, &apiErr) {
		status := http.StatusInternalServerError
		switch apiErr.Err.Type {
		case anthropic.ErrTypeInvalidRequest:
			status = http.StatusBadRequest
		case anthropic.ErrTypeAuthentication:
			status = http.StatusUnauthorized
		}
		return apiErr, status
	}
	return anthropic.NewError(anthropic.ErrTypeAPI, err.Error()), http.StatusBadGateway
}
