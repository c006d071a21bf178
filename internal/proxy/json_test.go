package proxy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

func TestToErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
	}{
		{
			"auth error",
			&upstream.AuthError{Message: "no key"},
			anthropic.ErrTypeAuthentication,
			http.StatusUnauthorized,
		},
		{
			"timeout",
			&upstream.TimeoutError{Cause: context.DeadlineExceeded},
			anthropic.ErrTypeAPI,
			http.StatusGatewayTimeout,
		},
		{
			"upstream status",
			&upstream.StatusError{StatusCode: 429, Body: []byte("rate limited")},
			anthropic.ErrTypeAPI,
			http.StatusBadGateway,
		},
		{
			"wrapped auth error",
			errors.Join(errors.New("request failed"), &upstream.AuthError{Message: "rejected"}),
			anthropic.ErrTypeAuthentication,
			http.StatusUnauthorized,
		},
		{
			"anthropic invalid request",
			anthropic.NewError(anthropic.ErrTypeInvalidRequest, "bad field"),
			anthropic.ErrTypeInvalidRequest,
			http.StatusBadRequest,
		},
		{
			"anthropic authentication",
			anthropic.NewError(anthropic.ErrTypeAuthentication, "bad token"),
			anthropic.ErrTypeAuthentication,
			http.StatusUnauthorized,
		},
		{
			"anthropic api error",
			anthropic.NewError(anthropic.ErrTypeAPI, "boom"),
			anthropic.ErrTypeAPI,
			http.StatusInternalServerError,
		},
		{
			"unknown error",
			errors.New("something else"),
			anthropic.ErrTypeAPI,
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, status := toErrorResponse(tt.err)
			if resp.Err.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Err.Type, tt.wantType)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}
