package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AuthError reports a missing or rejected upstream credential.
type AuthError struct {
	Message string
}

// Compile-time check to ensure AuthError implements error
var _ error = (*AuthError)(nil)

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// TimeoutError reports an upstream call that exceeded its deadline.
type TimeoutError struct {
	Cause error
}

// Compile-time check to ensure TimeoutError implements error
var _ error = (*TimeoutError)(nil)

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout: %v", e.Cause)
}

// Unwrap exposes the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// StatusError reports a non-success upstream HTTP status with the raw body.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Compile-time check to ensure StatusError implements error
var _ error = (*StatusError)(nil)

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// classify wraps transport errors so handlers can map them to client-facing
// status codes. Deadline and i/o timeout errors become TimeoutError; 401/403
// statuses become AuthError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Cause: err}
	}
	return err
}
