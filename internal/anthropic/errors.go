package anthropic

// Error taxonomy of the Messages API.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAuthentication = "authentication_error"
	ErrTypeAPI            = "api_error"
	ErrTypeOverloaded     = "overloaded_error"
)

// ErrorDetail is the inner error object of an Anthropic error response.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the Anthropic-shaped error envelope, usable both as a JSON
// body and as a Go error so handlers can surface it with errors.As.
type ErrorResponse struct {
	Type string      `json:"type"`
	Err  ErrorDetail `json:"error"`
}

// Compile-time check to ensure ErrorResponse implements error
var _ error = (*ErrorResponse)(nil)

// Error implements the error interface, returning the underlying message.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

// NewError builds an Anthropic-shaped error with the given type and message.
func NewError(errType, message string) *ErrorResponse {
	return &ErrorResponse{
		Type: "error",
		Err: ErrorDetail{
			Type:    errType,
			Message: message,
		},
	}
}
