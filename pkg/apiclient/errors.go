package apiclient

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrTransport reports that no response was obtained.
	ErrTransport = errors.New("transport failure")

	// ErrMalformed reports a body that claimed JSON but did not parse, or a
	// body that could not be decoded into the requested shape.
	ErrMalformed = errors.New("malformed response")
)

// APIError is a response with a non-2xx status. Message holds the server's
// own wording when one could be extracted, else the caller's fallback.
type APIError struct {
	StatusCode int
	Message    string
	Messages   []string
	Malformed  bool
}

// Error implements error.
func (e *APIError) Error() string {
	return e.Message
}

// Is reports ErrMalformed for error responses whose JSON body was broken.
func (e *APIError) Is(target error) bool {
	return target == ErrMalformed && e.Malformed
}

// Unauthorized reports a 401.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NotFound reports a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessage returns the text to show for err: the server's message for API
// errors, fallback for everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}
