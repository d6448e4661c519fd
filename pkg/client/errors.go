package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the requester.
var (
	// ErrUnsupportedMethod is returned for methods other than GET or POST.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")

	// ErrContextCancelled is returned when the context is cancelled
	// during a rate limit wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// StatusError represents a non-2xx, non-429 response. It is not
// retried by the requester; the status code is preserved for the caller.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Status)
}

// RateLimitError represents a 429 whose Retry-After wait exceeds the
// configured ceiling. It is fatal; the wait was not performed.
type RateLimitError struct {
	// RetryAfter is the raw header value the server sent.
	RetryAfter string

	// Wait is the duration the header asked for.
	Wait time.Duration

	// Limit is the ceiling that was exceeded.
	Limit time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: Retry-After %q asks for %s, above the %s ceiling",
		e.RetryAfter, e.Wait, e.Limit)
}

// ContentTypeError reports a response whose representation does not
// match what the caller requested.
type ContentTypeError struct {
	Requested string
	Actual    string
}

// Error implements the error interface.
func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("requested representation %q but server returned %q",
		e.Requested, e.Actual)
}
