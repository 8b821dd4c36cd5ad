package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when every attempt of a request failed at
	// the transport level.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while the
	// request is parked at the rate limiter or the concurrency gate.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidRequest is returned when a request cannot be dispatched.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorClass represents a classification of failed attempts.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus categorizes a received status code. Returns "" for
// non-error statuses.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// ExhaustedRetriesError is returned when a request never received a response
// after all attempts. It wraps the last transport error.
type ExhaustedRetriesError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Method, e.URL, e.Attempts, e.Err)
}

// Unwrap returns the last transport error.
func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// Is reports ErrRetryExhausted as a match so callers can test with errors.Is.
func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == ErrRetryExhausted
}
