// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Match with errors.Is.
var (
	ErrTimeout            = errors.New("request timed out")
	ErrAuthExpired        = errors.New("authentication expired")
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAPI                = errors.New("api error")
	ErrNetwork            = errors.New("network error")
	ErrCanceled           = errors.New("request canceled")
	ErrMalformedResponse  = errors.New("malformed response")
)

// Error describes a failed backend request.
type Error struct {
	Kind       error
	Method     string
	Endpoint   string
	StatusCode int
	Message    string

	// RetryAfter is parsed from the Retry-After header of 429 and 503 responses.
	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether a user-initiated retry can succeed without
// signing in again.
func (e *Error) Retryable() bool {
	return !errors.Is(e.Kind, ErrAuthExpired)
}

// IsRetryable reports whether err is a retryable request failure. Errors that
// are not *Error are treated as retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return err != nil
}

// Outcome returns the metrics label for err.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "api_error"
	}
}

// UserMessage returns a short message suitable for a row error or notification.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrAuthExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotFound):
		return "Content not found."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please wait a moment."
	case errors.Is(err, ErrServiceUnavailable):
		return "The service is temporarily unavailable."
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your connection."
	case errors.Is(err, ErrCanceled):
		return "Request canceled."
	default:
		return "Something went wrong. Please try again."
	}
}
