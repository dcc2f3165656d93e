// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/favorites"
	"github.com/tomtom215/cinebrain/internal/inflight"
	"github.com/tomtom215/cinebrain/internal/loader"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
	"github.com/tomtom215/cinebrain/internal/session"
	"github.com/tomtom215/cinebrain/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeUpstream     = "UPSTREAM_ERROR"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// maxBodyBytes bounds request bodies; every accepted body is tiny.
const maxBodyBytes = 64 * 1024

// sanitizeLogValue removes control characters from strings to prevent log
// injection through user supplied values.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response with status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData writes a success envelope. start is the time the handler
// began, used for query_time_ms.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time, meta models.Metadata) {
	meta.Timestamp = time.Now().UTC()
	meta.QueryTimeMS = time.Since(start).Milliseconds()
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	if requestID := logging.RequestIDFromContext(r.Context()); requestID != "" {
		if details == nil {
			details = map[string]interface{}{}
		}
		details["request_id"] = requestID
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondErr maps err to a status and error code and writes it. Messages
// come from client.UserMessage so backend details never leak.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)

	event := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.Str("code", code).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Str("error", sanitizeLogValue(err.Error())).
		Msg("API error")

	var details map[string]interface{}
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		details = ve.Details()
	}
	var ce *client.Error
	if errors.As(err, &ce) && ce.Retryable() {
		details = map[string]interface{}{"retryable": true}
		if ce.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(ce.RetryAfter.Seconds())))
		}
	}
	respondError(w, r, status, code, message, details)
}

func classify(err error) (status int, code, message string) {
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrCodeValidation, ve.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrCodeValidation, err.Error()
	case errors.Is(err, favorites.ErrInvalidID):
		return http.StatusBadRequest, ErrCodeValidation, "Invalid content id."
	case errors.Is(err, session.ErrEmptyToken):
		return http.StatusBadRequest, ErrCodeValidation, "token is required"
	case errors.Is(err, loader.ErrUnknownRow), errors.Is(err, errUnknownCollection):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, favorites.ErrToggleInFlight):
		return http.StatusConflict, ErrCodeConflict, "An update for this item is already in progress."
	case errors.Is(err, inflight.ErrSuperseded):
		return http.StatusConflict, ErrCodeConflict, "Superseded by a newer request."
	case errors.Is(err, loader.ErrClosed):
		return http.StatusServiceUnavailable, ErrCodeUnavailable, "Shutting down."
	case errors.Is(err, client.ErrAuthExpired):
		return http.StatusUnauthorized, ErrCodeUnauthorized, client.UserMessage(err)
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeRateLimited, client.UserMessage(err)
	case errors.Is(err, client.ErrTimeout):
		return http.StatusGatewayTimeout, ErrCodeUpstream, client.UserMessage(err)
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, client.UserMessage(err)
	case errors.Is(err, client.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, ErrCodeUpstream, client.UserMessage(err)
	case errors.Is(err, client.ErrNetwork), errors.Is(err, client.ErrAPI), errors.Is(err, client.ErrMalformedResponse):
		return http.StatusBadGateway, ErrCodeUpstream, client.UserMessage(err)
	default:
		return http.StatusInternalServerError, ErrCodeInternal, client.UserMessage(err)
	}
}

// decodeJSON decodes a bounded request body into v and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", errBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", errBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return validation.ValidateStruct(v)
}
