// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/cinebrain/internal/logging"
)

func serveWithRequestID(t *testing.T, header string) (responseID, contextID, correlationID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		correlationID = logging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rows", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Header().Get(RequestIDHeader), contextID, correlationID
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	responseID, contextID, correlationID := serveWithRequestID(t, "")

	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("response X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if contextID != responseID {
		t.Errorf("context id %q != response id %q", contextID, responseID)
	}
	if correlationID == "" {
		t.Error("expected a correlation id in the context")
	}
}

func TestRequestID_PreservesUpstreamID(t *testing.T) {
	responseID, contextID, _ := serveWithRequestID(t, "proxy-id-12345")

	if responseID != "proxy-id-12345" || contextID != "proxy-id-12345" {
		t.Errorf("response=%q context=%q, want proxy-id-12345", responseID, contextID)
	}
}

func TestRequestID_RejectsOversizedUpstreamID(t *testing.T) {
	long := strings.Repeat("a", maxRequestIDLength+1)
	responseID, _, _ := serveWithRequestID(t, long)

	if responseID == long {
		t.Fatal("oversized id should be replaced")
	}
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("replacement %q is not a UUID", responseID)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, _, _ := serveWithRequestID(t, "")
		if ids[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		ids[id] = true
	}
}

func TestGetRequestID_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}

func BenchmarkRequestID(b *testing.B) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
