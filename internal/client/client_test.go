// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/models"
)

// newTestClient returns a client without pacing, retries or breaker unless mutate enables them.
func newTestClient(t *testing.T, baseURL string, mutate func(*config.APIConfig), opts ...Option) *Client {
	t.Helper()
	cfg := &config.APIConfig{
		BaseURL:        baseURL,
		DefaultTimeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, opts...)
}

func checkKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func itemIDs(items []models.ContentItem) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = int64(it.ID)
	}
	return ids
}

func equalIDs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFetch_ResponseShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []int64
	}{
		{"bare array", `[{"id":1,"title":"A"},{"id":2,"title":"B"}]`, []int64{1, 2}},
		{"recommendations", `{"recommendations":[{"id":3}]}`, []int64{3}},
		{"results", `{"success":true,"results":[{"id":"4"},{"id":5}]}`, []int64{4, 5}},
		{"categories in document order", `{"categories":{"zeta":[{"id":9}],"alpha":[{"id":7},{"id":8}]}}`, []int64{9, 7, 8}},
		{"data priority then all", `{"success":true,"data":{"priority_content":[{"id":1}],"all_content":[{"id":2},{"id":1}]}}`, []int64{1, 2, 1}},
		{"recommendations before results", `{"results":[{"id":2}],"recommendations":[{"id":1}]}`, []int64{1}},
		{"unknown object", `{"items":[{"id":1}]}`, []int64{}},
		{"invalid json", `{not json`, []int64{}},
		{"empty body", ``, []int64{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, nil)
			items, err := c.Fetch(context.Background(), "/recommendations/trending", nil, 0)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := itemIDs(items); !equalIDs(got, tt.want...) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetch_RequestShape(t *testing.T) {
	t.Parallel()

	var (
		mu                        sync.Mutex
		gotPath, gotQuery, gotAuth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	var token atomic.Value
	token.Store("abc.def.ghi")
	c := newTestClient(t, srv.URL+"/api/", nil, WithTokenSource(TokenFunc(func() string { return token.Load().(string) })))

	_, err := c.Fetch(context.Background(), "/recommendations/new", map[string]string{"limit": "20", "language": "telugu hindi"}, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	mu.Lock()
	if gotPath != "/api/recommendations/new" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "language=telugu+hindi&limit=20" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer abc.def.ghi" {
		t.Errorf("authorization = %q", gotAuth)
	}

	mu.Unlock()

	token.Store("")
	if _, err := c.Fetch(context.Background(), "/x", nil, 0); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	mu.Lock()
	if gotAuth != "" {
		t.Errorf("expected no Authorization header when signed out, got %q", gotAuth)
	}
	mu.Unlock()
}

func TestFetch_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, ErrAuthExpired},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServiceUnavailable},
		{http.StatusBadGateway, ErrServiceUnavailable},
		{http.StatusTeapot, ErrAPI},
		{http.StatusBadRequest, ErrAPI},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"nope"}`)
			}))
			defer srv.Close()

			var hookCalls atomic.Int32
			c := newTestClient(t, srv.URL, nil, WithAuthExpiredHook(func() { hookCalls.Add(1) }))
			_, err := c.Fetch(context.Background(), "/x", nil, 0)
			checkKind(t, err, tt.kind)

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != "nope" {
				t.Errorf("message = %q", apiErr.Message)
			}

			wantHook := int32(0)
			if tt.status == http.StatusUnauthorized {
				wantHook = 1
			}
			if hookCalls.Load() != wantHook {
				t.Errorf("auth hook calls = %d, want %d", hookCalls.Load(), wantHook)
			}
			if apiErr.Retryable() == (tt.status == http.StatusUnauthorized) {
				t.Errorf("Retryable() = %v for status %d", apiErr.Retryable(), tt.status)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	start := time.Now()
	_, err := c.Fetch(context.Background(), "/slow", nil, 50*time.Millisecond)
	checkKind(t, err, ErrTimeout)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestFetch_EndpointTimeoutOverride(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) {
		cfg.EndpointTimeouts = map[string]time.Duration{"/slow": 40 * time.Millisecond}
	})
	_, err := c.Fetch(context.Background(), "/slow", nil, 0)
	checkKind(t, err, ErrTimeout)
}

func TestFetch_Canceled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := c.Fetch(ctx, "/hang", nil, 0)
	checkKind(t, err, ErrCanceled)
}

func TestFetch_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, nil)
	_, err := c.Fetch(context.Background(), "/x", nil, 0)
	checkKind(t, err, ErrNetwork)
}

func TestFetch_RetriesRateLimited(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) {
		cfg.RetryAttempts = 2
		cfg.RetryMaxDelay = 20 * time.Millisecond
	})
	items, err := c.Fetch(context.Background(), "/x", nil, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || calls.Load() != 2 {
		t.Errorf("items = %d, calls = %d", len(items), calls.Load())
	}
}

func TestFetch_RetryGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) {
		cfg.RetryAttempts = 2
		cfg.RetryMaxDelay = 5 * time.Millisecond
	})
	_, err := c.Fetch(context.Background(), "/x", nil, 0)
	checkKind(t, err, ErrRateLimited)
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) { cfg.RetryAttempts = 3 })
	_, err := c.Fetch(context.Background(), "/x", nil, 0)
	checkKind(t, err, ErrNotFound)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetch_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) {
		cfg.Breaker = config.BreakerConfig{Enabled: true, MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2}
	})

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), "/x", nil, 0)
		checkKind(t, err, ErrServiceUnavailable)
	}
	if c.BreakerState() != "open" {
		t.Fatalf("breaker state = %s, want open", c.BreakerState())
	}

	_, err := c.Fetch(context.Background(), "/x", nil, 0)
	checkKind(t, err, ErrServiceUnavailable)
	if calls.Load() != 2 {
		t.Errorf("open breaker should not reach the server, calls = %d", calls.Load())
	}
}

func TestFetch_BreakerIgnoresClientErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.APIConfig) {
		cfg.Breaker = config.BreakerConfig{Enabled: true, MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1}
	})
	for i := 0; i < 3; i++ {
		_, _ = c.Fetch(context.Background(), "/missing", nil, 0)
	}
	if c.BreakerState() != "closed" {
		t.Errorf("breaker state = %s, want closed", c.BreakerState())
	}
}

func TestMutations(t *testing.T) {
	t.Parallel()

	type seen struct {
		method string
		path   string
		body   map[string]interface{}
	}
	var (
		mu   sync.Mutex
		last seen
	)
	lastSeen := func() seen {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := seen{method: r.Method, path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&cur.body)
		mu.Lock()
		last = cur
		mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/user/favorites":
			_, _ = io.WriteString(w, `{"success":true,"actual_content_id":"77","message":"added"}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/interactions":
			_, _ = io.WriteString(w, `{"success":false,"message":"duplicate interaction"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	res, err := c.AddToCollection(ctx, models.CollectionFavorites, 42)
	if err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	if res.ActualContentID == nil || *res.ActualContentID != 77 {
		t.Errorf("actual_content_id = %v", res.ActualContentID)
	}
	if got := lastSeen(); got.method != http.MethodPost || got.body["content_id"] != float64(42) {
		t.Errorf("request = %+v", got)
	}

	res, err = c.RemoveFromCollection(ctx, models.CollectionWatchlist, 42)
	if err != nil {
		t.Fatalf("RemoveFromCollection: %v", err)
	}
	if got := lastSeen(); !res.Success || got.path != "/user/watchlist/42" {
		t.Errorf("remove result = %+v, path = %q", res, got.path)
	}

	res, err = c.RecordInteraction(ctx, 42, models.InteractionView)
	checkKind(t, err, ErrAPI)
	if res == nil || res.Success || !strings.Contains(err.Error(), "duplicate interaction") {
		t.Errorf("interaction result = %+v, err = %v", res, err)
	}
	if got := lastSeen(); got.body["interaction_type"] != "view" {
		t.Errorf("interaction body = %v", got.body)
	}

	if _, err := c.AddToCollection(ctx, models.CollectionKind("history"), 1); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"Thu, 01 Jan 2026 12:00:10 GMT", 10 * time.Second},
		{"Thu, 01 Jan 2026 11:00:00 GMT", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://api.cinebrain.test/api/", nil)
	tests := []struct {
		endpoint string
		params   map[string]string
		want     string
	}{
		{"/trending", nil, "https://api.cinebrain.test/api/trending"},
		{"trending", map[string]string{"page": "2"}, "https://api.cinebrain.test/api/trending?page=2"},
		{"/search?type=movie", map[string]string{"q": "rrr"}, "https://api.cinebrain.test/api/search?q=rrr&type=movie"},
		{"https://other.test/list", nil, "https://other.test/list"},
	}
	for _, tt := range tests {
		got, err := c.buildURL(tt.endpoint, tt.params)
		if err != nil {
			t.Fatalf("buildURL(%q): %v", tt.endpoint, err)
		}
		if got != tt.want {
			t.Errorf("buildURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestOutcomeAndUserMessage(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: ErrTimeout, Method: "GET", Endpoint: "/x"}
	if Outcome(err) != "timeout" {
		t.Errorf("Outcome = %q", Outcome(err))
	}
	if Outcome(nil) != "ok" {
		t.Errorf("Outcome(nil) = %q", Outcome(nil))
	}
	if !strings.Contains(UserMessage(err), "too long") {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
	if !IsRetryable(err) || IsRetryable(&Error{Kind: ErrAuthExpired}) {
		t.Error("unexpected retryability")
	}
}
