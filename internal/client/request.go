// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
)

// requestConfig holds one backend request.
type requestConfig struct {
	method   string
	endpoint string
	query    map[string]string
	body     interface{}
	timeout  time.Duration
}

// do executes rc with the per-request deadline, pacing, circuit breaker
// (GET only) and 429 retries, and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, rc requestConfig) ([]byte, error) {
	timeout := rc.timeout
	if timeout <= 0 {
		timeout = c.api.TimeoutFor(rc.endpoint)
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	attempt := func() ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(reqCtx); err != nil {
				return nil, c.contextError(ctx, rc, err)
			}
		}
		return c.roundTrip(ctx, reqCtx, rc)
	}
	call := attempt
	if c.breaker != nil && rc.method == http.MethodGet {
		call = func() ([]byte, error) {
			return c.breaker.execute(rc.method, rc.endpoint, attempt)
		}
	}

	body, err := c.withRetry(reqCtx, rc, call)
	if err != nil {
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			err = c.contextError(ctx, rc, err)
		}
	}

	metrics.RecordFetch(rc.endpoint, rc.method, Outcome(err), time.Since(start))
	if err != nil && !errors.Is(err, ErrCanceled) {
		logging.Ctx(ctx).Debug().Err(err).Str("endpoint", rc.endpoint).Str("method", rc.method).Dur("elapsed", time.Since(start)).Msg("Backend request failed")
	}
	return body, err
}

// withRetry retries rate limited calls, waiting for Retry-After when given.
func (c *Client) withRetry(ctx context.Context, rc requestConfig, call func() ([]byte, error)) ([]byte, error) {
	if c.api.RetryAttempts <= 0 {
		return call()
	}
	maxDelay := c.api.RetryMaxDelay
	return retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(uint(c.api.RetryAttempts)+1),
		retry.LastErrorOnly(true),
		retry.Delay(250*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrRateLimited)
		}),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			d := retry.BackOffDelay(n, err, cfg)
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				d = apiErr.RetryAfter
			}
			if maxDelay > 0 && d > maxDelay {
				d = maxDelay
			}
			return d
		}),
		retry.OnRetry(func(n uint, err error) {
			metrics.FetchRetries.WithLabelValues(rc.endpoint).Inc()
			logging.Warn().Str("endpoint", rc.endpoint).Uint("attempt", n+1).Err(err).Msg("Backend rate limited (HTTP 429), retrying")
		}),
	)
}

// contextError maps a context-related failure to Canceled (caller gave up)
// or Timeout (our deadline fired).
func (c *Client) contextError(parent context.Context, rc requestConfig, err error) error {
	if parent.Err() != nil {
		return &Error{Kind: ErrCanceled, Method: rc.method, Endpoint: rc.endpoint, Err: parent.Err()}
	}
	return &Error{Kind: ErrTimeout, Method: rc.method, Endpoint: rc.endpoint, Err: err}
}

func (c *Client) roundTrip(parent, reqCtx context.Context, rc requestConfig) ([]byte, error) {
	reqURL, err := c.buildURL(rc.endpoint, rc.query)
	if err != nil {
		return nil, &Error{Kind: ErrAPI, Method: rc.method, Endpoint: rc.endpoint, Message: "invalid url", Err: err}
	}

	var body io.Reader = http.NoBody
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, &Error{Kind: ErrAPI, Method: rc.method, Endpoint: rc.endpoint, Message: "encode body", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, rc.method, reqURL, body)
	if err != nil {
		return nil, &Error{Kind: ErrAPI, Method: rc.method, Endpoint: rc.endpoint, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.api.UserAgent != "" {
		req.Header.Set("User-Agent", c.api.UserAgent)
	}
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logging.CorrelationIDFromContext(parent); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, c.contextError(parent, rc, err)
		}
		return nil, &Error{Kind: ErrNetwork, Method: rc.method, Endpoint: rc.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, c.contextError(parent, rc, err)
		}
		return nil, &Error{Kind: ErrNetwork, Method: rc.method, Endpoint: rc.endpoint, Message: "read body", Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, c.statusError(rc, resp, data)
}

// statusError maps a non-2xx response onto the error taxonomy. A 401 also
// fires the auth-expired hook.
func (c *Client) statusError(rc requestConfig, resp *http.Response, body []byte) *Error {
	e := &Error{
		Method:     rc.method,
		Endpoint:   rc.endpoint,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = ErrAuthExpired
		c.authExpired()
	case resp.StatusCode == http.StatusNotFound:
		e.Kind = ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case resp.StatusCode >= 500:
		e.Kind = ErrServiceUnavailable
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	default:
		e.Kind = ErrAPI
	}
	return e
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return truncate(payload.Message, 200)
	}
	var s string
	if len(payload.Error) > 0 && json.Unmarshal(payload.Error, &s) == nil {
		return truncate(s, 200)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// decodeJSON is used for mutation bodies; an empty body decodes to the zero value.
func decodeJSON(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
