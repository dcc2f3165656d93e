// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Endpoints are the mutation endpoints of the backend.
type Endpoints struct {
	Favorites    string
	Watchlist    string
	Interactions string
}

// EndpointsFromConfig builds Endpoints from the collections section.
func EndpointsFromConfig(cfg *config.CollectionsConfig) Endpoints {
	return Endpoints{
		Favorites:    cfg.FavoritesEndpoint,
		Watchlist:    cfg.WatchlistEndpoint,
		Interactions: cfg.InteractionEndpoint,
	}
}

// Client is the backend API client. It is safe for concurrent use.
type Client struct {
	api        config.APIConfig
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker
	endpoints  Endpoints

	mu            sync.RWMutex
	tokens        TokenSource
	onAuthExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithAuthExpiredHook sets the function called on every 401 response.
func WithAuthExpiredHook(fn func()) Option {
	return func(c *Client) { c.onAuthExpired = fn }
}

// WithEndpoints sets the mutation endpoints.
func WithEndpoints(ep Endpoints) Option {
	return func(c *Client) { c.endpoints = ep }
}

// New creates a client for the API described by cfg.
func New(cfg *config.APIConfig, opts ...Option) *Client {
	c := &Client{
		api:     *cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Per-request deadlines come from the context; this is a backstop.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoints: Endpoints{
			Favorites:    "/user/favorites",
			Watchlist:    "/user/watchlist",
			Interactions: "/interactions",
		},
	}
	if c.api.DefaultTimeout <= 0 {
		c.api.DefaultTimeout = 10 * time.Second
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker("cinebrain-api", cfg.Breaker)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource replaces the token source after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetAuthExpiredHook replaces the 401 hook after construction.
func (c *Client) SetAuthExpiredHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthExpired = fn
}

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

// Authenticated reports whether requests currently carry a bearer token.
func (c *Client) Authenticated() bool {
	return c.token() != ""
}

func (c *Client) authExpired() {
	c.mu.RLock()
	hook := c.onAuthExpired
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

// TimeoutFor returns the configured timeout for endpoint.
func (c *Client) TimeoutFor(endpoint string) time.Duration {
	return c.api.TimeoutFor(endpoint)
}

// BreakerState returns "closed", "half-open", "open", or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State()
}

// PosterBase returns the configured image base URL.
func (c *Client) PosterBase() string {
	return c.api.PosterBase
}

// Fetch GETs endpoint with params and normalizes the body into content items.
// A timeout of zero uses the configured timeout for the endpoint. An
// unrecognized body is not an error: it yields an empty list.
func (c *Client) Fetch(ctx context.Context, endpoint string, params map[string]string, timeout time.Duration) ([]models.ContentItem, error) {
	body, err := c.do(ctx, requestConfig{
		method:   http.MethodGet,
		endpoint: endpoint,
		query:    params,
		timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}

	n := Normalize(body)
	metrics.ResponseShapes.WithLabelValues(endpoint, string(n.Shape)).Inc()
	if n.Shape == ShapeUnknown {
		metrics.MalformedResponses.WithLabelValues(endpoint).Inc()
		logging.Ctx(ctx).Warn().Str("endpoint", endpoint).Int("bytes", len(body)).Msg("Unrecognized response shape, using empty list")
	} else if n.Skipped > 0 {
		logging.Ctx(ctx).Debug().Str("endpoint", endpoint).Int("skipped", n.Skipped).Msg("Skipped undecodable items")
	}
	return n.Items, nil
}

// buildURL joins the base URL, endpoint and query parameters. Absolute
// endpoints are used as is.
func (c *Client) buildURL(endpoint string, params map[string]string) (string, error) {
	raw := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}
		raw = c.baseURL + endpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
