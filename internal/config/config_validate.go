// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/validation"
)

// Freshness windows outside this range are rejected.
const (
	minFreshnessWindow = 30 * time.Second
	maxFreshnessWindow = 5 * time.Minute
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateRows(); err != nil {
		return err
	}
	if err := c.validateCollections(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if err := validateHTTPURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("API_BASE_URL is invalid: %w", err)
	}
	if c.API.PosterBase != "" {
		if err := validateHTTPURL(c.API.PosterBase); err != nil {
			return fmt.Errorf("POSTER_BASE_URL is invalid: %w", err)
		}
	}
	if c.API.DefaultTimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %v", c.API.DefaultTimeout)
	}
	for ep, d := range c.API.EndpointTimeouts {
		if d <= 0 {
			return fmt.Errorf("endpoint timeout for %q must be positive, got %v", ep, d)
		}
	}
	if c.API.RetryAttempts < 0 || c.API.RetryAttempts > 10 {
		return fmt.Errorf("API_RETRY_ATTEMPTS must be between 0 and 10, got %d", c.API.RetryAttempts)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.RateLimitBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if c.API.Breaker.Enabled && c.API.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_LIMIT must be at least 1 when the breaker is enabled")
	}
	return nil
}

func (c *Config) validateCache() error {
	if err := validateFreshness("CACHE_FRESHNESS", c.Cache.FreshnessWindow); err != nil {
		return err
	}
	if c.Cache.Redis.Enabled {
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED=true")
		}
		if c.Cache.Redis.Prefix == "" {
			return fmt.Errorf("REDIS_PREFIX must not be empty")
		}
	}
	return nil
}

func validateFreshness(name string, d time.Duration) error {
	if d < minFreshnessWindow || d > maxFreshnessWindow {
		return fmt.Errorf("%s must be between %v and %v, got %v", name, minFreshnessWindow, maxFreshnessWindow, d)
	}
	return nil
}

func (c *Config) validateLoader() error {
	if c.Loader.HighPriorityCutoff < 0 {
		return fmt.Errorf("LOADER_HIGH_PRIORITY_CUTOFF must not be negative")
	}
	if c.Loader.StaggerDelay < 0 || c.Loader.StaggerDelay > time.Second {
		return fmt.Errorf("LOADER_STAGGER_DELAY must be between 0 and 1s, got %v", c.Loader.StaggerDelay)
	}
	if c.Loader.LowPriorityDelay < 0 || c.Loader.LowPriorityDelay > 10*time.Second {
		return fmt.Errorf("LOADER_LOW_PRIORITY_DELAY must be between 0 and 10s, got %v", c.Loader.LowPriorityDelay)
	}
	if c.Loader.RefreshInterval != 0 && c.Loader.RefreshInterval < 30*time.Second {
		return fmt.Errorf("LOADER_REFRESH_INTERVAL must be 0 or at least 30s, got %v", c.Loader.RefreshInterval)
	}
	return nil
}

func (c *Config) validateRows() error {
	seen := make(map[string]struct{}, len(c.Rows))
	for i := range c.Rows {
		row := &c.Rows[i]
		if err := validation.ValidateStruct(row); err != nil {
			return fmt.Errorf("rows[%d] (%s): %w", i, row.ID, err)
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("rows[%d]: duplicate row id %q", i, row.ID)
		}
		seen[row.ID] = struct{}{}
		if row.Freshness != 0 {
			if err := validateFreshness("rows["+row.ID+"].freshness", row.Freshness); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) validateCollections() error {
	for name, ep := range map[string]string{
		"FAVORITES_ENDPOINT":   c.Collections.FavoritesEndpoint,
		"WATCHLIST_ENDPOINT":   c.Collections.WatchlistEndpoint,
		"INTERACTION_ENDPOINT": c.Collections.InteractionEndpoint,
	} {
		if ep == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !strings.HasPrefix(ep, "/") {
			return fmt.Errorf("%s must start with /, got %q", name, ep)
		}
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Endpoint == "" {
		return fmt.Errorf("SEARCH_ENDPOINT is required")
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("SEARCH_MIN_LENGTH must be at least 1")
	}
	if c.Search.Limit < 1 || c.Search.Limit > 100 {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and 100, got %d", c.Search.Limit)
	}
	if c.Search.MaxRecent < 0 || c.Search.MaxRecent > 100 {
		return fmt.Errorf("SEARCH_MAX_RECENT must be between 0 and 100, got %d", c.Search.MaxRecent)
	}
	return nil
}

func (c *Config) validateSession() error {
	if !c.Session.InMemory && c.Session.StorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required unless SESSION_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
