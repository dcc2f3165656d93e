// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package config

import (
	"strings"
	"time"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
)

// Config is the complete CineBrain configuration.
type Config struct {
	API         APIConfig          `koanf:"api"`
	Cache       CacheConfig        `koanf:"cache"`
	Loader      LoaderConfig       `koanf:"loader"`
	Sorting     SortingConfig      `koanf:"sorting"`
	Collections CollectionsConfig  `koanf:"collections"`
	Search      SearchConfig       `koanf:"search"`
	Session     SessionConfig      `koanf:"session"`
	Server      ServerConfig       `koanf:"server"`
	Logging     LoggingConfig      `koanf:"logging"`
	Rows        []models.RowConfig `koanf:"rows"`
}

// APIConfig configures the backend REST client.
type APIConfig struct {
	BaseURL    string `koanf:"base_url"`
	PosterBase string `koanf:"poster_base"`
	UserAgent  string `koanf:"user_agent"`

	// DefaultTimeout applies to every request without an endpoint override.
	DefaultTimeout   time.Duration            `koanf:"default_timeout"`
	EndpointTimeouts map[string]time.Duration `koanf:"endpoint_timeouts"`

	// RetryAttempts bounds retries of rate limited (429) responses. 0 disables retries.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryMaxDelay time.Duration `koanf:"retry_max_delay"`

	// RateLimit paces outgoing requests client-wide. 0 disables pacing.
	RateLimit      float64 `koanf:"rate_limit"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// TimeoutFor returns the timeout for endpoint, falling back to DefaultTimeout.
func (c *APIConfig) TimeoutFor(endpoint string) time.Duration {
	if d, ok := c.EndpointTimeouts[endpoint]; ok && d > 0 {
		return d
	}
	// Overrides may be keyed without the leading slash.
	if d, ok := c.EndpointTimeouts[strings.TrimPrefix(endpoint, "/")]; ok && d > 0 {
		return d
	}
	return c.DefaultTimeout
}

// BreakerConfig configures the gobreaker circuit breaker around GETs.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	FreshnessWindow time.Duration `koanf:"freshness_window"`
	Redis           RedisConfig   `koanf:"redis"`
}

// RedisConfig configures the optional shared second-level cache.
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
}

// LoaderConfig configures the staggered row loader.
type LoaderConfig struct {
	// Rows with priority <= HighPriorityCutoff load in the first, awaited tier.
	HighPriorityCutoff int           `koanf:"high_priority_cutoff"`
	StaggerDelay       time.Duration `koanf:"stagger_delay"`
	LowPriorityDelay   time.Duration `koanf:"low_priority_delay"`

	// RefreshInterval re-runs the page load in the daemon. 0 disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// SuspendWithoutViewers suspends the loader when the last WebSocket
	// viewer disconnects and resumes it on the next connect.
	SuspendWithoutViewers bool `koanf:"suspend_without_viewers"`
}

// SortingConfig configures the priority sorter.
type SortingConfig struct {
	LanguagePriority []string `koanf:"language_priority"`
}

// CollectionsConfig configures favorites and watchlist.
type CollectionsConfig struct {
	FavoritesEndpoint   string `koanf:"favorites_endpoint"`
	WatchlistEndpoint   string `koanf:"watchlist_endpoint"`
	InteractionEndpoint string `koanf:"interaction_endpoint"`

	// TreatMissingAsRemoved makes a 404 on removal count as success.
	TreatMissingAsRemoved bool `koanf:"treat_missing_as_removed"`
}

// SearchConfig configures search-as-you-type.
type SearchConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	MinQueryLength int           `koanf:"min_query_length"`
	Limit          int           `koanf:"limit"`
	MaxRecent      int           `koanf:"max_recent"`
	Timeout        time.Duration `koanf:"timeout"`
}

// SessionConfig configures the persistent session store.
type SessionConfig struct {
	StorePath string `koanf:"store_path"`
	InMemory  bool   `koanf:"in_memory"`
}

// ServerConfig configures the daemon's preview HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ToLogging converts to the logging package configuration.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// DefaultLanguagePriority is the default ordering used by the new releases sort.
var DefaultLanguagePriority = []string{
	"telugu", "hindi", "tamil", "malayalam", "kannada", "english", "japanese", "korean",
}

// defaultRows is the home page layout used when no rows are configured.
func defaultRows() []models.RowConfig {
	return []models.RowConfig{
		{ID: "trending", Title: "Trending Now", Endpoint: "/recommendations/trending", Priority: 1, Cached: true,
			Params: map[string]string{"limit": "20"}},
		{ID: "new_releases", Title: "New Releases", Endpoint: "/recommendations/new-releases", Priority: 1, Cached: true,
			Sort: models.RowSortNewReleases, Params: map[string]string{"limit": "20"}},
		{ID: "critics_choice", Title: "Critics' Choice", Endpoint: "/recommendations/critics-choice", Priority: 2, Cached: true},
		{ID: "upcoming", Title: "Coming This Month", Endpoint: "/recommendations/upcoming", Priority: 3, Cached: true,
			Sort: models.RowSortUpcoming},
		{ID: "anime", Title: "Anime", Endpoint: "/recommendations/anime", Priority: 4, Cached: true},
		{ID: "regional", Title: "Regional Picks", Endpoint: "/recommendations/regional", Priority: 4,
			Params: map[string]string{"language": "telugu"}},
		{ID: "personalized", Title: "For You", Endpoint: "/recommendations/personalized", Priority: 5,
			Timeout: 15 * time.Second},
	}
}
