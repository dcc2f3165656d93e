// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinebrain/config.yaml",
	"/etc/cinebrain/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			PosterBase:     "https://image.tmdb.org/t/p/w500",
			UserAgent:      "cinebrain-client/1.0",
			DefaultTimeout: 10 * time.Second,
			RetryAttempts:  2,
			RetryMaxDelay:  5 * time.Second,
			RateLimit:      20,
			RateLimitBurst: 10,
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Cache: CacheConfig{
			FreshnessWindow: 2 * time.Minute,
			Redis: RedisConfig{
				Enabled: false,
				Addr:    "localhost:6379",
				DB:      0,
				Prefix:  "cinebrain:cache:",
				TTL:     30 * time.Minute,
			},
		},
		Loader: LoaderConfig{
			HighPriorityCutoff: 2,
			StaggerDelay:       50 * time.Millisecond,
			LowPriorityDelay:   300 * time.Millisecond,
			RefreshInterval:       5 * time.Minute,
			SuspendWithoutViewers: true,
		},
		Sorting: SortingConfig{
			LanguagePriority: append([]string(nil), DefaultLanguagePriority...),
		},
		Collections: CollectionsConfig{
			FavoritesEndpoint:     "/user/favorites",
			WatchlistEndpoint:     "/user/watchlist",
			InteractionEndpoint:   "/interactions",
			TreatMissingAsRemoved: true,
		},
		Search: SearchConfig{
			Endpoint:       "/search",
			MinQueryLength: 2,
			Limit:          20,
			MaxRecent:      10,
			Timeout:        8 * time.Second,
		},
		Session: SessionConfig{
			StorePath: "/data/cinebrain/session",
			InMemory:  false,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            8787,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path ("" skips the file layer).
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if len(cfg.Rows) == 0 {
		cfg.Rows = defaultRows()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma separated strings.
var sliceConfigPaths = []string{
	"sorting.language_priority",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Backend API
	"api_base_url":          "api.base_url",
	"poster_base_url":       "api.poster_base",
	"api_user_agent":        "api.user_agent",
	"api_timeout":           "api.default_timeout",
	"api_retry_attempts":    "api.retry_attempts",
	"api_retry_max_delay":   "api.retry_max_delay",
	"api_rate_limit":        "api.rate_limit",
	"api_rate_limit_burst":  "api.rate_limit_burst",
	"breaker_enabled":       "api.breaker.enabled",
	"breaker_max_requests":  "api.breaker.max_requests",
	"breaker_interval":      "api.breaker.interval",
	"breaker_timeout":       "api.breaker.timeout",
	"breaker_failure_limit": "api.breaker.failure_threshold",

	// Cache
	"cache_freshness": "cache.freshness_window",
	"redis_enabled":   "cache.redis.enabled",
	"redis_addr":      "cache.redis.addr",
	"redis_password":  "cache.redis.password",
	"redis_db":        "cache.redis.db",
	"redis_prefix":    "cache.redis.prefix",
	"redis_ttl":       "cache.redis.ttl",

	// Loader
	"loader_high_priority_cutoff":    "loader.high_priority_cutoff",
	"loader_stagger_delay":           "loader.stagger_delay",
	"loader_low_priority_delay":      "loader.low_priority_delay",
	"loader_refresh_interval":        "loader.refresh_interval",
	"loader_suspend_without_viewers": "loader.suspend_without_viewers",

	// Sorting
	"language_priority": "sorting.language_priority",

	// Collections
	"favorites_endpoint":       "collections.favorites_endpoint",
	"watchlist_endpoint":       "collections.watchlist_endpoint",
	"interaction_endpoint":     "collections.interaction_endpoint",
	"treat_missing_as_removed": "collections.treat_missing_as_removed",

	// Search
	"search_endpoint":   "search.endpoint",
	"search_min_length": "search.min_query_length",
	"search_limit":      "search.limit",
	"search_max_recent": "search.max_recent",
	"search_timeout":    "search.timeout",

	// Session
	"session_store_path": "session.store_path",
	"session_in_memory":  "session.in_memory",

	// Server
	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc returns "" for unmapped variables so that they are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
