// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package config loads CineBrain configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, ./config.yaml, ./config.yml, /etc/cinebrain/config.yaml
 3. Environment variables, through an explicit mapping table

Only mapped environment variables are read; unrelated variables are ignored.

Example config.yaml:

	api:
	  base_url: https://cinebrain.example.com/api
	  poster_base: https://image.tmdb.org/t/p/w500
	  default_timeout: 10s
	  endpoint_timeouts:
	    /recommendations/personalized: 15s
	cache:
	  freshness_window: 2m
	loader:
	  high_priority_cutoff: 2
	  stagger_delay: 50ms
	rows:
	  - id: trending
	    title: Trending Now
	    endpoint: /recommendations/trending
	    priority: 1
	    cached: true

Common environment variables:

	API_BASE_URL          api.base_url
	API_TIMEOUT           api.default_timeout
	CACHE_FRESHNESS       cache.freshness_window
	REDIS_ENABLED         cache.redis.enabled
	REDIS_ADDR            cache.redis.addr
	LANGUAGE_PRIORITY     sorting.language_priority (comma separated)
	SESSION_STORE_PATH    session.store_path
	HTTP_PORT             server.port
	LOG_LEVEL             logging.level
*/
package config
