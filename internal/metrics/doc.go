// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package metrics exposes the Prometheus instrumentation of the CineBrain client.

All collectors are registered with the default registry through promauto and
exported by the daemon at /metrics:

	curl http://localhost:8787/metrics

Fetch:
  - cinebrain_fetch_requests_total{endpoint,method,outcome}
  - cinebrain_fetch_duration_seconds{endpoint,method}
  - cinebrain_fetch_retries_total{endpoint}
  - cinebrain_malformed_responses_total{endpoint}

Cache:
  - cinebrain_cache_hits_total{tier}, cinebrain_cache_misses_total
  - cinebrain_cache_stale_served_total, cinebrain_cache_entries

Loader and collections:
  - cinebrain_row_loads_total{tier,result}
  - cinebrain_page_settle_duration_seconds
  - cinebrain_dedupe_dropped_total{reason}
  - cinebrain_optimistic_rollbacks_total{action}
  - cinebrain_collection_missing_removed_total{kind}

Circuit breaker metrics follow the gobreaker state numbering
(0=closed, 1=half-open, 2=open).
*/
package metrics
