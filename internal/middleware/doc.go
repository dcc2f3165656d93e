// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package middleware provides the infrastructure middleware of the preview API.

Key Components:

  - RequestID: UUID request ids propagated to the logging context
  - Instrument: Prometheus request metrics, access logging and slow request
    warnings, labelled by chi route pattern

Both are chi-compatible (func(http.Handler) http.Handler) and are installed
by internal/api:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Instrument(time.Second))

Metrics are labelled with the matched route pattern ("/api/v1/rows/{id}/retry")
rather than the raw path, so ids in the URL never blow up label cardinality.
Unmatched requests are labelled "unmatched".

The response writer is wrapped with chi's WrapResponseWriter, which keeps
http.Hijacker working for the /ws upgrade.
*/
package middleware
