// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package client talks to the CineBrain recommendation REST API.

Fetch issues a timed, cancellable GET and normalizes whatever response shape
the endpoint returns into a flat []models.ContentItem:

	items, err := c.Fetch(ctx, "/recommendations/trending", map[string]string{"limit": "20"}, 0)
	switch {
	case errors.Is(err, client.ErrAuthExpired):
	    // credentials were cleared by the auth-expired hook
	case errors.Is(err, client.ErrTimeout):
	    // show retry affordance
	}

Response shapes, tried in this order:

  - bare array: [ {...}, ... ]
  - {"recommendations": [...]}
  - {"results": [...]}
  - {"categories": {"name": [...], ...}} flattened in document order
  - {"data": {"priority_content": [...], "all_content": [...]}} priority first
  - anything else: empty list, counted as malformed

Resilience:

  - golang.org/x/time/rate paces requests client-wide
  - sony/gobreaker/v2 opens after repeated 5xx, network errors or timeouts
  - avast/retry-go/v4 retries 429 responses, honoring Retry-After

Errors are *Error values whose Kind is one of the Err* sentinels, so
errors.Is works against both the kind and the underlying cause.
*/
package client
