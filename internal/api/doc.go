// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package api serves the daemon's preview HTTP surface with the chi router.

The preview API exposes the state the loader, search service, collections and
session manager maintain, so a browser or a CLI can render the home page
without running the orchestration itself.

Endpoints:

	GET    /api/v1/health                            health, page phase, breaker state
	GET    /api/v1/rows                              every row in priority order
	GET    /api/v1/rows/{id}                         one row
	POST   /api/v1/rows/{id}/retry                   reload one row from the network
	GET    /api/v1/search?q=...&remember=true        search-as-you-type
	GET    /api/v1/search/recent?prefix=...&limit=N  recent queries (or completions)
	POST   /api/v1/search/recent                     remember a submitted query
	DELETE /api/v1/search/recent                     forget every recent query
	GET    /api/v1/collections/{kind}                favorites or watchlist ids
	POST   /api/v1/collections/{kind}/{id}/toggle    optimistic add/remove
	GET    /api/v1/session                           current user
	POST   /api/v1/session/login                     store token and user
	POST   /api/v1/session/logout                    clear the session
	GET    /ws                                       live updates (internal/websocket)
	GET    /metrics                                  Prometheus metrics

Every JSON response uses the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

Middleware, outermost first: request id, recoverer, instrumentation
(internal/middleware), security headers, CORS (go-chi/cors) and per-route
rate limits (go-chi/httprate).
*/
package api
