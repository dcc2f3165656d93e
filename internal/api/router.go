// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinebrain/internal/favorites"
	"github.com/tomtom215/cinebrain/internal/middleware"
	"github.com/tomtom215/cinebrain/internal/models"
	"github.com/tomtom215/cinebrain/internal/search"
	"github.com/tomtom215/cinebrain/internal/session"
)

// slowRequestThreshold is the latency above which requests are logged at warn.
const slowRequestThreshold = 2 * time.Second

// RowSource is the loader surface the API reads. *loader.Loader implements it.
type RowSource interface {
	Phase() models.LoaderPhase
	Rows() []models.RowState
	Row(id string) (models.RowState, bool)
	Retry(ctx context.Context, id string) error
}

// Searcher is the search surface. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Result, error)
	Remember(query string) ([]string, error)
	Recent() ([]string, error)
	ClearRecent() error
	Suggest(prefix string, limit int) []string
}

// BreakerReporter reports the backend circuit breaker state. *client.Client
// implements it.
type BreakerReporter interface {
	BreakerState() string
}

// ClientCounter reports connected live-update clients. *websocket.Hub
// implements it.
type ClientCounter interface {
	GetClientCount() int
}

// Deps are the components served by the router. Nil optional fields
// disable their routes.
type Deps struct {
	Rows        RowSource
	Search      Searcher
	Collections *favorites.Manager
	Session     *session.Manager

	// Optional.
	Breaker   BreakerReporter
	WebSocket http.Handler
	Clients   ClientCounter
	Metrics   http.Handler
}

// Router holds the handler dependencies.
type Router struct {
	deps       Deps
	middleware *ChiMiddleware
	startTime  time.Time
}

// NewRouter creates a router. A nil mw uses the default middleware config.
func NewRouter(deps Deps, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	return &Router{
		deps:       deps,
		middleware: mw,
		startTime:  time.Now(),
	}
}

// Handler builds the chi route tree.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Instrument(slowRequestThreshold))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found.", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.", nil)
	})

	r.Handle("/metrics", router.deps.Metrics)

	if router.deps.WebSocket != nil {
		r.With(router.middleware.RateLimitCustom(RateLimitWebSocket)).
			Handle("/ws", router.deps.WebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.middleware.CORS())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/health", router.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.RateLimit())

			if router.deps.Rows != nil {
				r.Get("/rows", router.ListRows)
				r.Get("/rows/{id}", router.GetRow)
				r.With(router.middleware.RateLimitCustom(RateLimitWrite)).
					Post("/rows/{id}/retry", router.RetryRow)
			}

			if router.deps.Collections != nil {
				r.Get("/collections/{kind}", router.GetCollection)
				r.With(router.middleware.RateLimitCustom(RateLimitWrite)).
					Post("/collections/{kind}/{id}/toggle", router.ToggleCollection)
			}

			if router.deps.Session != nil {
				r.Get("/session", router.GetSession)
				r.With(router.middleware.RateLimitCustom(RateLimitLogin)).
					Post("/session/login", router.Login)
				r.Post("/session/logout", router.Logout)
			}
		})

		if router.deps.Search != nil {
			r.Group(func(r chi.Router) {
				r.Use(router.middleware.RateLimitCustom(RateLimitSearch))
				r.Get("/search", router.Search)
				r.Get("/search/recent", router.RecentSearches)
				r.Post("/search/recent", router.RememberSearch)
				r.Delete("/search/recent", router.ClearRecentSearches)
			})
		}
	})

	return r
}
