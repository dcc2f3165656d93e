// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/cinebrain/internal/api"
	"github.com/tomtom215/cinebrain/internal/cache"
	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/favorites"
	"github.com/tomtom215/cinebrain/internal/loader"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
	"github.com/tomtom215/cinebrain/internal/notify"
	"github.com/tomtom215/cinebrain/internal/search"
	"github.com/tomtom215/cinebrain/internal/session"
	"github.com/tomtom215/cinebrain/internal/supervisor"
	"github.com/tomtom215/cinebrain/internal/supervisor/services"
	ws "github.com/tomtom215/cinebrain/internal/websocket"
)

// app holds every long-lived component of the daemon.
type app struct {
	cfg *config.Config

	store       *session.Store
	session     *session.Manager
	client      *client.Client
	redis       *cache.RedisStore
	cache       *cache.Cache
	notifier    *notify.Notifier
	collections *favorites.Manager
	loader      *loader.Loader
	search      *search.Service
	hub         *ws.Hub
	handler     http.Handler

	disposers []func()
}

// newApp builds the component graph. The session store is the only
// component whose failure is fatal; an unreachable Redis falls back to the
// in-process cache.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	store, err := session.OpenStore(&cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.store = store

	a.session = session.NewManager(store)
	if err := a.session.Restore(); err != nil {
		logging.Warn().Err(err).Msg("Failed to restore session, starting signed out")
	}

	a.client = client.New(&cfg.API,
		client.WithTokenSource(a.session),
		client.WithAuthExpiredHook(a.session.HandleAuthExpired),
		client.WithEndpoints(client.EndpointsFromConfig(&cfg.Collections)),
	)

	var cacheOpts []cache.Option
	if cfg.Cache.Redis.Enabled {
		rs, err := cache.NewRedisStore(ctx, &cfg.Cache.Redis)
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Cache.Redis.Addr).Msg("Redis unavailable, using in-process cache only")
		} else {
			a.redis = rs
			cacheOpts = append(cacheOpts, cache.WithStore(rs))
			logging.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Redis second-level cache enabled")
		}
	}
	a.cache = cache.New(cacheOpts...)

	a.notifier = notify.New()

	a.collections = favorites.NewManager(a.client, favorites.Options{
		TreatMissingAsRemoved: cfg.Collections.TreatMissingAsRemoved,
		Notifier:              a.notifier,
		Snapshot:              store,
	})

	a.loader = loader.New(a.client, a.cache, cfg.Rows, loader.ConfigFrom(cfg))
	a.search = search.New(a.client, store, search.ConfigFrom(&cfg.Search))
	a.hub = ws.NewHub(cfg.Server.CORSOrigins...)
	if cfg.Loader.SuspendWithoutViewers {
		a.hub.OnPresenceChange(a.onPresenceChange(ctx))
	}

	router := api.NewRouter(api.Deps{
		Rows:        a.loader,
		Search:      a.search,
		Collections: a.collections,
		Session:     a.session,
		Breaker:     a.client,
		WebSocket:   a.hub,
		Clients:     a.hub,
	}, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)))
	a.handler = router.Handler()

	a.disposers = append(a.disposers, a.session.OnChange(a.onSessionChange(ctx)))
	return a, nil
}

// onSessionChange drops everything cached for the previous identity and
// reloads the page for the new one.
func (a *app) onSessionChange(ctx context.Context) func(session.Event) {
	return func(ev session.Event) {
		a.cache.Clear()
		a.collections.ResetAll()
		logging.Info().Str("event", string(ev.Kind)).Msg("Session changed, cache and collections reset")

		go func() {
			if err := a.loader.Load(ctx); err != nil && !errors.Is(err, loader.ErrClosed) && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("Reload after session change failed")
			}
		}()
	}
}

// onPresenceChange suspends the loader when the last viewer leaves and
// resumes the aborted rows when one comes back.
func (a *app) onPresenceChange(ctx context.Context) func(viewing bool) {
	return func(viewing bool) {
		if !viewing {
			logging.Info().Msg("No viewers left, suspending loader")
			a.loader.Suspend()
			return
		}

		logging.Info().Msg("Viewer connected, resuming loader")
		go func() {
			if err := a.loader.Resume(ctx); err != nil && !errors.Is(err, loader.ErrClosed) && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("Resume after viewer connect failed")
			}
		}()
	}
}

// bridge attaches the hub to loader, session and collection events.
func (a *app) bridge() (dispose func()) {
	disposers := []func(){
		a.loader.Subscribe(func(ev loader.Event) {
			if ev.Row != nil {
				a.hub.BroadcastRow(ev.Row)
				return
			}
			a.hub.BroadcastPhase(ev.Phase)
		}),
		a.session.OnChange(func(ev session.Event) {
			a.hub.BroadcastSession(string(ev.Kind), ev.User)
		}),
		a.collections.Favorites.Observe(a.hub.BroadcastControl),
		a.collections.Watchlist.Observe(a.hub.BroadcastControl),
	}
	return func() {
		for _, d := range disposers {
			d()
		}
	}
}

// supervise adds every service to tree.
func (a *app) supervise(tree *supervisor.Tree) *http.Server {
	tree.AddContentService(services.NewRefreshService(a.loader, a.cfg.Loader.RefreshInterval))

	tree.AddEventService(a.hub)
	tree.AddEventService(services.NewNotificationService(a.notifier, func(n models.Notification) {
		a.hub.BroadcastNotification(n)
	}))
	tree.AddEventService(services.NewBridgeService("event-bridge", a.bridge))

	if !a.cfg.Server.Enabled {
		logging.Info().Msg("Preview server disabled")
		return nil
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port)),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, a.cfg.Server.ShutdownTimeout))
	return server
}

// Close releases resources in reverse dependency order.
func (a *app) Close() {
	for _, d := range a.disposers {
		d()
	}
	a.loader.Close()
	a.search.Cancel()
	if err := a.notifier.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing notifier")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}
	if err := a.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing session store")
	}
}
