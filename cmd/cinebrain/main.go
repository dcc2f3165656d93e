// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

// Package main is the entry point of the CineBrain daemon.
//
// The daemon runs the content orchestration core headless: it loads the
// home page rows through the SWR cache, keeps the favorites and watchlist
// collections, and serves everything over a JSON preview API with live
// updates on a WebSocket.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml and environment (Koanf v2)
//  2. Session store: Badger database holding credentials, recent searches
//     and collection snapshots
//  3. API client with circuit breaker, token source and 401 hook
//  4. Response cache, optionally backed by Redis
//  5. Notifier, collections, loader and search
//  6. WebSocket hub and preview router
//  7. Supervisor tree
//
// # Configuration
//
// Highest priority wins:
//   - Environment variables (API_BASE_URL, HTTP_PORT, LOG_LEVEL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// for HTTP_SHUTDOWN_TIMEOUT, WebSocket clients receive a close frame,
// and the session store is closed last.
//
// # Example Usage
//
//	export API_BASE_URL=https://cinebrain.example/api
//	export HTTP_ENABLED=true
//	./cinebrain
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging.ToLogging())

	logging.Info().
		Str("api_base_url", cfg.API.BaseURL).
		Int("rows", len(cfg.Rows)).
		Bool("server_enabled", cfg.Server.Enabled).
		Bool("redis_enabled", cfg.Cache.Redis.Enabled).
		Msg("Starting CineBrain")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if server := a.supervise(tree); server != nil {
		logging.Info().Str("addr", server.Addr).Msg("Preview server added")
	}

	errCh := tree.ServeBackground(ctx)
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree stopped")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	a.Close()
	logging.Info().Msg("CineBrain stopped")
}
