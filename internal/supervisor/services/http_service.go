// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/cinebrain/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the preview API under supervision. It binds the
// listener itself so a port conflict fails Serve immediately and the bound
// address is known when addr asks for port 0.
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	name            string

	mu    sync.Mutex
	bound string
}

// NewHTTPServerService wraps server, listening on addr. A non-positive
// timeout becomes 10s.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		name:            "preview-api",
	}
}

// Addr returns the address of the current listener, or "" while the
// server is not listening.
func (h *HTTPServerService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

func (h *HTTPServerService) setBound(addr string) {
	h.mu.Lock()
	h.bound = addr
	h.mu.Unlock()
}

// Serve implements suture.Service. Bind and serve failures are returned so
// the supervisor restarts the server; http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.addr)
	if err != nil {
		return fmt.Errorf("preview api listen on %s: %w", h.addr, err)
	}
	addr := ln.Addr().String()
	h.setBound(addr)
	defer h.setBound("")
	logging.Info().Str("addr", addr).Msg("Preview API listening")

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("preview api on %s failed: %w", addr, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()

		start := time.Now()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Str("addr", addr).Dur("drain", time.Since(start)).Msg("Preview API did not drain in time")
			return fmt.Errorf("preview api shutdown: %w", err)
		}
		<-errCh
		logging.Info().Str("addr", addr).Dur("drain", time.Since(start)).Msg("Preview API stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return h.name
}
