// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinebrain/internal/loader"
	"github.com/tomtom215/cinebrain/internal/logging"
)

// PageLoader is the part of *loader.Loader the refresher drives.
type PageLoader interface {
	Load(ctx context.Context) error
	Wait(ctx context.Context) error
}

// RefreshService runs the initial page load and then reloads on a fixed
// interval. Each reload goes through the SWR cache, so fresh rows are not
// refetched.
//
// Example usage:
//
//	svc := services.NewRefreshService(l, cfg.Loader.RefreshInterval)
//	tree.AddContentService(svc)
type RefreshService struct {
	loader   PageLoader
	interval time.Duration
	name     string
}

// NewRefreshService creates the refresher. An interval of zero loads once
// and then idles until shutdown.
func NewRefreshService(l PageLoader, interval time.Duration) *RefreshService {
	return &RefreshService{
		loader:   l,
		interval: interval,
		name:     "loader-refresher",
	}
}

// Serve implements suture.Service. Load failures are logged and retried on
// the next tick. A closed loader stops the service for good.
func (s *RefreshService) Serve(ctx context.Context) error {
	if err := s.cycle(ctx); err != nil {
		return err
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *RefreshService) cycle(ctx context.Context) error {
	cctx := logging.ContextWithNewCorrelationID(ctx)
	err := s.loader.Load(cctx)
	if err == nil {
		err = s.loader.Wait(cctx)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, loader.ErrClosed):
		logging.Ctx(cctx).Info().Msg("Loader closed, refresher stopping")
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		logging.Ctx(cctx).Warn().Err(err).Msg("Page load failed")
		return nil
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *RefreshService) String() string {
	return s.name
}
