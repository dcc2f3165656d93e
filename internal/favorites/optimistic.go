// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package favorites

import (
	"context"
	"errors"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
)

// Action is one optimistic mutation.
type Action struct {
	// Name labels the rollback metric, e.g. "favorites_add".
	Name string

	// Apply makes the local change. It runs before Request.
	Apply func()

	// Revert undoes Apply. It runs only when Request fails.
	Revert func()

	// Request performs the backend call.
	Request func(ctx context.Context) error
}

// RunOptimistic applies a, runs its request and reverts on failure. The
// request error is returned unchanged. A panicking request is reverted
// before the panic continues.
func RunOptimistic(ctx context.Context, a Action) (err error) {
	if a.Request == nil {
		return errors.New("optimistic action has no request")
	}
	if a.Apply != nil {
		a.Apply()
	}

	reverted := false
	revert := func() {
		if reverted {
			return
		}
		reverted = true
		if a.Revert != nil {
			a.Revert()
		}
		metrics.OptimisticRollbacks.WithLabelValues(a.Name).Inc()
	}

	defer func() {
		if r := recover(); r != nil {
			revert()
			panic(r)
		}
	}()

	if err = a.Request(ctx); err != nil {
		revert()
		logging.Ctx(ctx).Debug().Err(err).Str("action", a.Name).Msg("Optimistic change rolled back")
		return err
	}
	return nil
}
