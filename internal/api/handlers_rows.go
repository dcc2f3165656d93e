// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinebrain/internal/loader"
	"github.com/tomtom215/cinebrain/internal/models"
)

// ListRows returns every row in priority order with the page phase.
func (router *Router) ListRows(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	phase := router.deps.Rows.Phase()
	respondData(w, http.StatusOK, models.RowsResponse{
		Phase: phase,
		Rows:  router.deps.Rows.Rows(),
	}, start, models.Metadata{Phase: string(phase)})
}

// GetRow returns one row.
func (router *Router) GetRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	row, ok := router.deps.Rows.Row(id)
	if !ok {
		respondErr(w, r, loader.ErrUnknownRow)
		return
	}
	respondData(w, http.StatusOK, row, start, models.Metadata{Cached: row.FromCache})
}

// RetryRow reloads one row from the network and returns its new state.
// A failed reload still answers 200: the row carries the error and the
// retryable flag, exactly as a subscriber would see it.
func (router *Router) RetryRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	err := router.deps.Rows.Retry(r.Context(), id)
	if errors.Is(err, loader.ErrUnknownRow) || errors.Is(err, loader.ErrClosed) {
		respondErr(w, r, err)
		return
	}

	row, ok := router.deps.Rows.Row(id)
	if !ok {
		respondErr(w, r, loader.ErrUnknownRow)
		return
	}
	respondData(w, http.StatusOK, row, start, models.Metadata{Cached: row.FromCache})
}
