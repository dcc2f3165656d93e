// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinebrain/internal/favorites"
	"github.com/tomtom215/cinebrain/internal/models"
)

// collection resolves the {kind} path parameter.
func (router *Router) collection(r *http.Request) (*favorites.Collection, error) {
	kind := models.CollectionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		return nil, fmt.Errorf("%w %q", errUnknownCollection, sanitizeLogValue(string(kind)))
	}
	return router.deps.Collections.Get(kind)
}

// GetCollection returns the ids of a collection. A collection that was
// never loaded is loaded first; when that fails the saved snapshot is
// served, marked cached, if there is one.
func (router *Router) GetCollection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, err := router.collection(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	meta := models.Metadata{}
	if !c.Loaded() {
		if err := c.Load(r.Context()); err != nil {
			if c.Len() == 0 {
				respondErr(w, r, err)
				return
			}
			meta.Cached = true
		}
	}

	ids := c.IDs()
	if ids == nil {
		ids = []models.ContentID{}
	}
	respondData(w, http.StatusOK, models.CollectionResponse{
		Kind: c.Kind(),
		IDs:  ids,
	}, start, meta)
}

// ToggleCollection flips membership of {id}. The response carries the
// settled control state; on failure the state is already rolled back.
func (router *Router) ToggleCollection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, err := router.collection(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	id, err := models.ParseContentID(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, fmt.Errorf("%w: content id must be a positive integer", errBadRequest))
		return
	}

	state, err := c.Toggle(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, state, start, models.Metadata{})
}
