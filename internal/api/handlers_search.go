// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
	"github.com/tomtom215/cinebrain/internal/validation"
)

const defaultSuggestLimit = 10

// Search runs one search-as-you-type query. A newer query from any caller
// supersedes this one, which then answers 409. With remember=true a
// successful query is added to the recent searches.
func (router *Router) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := SearchRequest{
		Query:    r.URL.Query().Get("q"),
		Remember: getBoolParam(r, "remember"),
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondErr(w, r, err)
		return
	}

	result, err := router.deps.Search.Search(r.Context(), req.Query)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if req.Remember && !result.TooShort {
		if _, err := router.deps.Search.Remember(result.Query); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to remember search")
		}
	}

	items := result.Items
	if items == nil {
		items = []models.ContentItem{}
	}
	respondData(w, http.StatusOK, models.SearchResponse{
		Query:   result.Query,
		Results: items,
	}, start, models.Metadata{})
}

// RecentSearches lists recent queries, most recent first. With a prefix it
// returns the recent queries completing it instead.
func (router *Router) RecentSearches(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := RecentRequest{
		Prefix: r.URL.Query().Get("prefix"),
		Limit:  getIntParam(r, "limit", defaultSuggestLimit),
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondErr(w, r, err)
		return
	}

	var recent []string
	if req.Prefix != "" {
		recent = router.deps.Search.Suggest(req.Prefix, req.Limit)
	} else {
		all, err := router.deps.Search.Recent()
		if err != nil {
			respondErr(w, r, err)
			return
		}
		recent = all
		if len(recent) > req.Limit {
			recent = recent[:req.Limit]
		}
	}
	if recent == nil {
		recent = []string{}
	}
	respondData(w, http.StatusOK, map[string]interface{}{"recent": recent}, start, models.Metadata{})
}

// RememberSearch records a submitted query and returns the updated list.
func (router *Router) RememberSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RememberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	recent, err := router.deps.Search.Remember(req.Query)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if recent == nil {
		recent = []string{}
	}
	respondData(w, http.StatusOK, map[string]interface{}{"recent": recent}, start, models.Metadata{})
}

// ClearRecentSearches forgets every recent query.
func (router *Router) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	if err := router.deps.Search.ClearRecent(); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
