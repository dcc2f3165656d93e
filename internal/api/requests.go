// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import (
	"net/http"
	"strconv"
	"strings"
)

// SearchRequest holds the query parameters of GET /api/v1/search.
type SearchRequest struct {
	Query    string `json:"q" validate:"max=200"`
	Remember bool   `json:"remember"`
}

// RecentRequest holds the query parameters of GET /api/v1/search/recent.
type RecentRequest struct {
	Prefix string `json:"prefix" validate:"max=200"`
	Limit  int    `json:"limit" validate:"gte=1,lte=50"`
}

// RememberRequest is the body of POST /api/v1/search/recent.
type RememberRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// getIntParam parses an integer query parameter, returning def when it is
// absent or malformed.
func getIntParam(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getBoolParam reports whether a query parameter is set to a true value.
func getBoolParam(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}
