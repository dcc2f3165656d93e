// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

import (
	"time"
)

// APIResponse is the envelope returned by every preview API endpoint.
//
//	{
//	  "status": "success",
//	  "data": {"rows": [...]},
//	  "metadata": {"timestamp": "2026-01-10T12:00:00Z", "phase": "settled"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache provenance.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Phase       string    `json:"phase,omitempty"`
}

// APIError is the error body of a failed request.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, UNAUTHORIZED, CONFLICT, UPSTREAM_ERROR,
// RATE_LIMIT_EXCEEDED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RowsResponse is the body of GET /api/v1/rows.
type RowsResponse struct {
	Phase LoaderPhase `json:"phase"`
	Rows  []RowState  `json:"rows"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query   string        `json:"query"`
	Results []ContentItem `json:"results"`
}

// CollectionResponse is the body of GET /api/v1/collections/{kind}.
type CollectionResponse struct {
	Kind CollectionKind `json:"kind"`
	IDs  []ContentID    `json:"ids"`
}

// LoginRequest is the body of POST /api/v1/session/login.
type LoginRequest struct {
	Token string `json:"token" validate:"required"`
	User  User   `json:"user"`
}
