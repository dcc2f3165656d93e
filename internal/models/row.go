// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

import "time"

// Row sort modes.
const (
	RowSortNone        = ""
	RowSortNewReleases = "new_releases"
	RowSortUpcoming    = "upcoming"
)

// RowConfig describes one content row. Lower Priority loads earlier.
// A RowConfig is treated as immutable once handed to the loader.
type RowConfig struct {
	ID       string            `koanf:"id" json:"id" validate:"required,max=64,rowid"`
	Title    string            `koanf:"title" json:"title" validate:"max=200"`
	Endpoint string            `koanf:"endpoint" json:"endpoint" validate:"required,endpoint"`
	Params   map[string]string `koanf:"params" json:"params,omitempty"`
	Priority int               `koanf:"priority" json:"priority" validate:"min=0,max=100"`
	Cached   bool              `koanf:"cached" json:"cached"`

	// Sort applies a client-side ordering after dedup.
	Sort string `koanf:"sort" json:"sort,omitempty" validate:"omitempty,oneof=new_releases upcoming"`

	// Timeout overrides the endpoint timeout for this row. Zero uses the default.
	Timeout time.Duration `koanf:"timeout" json:"timeout,omitempty" validate:"min=0"`

	// Freshness overrides the cache freshness window. Zero uses the default.
	Freshness time.Duration `koanf:"freshness" json:"freshness,omitempty" validate:"min=0"`

	// Limit truncates the row after sorting. Zero means unlimited.
	Limit int `koanf:"limit" json:"limit,omitempty" validate:"min=0"`
}

// RowStatus is the per-row load status.
type RowStatus string

const (
	RowLoading RowStatus = "loading"
	RowLoaded  RowStatus = "loaded"
	RowError   RowStatus = "error"
)

// RowState is a snapshot of a row as shown to observers.
type RowState struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Priority  int           `json:"priority"`
	Status    RowStatus     `json:"status"`
	Items     []ContentItem `json:"items"`
	Error     string        `json:"error,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`

	// Stale is true while cached data older than the freshness window is shown.
	Stale     bool      `json:"stale,omitempty"`
	FromCache bool      `json:"from_cache,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoaderPhase is the page level loader state.
type LoaderPhase string

const (
	PhaseIdle                LoaderPhase = "idle"
	PhasePreloading          LoaderPhase = "preloading"
	PhaseLoadingHighPriority LoaderPhase = "loading_high_priority"
	PhaseLoadingLowPriority  LoaderPhase = "loading_low_priority"
	PhaseSettled             LoaderPhase = "settled"
)
