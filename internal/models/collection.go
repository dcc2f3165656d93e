// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

// CollectionKind names a per-user content set.
type CollectionKind string

const (
	CollectionFavorites CollectionKind = "favorites"
	CollectionWatchlist CollectionKind = "watchlist"
)

// Valid reports whether k is a known collection.
func (k CollectionKind) Valid() bool {
	return k == CollectionFavorites || k == CollectionWatchlist
}

// InteractionType is a recorded user interaction.
type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionLike      InteractionType = "like"
	InteractionFavorite  InteractionType = "favorite"
	InteractionWatchlist InteractionType = "watchlist"
	InteractionSearch    InteractionType = "search"
)

// MutationResult is the backend response to a mutation. ActualContentID is
// set when the backend stored the item under a different id than requested.
type MutationResult struct {
	Success         bool       `json:"success"`
	ActualContentID *ContentID `json:"actual_content_id,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// ControlState is the observable state of a toggle control (favorite
// button, watchlist button) bound to one content id.
type ControlState struct {
	ContentID ContentID      `json:"content_id"`
	Kind      CollectionKind `json:"kind"`
	Active    bool           `json:"active"`
	Disabled  bool           `json:"disabled"`

	// RemappedFrom is set once, on the update that moved the control from a
	// provisional id to the id the backend stored.
	RemappedFrom *ContentID `json:"remapped_from,omitempty"`
}

// User is the signed in user as stored in the session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
