// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/cinebrain/internal/models"
)

// Manager owns the favorites and watchlist collections of one client.
type Manager struct {
	Favorites *Collection
	Watchlist *Collection
}

// NewManager creates both collections with the same backend and options.
func NewManager(backend Backend, opts Options) *Manager {
	return &Manager{
		Favorites: NewCollection(models.CollectionFavorites, backend, opts),
		Watchlist: NewCollection(models.CollectionWatchlist, backend, opts),
	}
}

// Get returns the collection of kind.
func (m *Manager) Get(kind models.CollectionKind) (*Collection, error) {
	switch kind {
	case models.CollectionFavorites:
		return m.Favorites, nil
	case models.CollectionWatchlist:
		return m.Watchlist, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", kind)
	}
}

// LoadAll loads both collections. Both are attempted even if one fails.
func (m *Manager) LoadAll(ctx context.Context) error {
	return errors.Join(m.Favorites.Load(ctx), m.Watchlist.Load(ctx))
}

// ResetAll empties both collections. Called on authentication transitions.
func (m *Manager) ResetAll() {
	m.Favorites.Reset()
	m.Watchlist.Reset()
}
