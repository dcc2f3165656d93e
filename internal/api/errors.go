// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package api

import "errors"

var (
	// errBadRequest wraps malformed request input.
	errBadRequest = errors.New("bad request")

	// errUnknownCollection is returned for a {kind} other than favorites or watchlist.
	errUnknownCollection = errors.New("unknown collection")
)
