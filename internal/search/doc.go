// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

// Package search implements search-as-you-type with a persisted list of
// recent queries and prefix completion over that list.
package search
