// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package content holds the pure list transformations applied to every fetched
row: deduplication and the release-date/language ordering.

# Deduplication

Dedupe keeps the first occurrence of every item and drops later items that
share any identity with an item already kept:

  - the same id
  - the same trimmed, lowercased title with the same content type and release date
  - the same TMDB id, when both items carry one
  - the same MAL id, when both items carry one

Items without an id are dropped and counted. Dedupe is idempotent and the
result is always a subsequence of the input.

# Ordering

SortForNewReleases orders by release day (newest first), then by language
priority, then by popularity. The sort is stable so full ties keep their
input order. SortForUpcoming first narrows the list to the current calendar
month.

	items = content.Dedupe(items)
	items = content.SortForNewReleases(items, cfg.Sorting.LanguagePriority)

The functions never modify their input slice.
*/
package content
