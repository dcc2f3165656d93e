// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package content

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/cinebrain/internal/models"
)

// missingReleaseDay is the day key of items without a usable release date (1900-01-01).
const missingReleaseDay = 1900*10000 + 1*100 + 1

// DefaultLanguagePriority is used when no priority list is configured.
var DefaultLanguagePriority = []string{"telugu", "hindi", "tamil", "malayalam", "kannada", "english", "japanese", "korean"}

// sortKey caches the comparison keys of one item.
type sortKey struct {
	day        int
	language   int
	popularity float64
}

// releaseDay returns the release date as yyyymmdd in the date's own zone.
// Time of day is ignored.
func releaseDay(it *models.ContentItem) int {
	t, ok := it.ReleaseTime()
	if !ok {
		return missingReleaseDay
	}
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// LanguageRank returns the lowest index in priority matched by any of the
// item's languages, or len(priority) when none match. A language matches a
// priority entry when it contains the entry, ignoring case.
func LanguageRank(languages []string, priority []string) int {
	best := len(priority)
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		for i := 0; i < best; i++ {
			p := strings.ToLower(strings.TrimSpace(priority[i]))
			if p != "" && strings.Contains(lang, p) {
				best = i
				break
			}
		}
	}
	return best
}

// SortForNewReleases returns a copy of items ordered by release day
// (newest first), then language priority, then popularity (highest first).
// Items equal on all three keep their input order. A nil priority uses
// DefaultLanguagePriority.
func SortForNewReleases(items []models.ContentItem, priority []string) []models.ContentItem {
	if priority == nil {
		priority = DefaultLanguagePriority
	}

	type keyed struct {
		item models.ContentItem
		key  sortKey
	}
	ks := make([]keyed, len(items))
	for i := range items {
		it := &items[i]
		ks[i] = keyed{
			item: *it,
			key: sortKey{
				day:        releaseDay(it),
				language:   LanguageRank(it.Languages, priority),
				popularity: it.Popularity,
			},
		}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		if c := cmp.Compare(b.key.day, a.key.day); c != 0 {
			return c
		}
		if c := cmp.Compare(a.key.language, b.key.language); c != 0 {
			return c
		}
		return cmp.Compare(b.key.popularity, a.key.popularity)
	})

	out := make([]models.ContentItem, len(ks))
	for i := range ks {
		out[i] = ks[i].item
	}
	return out
}

// FilterUpcoming returns the items whose release date falls in now's
// calendar month. Items without a release date are dropped.
func FilterUpcoming(items []models.ContentItem, now time.Time) []models.ContentItem {
	year, month, _ := now.Date()
	out := make([]models.ContentItem, 0, len(items))
	for i := range items {
		t, ok := items[i].ReleaseTime()
		if !ok {
			continue
		}
		if y, m, _ := t.Date(); y == year && m == month {
			out = append(out, items[i])
		}
	}
	return out
}

// SortForUpcoming filters items to now's month and sorts them like
// SortForNewReleases.
func SortForUpcoming(items []models.ContentItem, now time.Time, priority []string) []models.ContentItem {
	return SortForNewReleases(FilterUpcoming(items, now), priority)
}

// Apply runs the ordering configured for a row and truncates to limit.
// Unknown sort modes leave the order unchanged.
func Apply(items []models.ContentItem, sortMode string, limit int, now time.Time, priority []string) []models.ContentItem {
	switch sortMode {
	case models.RowSortNewReleases:
		items = SortForNewReleases(items, priority)
	case models.RowSortUpcoming:
		items = SortForUpcoming(items, now, priority)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
