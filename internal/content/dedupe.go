// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package content

import (
	"strings"

	"github.com/tomtom215/cinebrain/internal/models"
)

// DedupeStats reports what a dedup pass dropped.
type DedupeStats struct {
	Input      int
	Kept       int
	Duplicates int
	MissingID  int
}

// titleKey is the normalized (title, type, release date) identity.
type titleKey struct {
	title       string
	contentType models.ContentType
	releaseDate string
}

// seenSet tracks the identities of kept items.
type seenSet struct {
	ids    map[models.ContentID]struct{}
	titles map[titleKey]struct{}
	tmdb   map[models.ExternalID]struct{}
	mal    map[models.ExternalID]struct{}
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		ids:    make(map[models.ContentID]struct{}, capacity),
		titles: make(map[titleKey]struct{}, capacity),
		tmdb:   make(map[models.ExternalID]struct{}),
		mal:    make(map[models.ExternalID]struct{}),
	}
}

func normalizedTitleKey(it *models.ContentItem) (titleKey, bool) {
	title := strings.ToLower(strings.TrimSpace(it.Title))
	if title == "" {
		return titleKey{}, false
	}
	return titleKey{
		title:       title,
		contentType: it.ContentType,
		releaseDate: strings.TrimSpace(it.ReleaseDate),
	}, true
}

func (s *seenSet) contains(it *models.ContentItem) bool {
	if _, ok := s.ids[it.ID]; ok {
		return true
	}
	if k, ok := normalizedTitleKey(it); ok {
		if _, dup := s.titles[k]; dup {
			return true
		}
	}
	if it.TMDBID != 0 {
		if _, ok := s.tmdb[it.TMDBID]; ok {
			return true
		}
	}
	if it.MALID != 0 {
		if _, ok := s.mal[it.MALID]; ok {
			return true
		}
	}
	return false
}

func (s *seenSet) add(it *models.ContentItem) {
	s.ids[it.ID] = struct{}{}
	if k, ok := normalizedTitleKey(it); ok {
		s.titles[k] = struct{}{}
	}
	if it.TMDBID != 0 {
		s.tmdb[it.TMDBID] = struct{}{}
	}
	if it.MALID != 0 {
		s.mal[it.MALID] = struct{}{}
	}
}

// Dedupe returns items without duplicates, keeping first occurrences in order.
func Dedupe(items []models.ContentItem) []models.ContentItem {
	out, _ := DedupeWithStats(items)
	return out
}

// DedupeWithStats is Dedupe plus counts of what was dropped.
//
// Only kept items register identities, so an item dropped as a duplicate can
// never cause a later item to be dropped. This keeps Dedupe idempotent.
func DedupeWithStats(items []models.ContentItem) ([]models.ContentItem, DedupeStats) {
	stats := DedupeStats{Input: len(items)}
	out := make([]models.ContentItem, 0, len(items))
	seen := newSeenSet(len(items))

	for i := range items {
		it := &items[i]
		if it.ID <= 0 {
			stats.MissingID++
			continue
		}
		if seen.contains(it) {
			stats.Duplicates++
			continue
		}
		seen.add(it)
		out = append(out, *it)
	}

	stats.Kept = len(out)
	return out, stats
}
