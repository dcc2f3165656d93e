// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ContentType identifies the kind of title.
type ContentType string

const (
	ContentTypeMovie ContentType = "movie"
	ContentTypeTV    ContentType = "tv"
	ContentTypeAnime ContentType = "anime"
)

// ContentID is the backend identifier of a content item. Zero means absent.
type ContentID int64

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
func (id *ContentID) UnmarshalJSON(data []byte) error {
	n, err := parseIntID(data)
	if err != nil {
		return fmt.Errorf("content id: %w", err)
	}
	*id = ContentID(n)
	return nil
}

// ExternalID is a catalogue identifier (TMDB, MyAnimeList) used to detect
// the same title under different backend ids. Zero means absent.
type ExternalID int64

// UnmarshalJSON accepts the same forms as ContentID.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	n, err := parseIntID(data)
	if err != nil {
		return fmt.Errorf("external id: %w", err)
	}
	*id = ExternalID(n)
	return nil
}

// parseIntID decodes an integer id from a JSON number or string. Values
// that are not exact 64-bit integers (fractions, exponents, overflow,
// slugs) decode as 0 so the item is treated as having no id.
func parseIntID(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
	} else {
		s = string(data)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			var numErr *strconv.NumError
			if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
				return 0, fmt.Errorf("invalid id %s", data)
			}
		}
	}
	if s == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, nil //nolint:nilerr // not an integer id, treated as absent
	}
	return n, nil
}

// String returns the decimal form of the id.
func (id ContentID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseContentID parses a decimal content id, as found in URL paths.
func ParseContentID(s string) (ContentID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid content id %q", s)
	}
	return ContentID(n), nil
}

// StringList decodes from either a JSON array of strings or a single
// comma separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		*l = out
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = arr
	return nil
}

// ContentItem is one title as rendered in a row, a search result or a collection.
type ContentItem struct {
	ID            ContentID   `json:"id"`
	Slug          string      `json:"slug,omitempty"`
	Title         string      `json:"title"`
	OriginalTitle string      `json:"original_title,omitempty"`
	ContentType   ContentType `json:"content_type"`
	ReleaseDate   string      `json:"release_date,omitempty"`
	Languages     StringList  `json:"languages,omitempty"`
	Genres        StringList  `json:"genres,omitempty"`
	Rating        float64     `json:"rating"`
	Popularity    float64     `json:"popularity"`
	PosterPath    string      `json:"poster_path,omitempty"`
	BackdropPath  string      `json:"backdrop_path,omitempty"`
	TMDBID        ExternalID  `json:"tmdb_id,omitempty"`
	MALID         ExternalID  `json:"mal_id,omitempty"`
}

// releaseLayouts are tried in order by ReleaseTime.
var releaseLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006"}

// ReleaseTime parses ReleaseDate. ok is false when the date is missing or unparseable.
func (c *ContentItem) ReleaseTime() (t time.Time, ok bool) {
	s := strings.TrimSpace(c.ReleaseDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	// Some feeds append a time to a plain date, e.g. "2024-05-01 00:00:00".
	if len(s) > 10 {
		if parsed, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// PosterURL resolves the poster path against posterBase. Absolute URLs are
// returned unchanged and an empty path yields "".
func (c *ContentItem) PosterURL(posterBase string) string {
	return resolveImage(c.PosterPath, posterBase)
}

// BackdropURL resolves the backdrop path the same way as PosterURL.
func (c *ContentItem) BackdropURL(imageBase string) string {
	return resolveImage(c.BackdropPath, imageBase)
}

func resolveImage(path, base string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "//") {
		return path
	}
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Route returns the detail page path, preferring the slug.
func (c *ContentItem) Route() string {
	if c.Slug != "" {
		return "/" + string(c.ContentType) + "/" + c.Slug
	}
	return "/" + string(c.ContentType) + "/" + c.ID.String()
}
