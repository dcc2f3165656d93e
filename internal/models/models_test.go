// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestContentID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  ContentID
	}{
		{"number", `42`, 42},
		{"numeric string", `"42"`, 42},
		{"padded string", `" 7 "`, 7},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"slug in id field", `"dune-part-two"`, 0},
		{"largest int64", `9223372036854775807`, 9223372036854775807},
		{"above 2^53 keeps precision", `9007199254740993`, 9007199254740993},
		{"fraction is absent", `1.5`, 0},
		{"exponent is absent", `1e3`, 0},
		{"overflow is absent", `9223372036854775808`, 0},
		{"huge exponent is absent", `1e400`, 0},
		{"negative", `-3`, -3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var id ContentID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.want {
				t.Errorf("got %d, want %d", id, tt.want)
			}
		})
	}
}

func TestContentItem_DecodeLooseFields(t *testing.T) {
	t.Parallel()

	raw := `{"id":"12","title":"RRR","content_type":"movie","languages":"telugu, hindi","genres":["Action"],"tmdb_id":579974}`
	var item ContentItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID != 12 {
		t.Errorf("id = %d, want 12", item.ID)
	}
	if len(item.Languages) != 2 || item.Languages[1] != "hindi" {
		t.Errorf("languages = %v", item.Languages)
	}
	if item.TMDBID != 579974 {
		t.Errorf("tmdb_id = %d, want 579974", item.TMDBID)
	}
	if item.MALID != 0 {
		t.Errorf("mal_id should be absent, got %d", item.MALID)
	}
}

func TestContentID_RejectsNonNumbers(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`true`, `{}`, `[1]`} {
		var id ContentID
		if err := json.Unmarshal([]byte(raw), &id); err == nil {
			t.Errorf("Unmarshal(%s) = %d, want error", raw, id)
		}
	}
}

func TestContentItem_ExternalIDsAsStrings(t *testing.T) {
	t.Parallel()

	raw := `{"id":3,"title":"The Matrix","tmdb_id":"603","mal_id":null}`
	var item ContentItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.TMDBID != 603 {
		t.Errorf("tmdb_id = %d, want 603", item.TMDBID)
	}
	if item.MALID != 0 {
		t.Errorf("mal_id = %d, want absent", item.MALID)
	}

	var fractional ContentItem
	if err := json.Unmarshal([]byte(`{"id":4,"tmdb_id":603.5,"mal_id":"one"}`), &fractional); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fractional.TMDBID != 0 || fractional.MALID != 0 {
		t.Errorf("tmdb_id = %d, mal_id = %d, want both absent", fractional.TMDBID, fractional.MALID)
	}
}

func TestContentItem_ReleaseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{"2024-03-15T10:00:00Z", "2024-03-15", true},
		{"2024-03-15 08:00:00", "2024-03-15", true},
		{"2019", "2019-01-01", true},
		{"", "", false},
		{"soon", "", false},
	}
	for _, tt := range tests {
		item := ContentItem{ReleaseDate: tt.in}
		got, ok := item.ReleaseTime()
		if ok != tt.ok {
			t.Errorf("ReleaseTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.Format(time.DateOnly) != tt.want {
			t.Errorf("ReleaseTime(%q) = %s, want %s", tt.in, got.Format(time.DateOnly), tt.want)
		}
	}
}

func TestContentItem_PosterURL(t *testing.T) {
	t.Parallel()

	const base = "https://image.tmdb.org/t/p/w500"
	tests := []struct {
		path string
		want string
	}{
		{"/abc.jpg", base + "/abc.jpg"},
		{"abc.jpg", base + "/abc.jpg"},
		{"https://cdn.example.com/x.jpg", "https://cdn.example.com/x.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		item := ContentItem{PosterPath: tt.path}
		if got := item.PosterURL(base + "/"); got != tt.want {
			t.Errorf("PosterURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestContentItem_Route(t *testing.T) {
	t.Parallel()

	withSlug := ContentItem{ID: 5, Slug: "spirited-away", ContentType: ContentTypeAnime}
	if got := withSlug.Route(); got != "/anime/spirited-away" {
		t.Errorf("Route() = %q", got)
	}
	noSlug := ContentItem{ID: 5, ContentType: ContentTypeTV}
	if got := noSlug.Route(); got != "/tv/5" {
		t.Errorf("Route() = %q", got)
	}
}

func TestParseContentID(t *testing.T) {
	t.Parallel()

	if id, err := ParseContentID("99"); err != nil || id != 99 {
		t.Errorf("ParseContentID(99) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := ParseContentID(bad); err == nil {
			t.Errorf("ParseContentID(%q) expected error", bad)
		}
	}
}

func TestCollectionKind_Valid(t *testing.T) {
	t.Parallel()

	if !CollectionFavorites.Valid() || !CollectionWatchlist.Valid() {
		t.Error("known kinds should be valid")
	}
	if CollectionKind("history").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
