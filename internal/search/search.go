// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/content"
	"github.com/tomtom215/cinebrain/internal/inflight"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// Fetcher runs the backend search request. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string, timeout time.Duration) ([]models.ContentItem, error)
}

// RecentStore persists recent queries. *session.Store implements it.
type RecentStore interface {
	RecentSearches() ([]string, error)
	AddRecentSearch(query string, max int) ([]string, error)
	ClearRecentSearches() error
}

// Config holds the search settings.
type Config struct {
	Endpoint       string
	MinQueryLength int
	Limit          int
	MaxRecent      int
	Timeout        time.Duration
}

// ConfigFrom converts the application search config.
func ConfigFrom(cfg *config.SearchConfig) Config {
	return Config{
		Endpoint:       cfg.Endpoint,
		MinQueryLength: cfg.MinQueryLength,
		Limit:          cfg.Limit,
		MaxRecent:      cfg.MaxRecent,
		Timeout:        cfg.Timeout,
	}
}

// Result is the answer to one query.
type Result struct {
	Query string               `json:"query"`
	Items []models.ContentItem `json:"items"`

	// TooShort is set when the query was below the minimum length and no
	// request was made.
	TooShort bool `json:"too_short,omitempty"`
}

// Service runs search-as-you-type. Only the newest query's result is
// delivered; older in-flight queries fail with inflight.ErrSuperseded.
type Service struct {
	fetcher Fetcher
	recent  RecentStore
	cfg     Config

	slot    inflight.Slot
	suggest *Suggester

	// mu serializes recent-list updates with the suggester rebuild.
	mu sync.Mutex
}

// New creates a search service. recent may be nil, in which case nothing is
// remembered.
func New(fetcher Fetcher, recent RecentStore, cfg Config) *Service {
	if cfg.MinQueryLength < 1 {
		cfg.MinQueryLength = 1
	}
	s := &Service{
		fetcher: fetcher,
		recent:  recent,
		cfg:     cfg,
		suggest: NewSuggester(),
	}
	if recent != nil {
		list, err := recent.RecentSearches()
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to load recent searches")
		}
		s.suggest.Reset(list)
	}
	return s
}

// Search queries the backend. A query shorter than MinQueryLength cancels
// any running search and returns an empty result marked TooShort.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < s.cfg.MinQueryLength {
		s.slot.Cancel()
		metrics.SearchQueries.WithLabelValues("too_short").Inc()
		return &Result{Query: q, TooShort: true}, nil
	}

	rctx, ticket := s.slot.Begin(ctx)
	defer ticket.Done()

	params := map[string]string{"q": q}
	if s.cfg.Limit > 0 {
		params["limit"] = strconv.Itoa(s.cfg.Limit)
	}
	items, err := s.fetcher.Fetch(rctx, s.cfg.Endpoint, params, s.cfg.Timeout)
	if !ticket.Current() {
		metrics.SearchQueries.WithLabelValues("superseded").Inc()
		return nil, inflight.ErrSuperseded
	}
	if err != nil {
		metrics.SearchQueries.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("query", q).Str("outcome", client.Outcome(err)).Msg("Search failed")
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	kept := content.Dedupe(items)
	if s.cfg.Limit > 0 && len(kept) > s.cfg.Limit {
		kept = kept[:s.cfg.Limit]
	}
	metrics.SearchQueries.WithLabelValues("ok").Inc()
	return &Result{Query: q, Items: kept}, nil
}

// Remember records a submitted query in the recent list and returns the
// updated list, most recent first.
func (s *Service) Remember(query string) ([]string, error) {
	q := strings.TrimSpace(query)
	if s.recent == nil || q == "" {
		return s.Recent()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.recent.AddRecentSearch(q, s.cfg.MaxRecent)
	if err != nil {
		return nil, fmt.Errorf("remember search: %w", err)
	}
	s.suggest.Reset(list)
	return list, nil
}

// Recent returns the recent queries, most recent first.
func (s *Service) Recent() ([]string, error) {
	if s.recent == nil {
		return nil, nil
	}
	list, err := s.recent.RecentSearches()
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	return list, nil
}

// ClearRecent forgets every recent query.
func (s *Service) ClearRecent() error {
	if s.recent == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.recent.ClearRecentSearches(); err != nil {
		return fmt.Errorf("clear recent searches: %w", err)
	}
	s.suggest.Reset(nil)
	return nil
}

// Suggest completes prefix from the recent queries.
func (s *Service) Suggest(prefix string, limit int) []string {
	return s.suggest.Complete(prefix, limit)
}

// Cancel aborts the running search, if any.
func (s *Service) Cancel() {
	s.slot.Cancel()
}
