// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestStore_Credentials(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.LoadCredentials(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	user := &models.User{ID: 7, Username: "ravi"}
	if err := s.SaveCredentials("tok", user); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	token, got, err := s.LoadCredentials()
	if err != nil || token != "tok" || got == nil || got.Username != "ravi" {
		t.Fatalf("LoadCredentials = %q, %+v, %v", token, got, err)
	}

	if err := s.ClearCredentials(); err != nil {
		t.Fatalf("ClearCredentials: %v", err)
	}
	if _, _, err := s.LoadCredentials(); !errors.Is(err, ErrNotFound) {
		t.Errorf("credentials survived Clear: %v", err)
	}
}

func TestStore_RecentSearches(t *testing.T) {
	s := newTestStore(t)

	for _, q := range []string{"rrr", "baahubali", "RRR", "  ", "kgf", "pushpa"} {
		if _, err := s.AddRecentSearch(q, 3); err != nil {
			t.Fatalf("AddRecentSearch(%q): %v", q, err)
		}
	}
	recent, err := s.RecentSearches()
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	want := []string{"pushpa", "kgf", "RRR"}
	if len(recent) != len(want) {
		t.Fatalf("recent = %v, want %v", recent, want)
	}
	for i := range want {
		if recent[i] != want[i] {
			t.Fatalf("recent = %v, want %v", recent, want)
		}
	}

	if err := s.ClearRecentSearches(); err != nil {
		t.Fatalf("ClearRecentSearches: %v", err)
	}
	if recent, _ := s.RecentSearches(); len(recent) != 0 {
		t.Errorf("recent after clear = %v", recent)
	}
}

func TestStore_Collections(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadCollection(models.CollectionFavorites); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveCollection(models.CollectionFavorites, []models.ContentID{3, 1, 2}); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if err := s.SaveCollection(models.CollectionWatchlist, []models.ContentID{9}); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	ids, err := s.LoadCollection(models.CollectionFavorites)
	if err != nil || len(ids) != 3 || ids[0] != 3 {
		t.Fatalf("LoadCollection = %v, %v", ids, err)
	}

	if err := s.ClearCollections(); err != nil {
		t.Fatalf("ClearCollections: %v", err)
	}
	if _, err := s.LoadCollection(models.CollectionWatchlist); !errors.Is(err, ErrNotFound) {
		t.Errorf("watchlist survived ClearCollections: %v", err)
	}
}

func TestOpenStore_InMemory(t *testing.T) {
	s, err := OpenStore(&config.SessionConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()
	if err := s.SaveCollection(models.CollectionFavorites, nil); err != nil {
		t.Errorf("SaveCollection: %v", err)
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []EventKind
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev.Kind)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventKind(nil), l.events...)
}

func TestManager_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store)
	var log eventLog
	dispose := m.OnChange(log.record)

	if m.Authenticated() {
		t.Fatal("new manager should be signed out")
	}
	if err := m.Login("", nil); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Login with empty token: %v", err)
	}

	if err := m.Login("opaque-token", &models.User{ID: 1, Username: "asha"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.Token() != "opaque-token" || m.User().Username != "asha" {
		t.Errorf("Token=%q User=%+v", m.Token(), m.User())
	}

	m.HandleAuthExpired()
	m.HandleAuthExpired() // already signed out: no second event
	if m.Authenticated() {
		t.Error("expired session should be signed out")
	}
	if _, _, err := store.LoadCredentials(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired credentials still stored: %v", err)
	}

	_ = m.Login("again", nil)
	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	dispose()
	_ = m.Login("after-dispose", nil)

	got := log.kinds()
	want := []EventKind{EventLogin, EventExpired, EventLogin, EventLogout}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestManager_JWTExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m := NewManager(nil, WithClock(func() time.Time { return clock }))
	var log eventLog
	m.OnChange(log.record)

	token := signedToken(t, now.Add(time.Hour))
	if err := m.Login(token, nil); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.Token() != token {
		t.Fatal("valid JWT should be returned")
	}

	clock = now.Add(2 * time.Hour)
	if m.Token() != "" {
		t.Error("expired JWT must not be sent")
	}
	if kinds := log.kinds(); len(kinds) != 2 || kinds[1] != EventExpired {
		t.Errorf("events = %v", kinds)
	}
}

func TestManager_Restore(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := newTestStore(t)
	_ = store.SaveCredentials(signedToken(t, now.Add(time.Hour)), &models.User{ID: 3, Username: "kiran"})
	m := NewManager(store, WithClock(clock))
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !m.Authenticated() || m.User().ID != 3 {
		t.Error("valid stored session should be restored")
	}

	expired := newTestStore(t)
	_ = expired.SaveCredentials(signedToken(t, now.Add(-time.Minute)), nil)
	m2 := NewManager(expired, WithClock(clock))
	if err := m2.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m2.Authenticated() {
		t.Error("expired stored session must not be restored")
	}
	if _, _, err := expired.LoadCredentials(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired credentials should be removed: %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque", "not-a-jwt", false},
		{"future", signedToken(t, now.Add(time.Minute)), false},
		{"past", signedToken(t, now.Add(-time.Minute)), true},
	}
	for _, tt := range tests {
		if got := tokenExpired(tt.token, now); got != tt.want {
			t.Errorf("%s: tokenExpired = %v, want %v", tt.name, got, tt.want)
		}
	}
}
