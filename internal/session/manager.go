// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
)

// ErrEmptyToken is returned by Login for an empty token.
var ErrEmptyToken = errors.New("token is required")

// EventKind names an authentication transition.
type EventKind string

const (
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
	EventExpired EventKind = "expired"
)

// Event describes one authentication transition.
type Event struct {
	Kind EventKind
	User *models.User
}

// Manager tracks the signed-in user and notifies observers of transitions.
// It is safe for concurrent use.
type Manager struct {
	store *Store
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	user      *models.User
	observers map[uint64]func(Event)
	nextID    uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces time.Now for JWT expiry checks.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. A nil store keeps state in memory only.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		now:       time.Now,
		observers: make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads persisted credentials. An expired JWT is discarded.
func (m *Manager) Restore() error {
	if m.store == nil {
		return nil
	}
	token, user, err := m.store.LoadCredentials()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if tokenExpired(token, m.now()) {
		logging.Info().Msg("Stored session token has expired, starting signed out")
		return m.store.ClearCredentials()
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	ev := logging.Info().Bool("restored", true)
	if user != nil {
		ev = ev.Str("username", user.Username)
	}
	ev.Msg("Session restored")
	return nil
}

// Login stores credentials and notifies observers.
func (m *Manager) Login(token string, user *models.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	if m.store != nil {
		if err := m.store.SaveCredentials(token, user); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	logging.Info().Msg("User signed in")
	m.notify(Event{Kind: EventLogin, User: user})
	return nil
}

// Logout clears credentials and notifies observers.
func (m *Manager) Logout() error {
	user, _ := m.clear()
	if m.store != nil {
		if err := m.store.ClearCredentials(); err != nil {
			return err
		}
		if err := m.store.ClearCollections(); err != nil {
			return err
		}
	}
	logging.Info().Msg("User signed out")
	m.notify(Event{Kind: EventLogout, User: user})
	return nil
}

// HandleAuthExpired downgrades the session to anonymous after the backend
// rejected the token. Calls while already signed out do nothing.
func (m *Manager) HandleAuthExpired() {
	user, was := m.clear()
	if !was {
		return
	}
	if m.store != nil {
		if err := m.store.ClearCredentials(); err != nil {
			logging.Warn().Err(err).Msg("Failed to clear stored credentials")
		}
	}
	logging.Warn().Msg("Session expired, continuing signed out")
	m.notify(Event{Kind: EventExpired, User: user})
}

// clear drops the in-memory credentials and reports whether any were held.
func (m *Manager) clear() (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, was := m.user, m.token != ""
	m.token = ""
	m.user = nil
	return user, was
}

// Token returns the bearer token, or "" when signed out. A JWT whose exp
// claim has passed is treated as an expired session.
func (m *Manager) Token() string {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token == "" {
		return ""
	}
	if tokenExpired(token, m.now()) {
		m.HandleAuthExpired()
		return ""
	}
	return token
}

// Authenticated reports whether a usable token is held.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Store returns the backing store, which may be nil.
func (m *Manager) Store() *Store {
	return m.store
}

// OnChange registers fn for every transition and returns its disposer.
func (m *Manager) OnChange(fn func(Event)) (dispose func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// tokenExpired reports whether token is a JWT with an exp claim before now.
// Opaque tokens and JWTs without exp never expire locally; the backend
// still rejects them with 401 when they are no longer valid.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
