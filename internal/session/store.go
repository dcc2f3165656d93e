// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/models"
)

// Storage keys
const (
	tokenKey          = "auth:token"
	userKey           = "auth:user"
	recentSearchesKey = "search:recent"
	collectionPrefix  = "collection:"
)

// ErrNotFound is returned when a key has never been stored.
var ErrNotFound = errors.New("not found")

// Store persists session state in BadgerDB.
type Store struct {
	db    *badger.DB
	owned bool
}

// OpenStore opens the Badger database described by cfg. The store owns the
// database and closes it in Close.
func OpenStore(cfg *config.SessionConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.StorePath).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	logging.Info().Str("path", cfg.StorePath).Bool("in_memory", cfg.InMemory).Msg("Session store opened")
	return &Store{db: db, owned: true}, nil
}

// NewStore wraps an already open database. Close leaves it open.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) get(key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

func (s *Store) del(keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// SaveCredentials stores the bearer token and the user it belongs to.
func (s *Store) SaveCredentials(token string, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(tokenKey), []byte(token)); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		if user == nil {
			if err := txn.Delete([]byte(userKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete user: %w", err)
			}
			return nil
		}
		return txn.Set([]byte(userKey), data)
	})
}

// LoadCredentials returns the stored token and user. ErrNotFound means signed out.
func (s *Store) LoadCredentials() (string, *models.User, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		token = string(val)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	var user models.User
	if err := s.get(userKey, &user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return token, nil, nil
		}
		return "", nil, err
	}
	return token, &user, nil
}

// ClearCredentials removes the token and the user.
func (s *Store) ClearCredentials() error {
	return s.del(tokenKey, userKey)
}

// RecentSearches returns recent queries, most recent first.
func (s *Store) RecentSearches() ([]string, error) {
	var recent []string
	if err := s.get(recentSearchesKey, &recent); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recent, nil
}

// AddRecentSearch moves query to the front of the recent list, dropping any
// earlier copy that differs only in case, and keeps at most max entries.
func (s *Store) AddRecentSearch(query string, max int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.RecentSearches()
	}

	var recent []string
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recentSearchesKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get recent searches: %w", err)
		default:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &recent) }); err != nil {
				return err
			}
		}

		recent = pushRecent(recent, query, max)
		data, err := json.Marshal(recent)
		if err != nil {
			return err
		}
		return txn.Set([]byte(recentSearchesKey), data)
	})
	if err != nil {
		return nil, err
	}
	return recent, nil
}

// ClearRecentSearches forgets every recent query.
func (s *Store) ClearRecentSearches() error {
	return s.del(recentSearchesKey)
}

func pushRecent(recent []string, query string, max int) []string {
	out := make([]string, 0, len(recent)+1)
	out = append(out, query)
	for _, q := range recent {
		if !strings.EqualFold(q, query) {
			out = append(out, q)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// SaveCollection stores a snapshot of the ids in a user collection.
func (s *Store) SaveCollection(kind models.CollectionKind, ids []models.ContentID) error {
	return s.put(collectionPrefix+string(kind), ids)
}

// LoadCollection returns the stored snapshot. ErrNotFound means none was saved.
func (s *Store) LoadCollection(kind models.CollectionKind) ([]models.ContentID, error) {
	var ids []models.ContentID
	if err := s.get(collectionPrefix+string(kind), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ClearCollections removes every collection snapshot.
func (s *Store) ClearCollections() error {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(collectionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	return s.del(keys...)
}
