// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package cache

import "context"

// Store is a shared second-level cache behind the in-memory map. Several
// CineBrain processes pointed at the same store reuse each other's
// responses. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for key. found is false on a miss.
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)

	// Put stores entry under key, replacing any previous value.
	Put(ctx context.Context, key string, entry Entry) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error

	// DeleteMatching removes the entries whose key satisfies match.
	DeleteMatching(ctx context.Context, match func(key string) bool) (int, error)
}

// Verify interface implementations at compile time
var _ Store = (*RedisStore)(nil)
