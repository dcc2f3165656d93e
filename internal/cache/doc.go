// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package cache provides the response cache used by the row loader.

Entries hold the normalized items of one request and the time they were
stored. The cache never expires entries on its own: callers decide with
IsStale whether an entry is fresh enough to skip the network, and a stale
entry is still returned by Get so it can be shown while a refresh runs
(stale-while-revalidate).

# Keys

Key combines the endpoint, a hash of the query parameters and the
authentication state:

	key := cache.Key("/recommendations/trending", map[string]string{"limit": "20"}, true)

Clear is called whenever the user signs in or out so personalized rows are
never served across sessions. ClearMatching drops a subset, for example
every key of one endpoint:

	n := c.ClearMatching(cache.MatchEndpoint("/user/favorites"))

# Second-level store

WithStore attaches a Store shared between processes. RedisStore keeps
entries as JSON under a key prefix; Put writes through, Get reads through on
a local miss, and Clear removes only the prefixed keys. Store failures are
logged and never fail a cache call.

# Thread Safety

All methods are safe for concurrent use.
*/
package cache
