// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package session owns the signed-in state of a CineBrain client.

Store persists the small amount of client state that survives restarts in
BadgerDB: the bearer token, the current user, the recent searches and a
snapshot of each user collection.

Manager wraps the store with the authentication lifecycle. It is the
client's TokenSource, drops JWTs whose exp claim has passed, and notifies
observers on every transition so dependent state (the response cache, the
favorites and watchlist sets) can reset:

	mgr := session.NewManager(store)
	dispose := mgr.OnChange(func(ev session.Event) { respCache.Clear() })
	defer dispose()

	api := client.New(&cfg.API, client.WithTokenSource(mgr),
	    client.WithAuthExpiredHook(mgr.HandleAuthExpired))
*/
package session
