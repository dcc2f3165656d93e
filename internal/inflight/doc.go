// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package inflight provides the two request-coordination primitives used by the
loader, search and collections.

Slot implements "last request wins" for one logical request slot such as a
row or the search box. Begin cancels the previous request of the slot and
hands out a Ticket; only the ticket of the newest request can Commit:

	ctx, ticket := slot.Begin(parent)
	defer ticket.Done()
	items, err := fetch(ctx)
	if !ticket.Commit(func() { row.items = items }) {
	    return inflight.ErrSuperseded
	}

Guard rejects a second request for a key while the first is still running,
which is how a favorite toggle disables its control until it settles:

	release, ok := guard.TryAcquire("favorites:42")
	if !ok {
	    return ErrToggleInFlight
	}
	defer release()
*/
package inflight
