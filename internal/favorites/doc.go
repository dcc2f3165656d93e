// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package favorites keeps the signed-in user's favorites and watchlist sets and
mutates them optimistically.

Every mutation goes through RunOptimistic: the local change is applied
first, the backend request runs, and the change is reverted exactly if the
request fails. Collection.Toggle builds on it:

  - the id is added or removed immediately and its control is disabled
  - a second toggle of the same id while the first is in flight fails with
    ErrToggleInFlight
  - on failure the set and the control return to their previous state and an
    error notification is published
  - on success a success notification is published, and if the backend
    stored the item under another id the set and every bound control move
    to that id

Controls observe state with Bind (one id) or Observe (every id); both return
a disposer.

A DELETE answered with 404 means the item was already gone. With
TreatMissingAsRemoved (the default) this counts as a successful removal and
is logged at warn level; otherwise it fails like any other error.
*/
package favorites
