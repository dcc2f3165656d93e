// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package websocket pushes live page updates to connected preview clients.

A Hub owns the set of clients and fans messages out to them; each Client
runs a read pump (client pings, connection liveness) and a write pump
(hub messages, pongs, keepalive pings). The hub runs as a suture service and
closes every client when its context ends.

Message types:

  - phase: the page loader moved to another phase
  - row: a row changed state (loading, loaded, error)
  - notification: a transient user notification
  - control: a favorite or watchlist control changed
  - session: the user signed in, signed out or the session expired
  - ping / pong: application-level liveness

Every frame is a JSON envelope:

	{"type": "row", "data": {"id": "trending", "status": "loaded", ...}}

Broadcasts never block the caller. When the hub's queue is full the message
is dropped, and a client whose buffer is full is disconnected.
*/
package websocket
