// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package loader loads the rows of the home page in priority order.

A page load moves through five phases:

	idle -> preloading -> loading_high_priority -> loading_low_priority -> settled

Preloading renders every cached row that has a cache entry, fresh or stale,
without waiting for the network. Rows with priority at or below the
high-priority cutoff then start concurrently, row i after i x StaggerDelay,
and Load returns once all of them have finished. Failures are recorded on
the row and never fail the page.

Remaining rows are grouped into tiers by priority value. Tier k starts
(k+1) x LowPriorityDelay after the high-priority join and runs in the
background; Wait blocks until the page is settled.

Each row has its own request slot: a new request for a row cancels the
previous one, and results of superseded requests are discarded. Retry
restarts a single row.

Lifecycle:

	l := loader.New(client, c, rows, cfg)
	dispose := l.Subscribe(func(ev loader.Event) { ... })
	defer l.Close()

	_ = l.Load(ctx)  // returns after the high-priority tier
	_ = l.Wait(ctx)  // returns when settled

Suspend aborts requests of unsettled rows (the page is hidden) and Resume
starts them again. Close aborts everything and runs every disposer
registered through Subscribe or OnClose.
*/
package loader
