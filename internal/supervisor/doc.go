// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package supervisor runs the CineBrain daemon as a suture v4 supervisor tree.

	cinebrain (root)
	├── content-layer
	│   └── loader refresher
	├── events-layer
	│   ├── websocket-hub
	│   ├── notification forwarder
	│   └── loader event bridge
	└── api-layer
	    └── preview-api

Services that return are restarted with backoff unless they return
suture.ErrDoNotRestart or their context was canceled. Supervisor events
are written to the application logger through sutureslog.

The service wrappers live in the services subpackage.
*/
package supervisor
