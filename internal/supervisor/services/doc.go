// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package services adapts CineBrain components to suture's Serve pattern.

  - HTTPServerService: binds the preview API listener and drains it on shutdown
  - RefreshService: initial page load, then a reload every refresh interval
  - NotificationService: forwards notifier messages to the WebSocket hub
  - BridgeService: keeps loader, session and collection observers attached

The WebSocket hub implements suture.Service itself and is added directly.
*/
package services
