// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

/*
Package models defines the data structures shared by the CineBrain client core.

Key Components:

  - ContentItem: a movie, TV show or anime as returned by the recommendation API
  - RowConfig: declarative description of one content row on a page
  - RowState: the observable state of a row while it loads
  - MutationResult: response of collection and interaction mutations
  - Notification: transient user-facing message (success, error, info)
  - APIResponse: envelope used by the daemon's preview API

Wire Compatibility:

The backend is not strict about types. Content ids arrive as JSON numbers or
numeric strings, and language lists arrive either as an array or as a single
string. ContentID and StringList accept both forms so that one odd field does
not discard a whole response.
*/
package models
