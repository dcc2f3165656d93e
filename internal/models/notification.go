// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package models

import "time"

// NotificationLevel controls how a notification is presented.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	NotifyWarning NotificationLevel = "warning"
	NotifyInfo    NotificationLevel = "info"
)

// Notification is a transient message for the user.
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	ContentID ContentID         `json:"content_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
