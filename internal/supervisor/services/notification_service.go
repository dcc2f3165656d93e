// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinebrain/internal/models"
)

// NotificationSource is satisfied by *notify.Notifier.
type NotificationSource interface {
	Run(ctx context.Context, fn func(context.Context, models.Notification)) error
}

// NotificationService forwards every notification to a sink, typically
// the WebSocket hub.
type NotificationService struct {
	source NotificationSource
	sink   func(models.Notification)
}

// NewNotificationService creates the forwarder.
func NewNotificationService(source NotificationSource, sink func(models.Notification)) *NotificationService {
	return &NotificationService{source: source, sink: sink}
}

// Serve implements suture.Service. When the notifier closes the service
// stops without restart.
func (s *NotificationService) Serve(ctx context.Context) error {
	err := s.source.Run(ctx, func(_ context.Context, n models.Notification) {
		s.sink(n)
	})
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		return suture.ErrDoNotRestart
	default:
		return fmt.Errorf("notification forwarder: %w", err)
	}
}

func (s *NotificationService) String() string {
	return "notification-forwarder"
}
