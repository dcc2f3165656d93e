// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

// Package notify publishes transient user notifications ("Added to
// favorites", "Could not update watchlist") on an in-process watermill
// gochannel that the WebSocket hub and other consumers subscribe to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// Topic is the watermill topic notifications are published on.
const Topic = "cinebrain.notifications"

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("notifier is closed")

// Publisher is implemented by Notifier. Components that only emit
// notifications depend on this.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Notifier is an in-process notification bus.
type Notifier struct {
	pubsub *gochannel.GoChannel
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// New creates a notifier. Notifications published while nobody is
// subscribed are dropped. Publish returns once every subscriber has taken
// the notification, so subscribers see notifications in publish order.
func New() *Notifier {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, logging.NewWatermillAdapter())
	return &Notifier{pubsub: ps, now: time.Now}
}

// Publish stamps n with an id and timestamp when missing and publishes it.
func (n *Notifier) Publish(ctx context.Context, note models.Notification) error {
	if n.isClosed() {
		return ErrClosed
	}

	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Timestamp.IsZero() {
		note.Timestamp = n.now()
	}
	if note.Level == "" {
		note.Level = models.NotifyInfo
	}

	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := message.NewMessage(note.ID, data)
	msg.Metadata.Set("level", string(note.Level))
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	// Not under mu: a blocked publish must not hold up Close.
	if err := n.pubsub.Publish(Topic, msg); err != nil {
		if n.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("publish notification: %w", err)
	}
	metrics.NotificationsPublished.WithLabelValues(string(note.Level)).Inc()
	logging.Ctx(ctx).Debug().Str("level", string(note.Level)).Str("message", note.Message).Msg("Notification published")
	return nil
}

// Success publishes a success notification.
func (n *Notifier) Success(ctx context.Context, message string, contentID models.ContentID) error {
	return n.Publish(ctx, models.Notification{Level: models.NotifySuccess, Message: message, ContentID: contentID})
}

// Error publishes an error notification.
func (n *Notifier) Error(ctx context.Context, message string, contentID models.ContentID) error {
	return n.Publish(ctx, models.Notification{Level: models.NotifyError, Message: message, ContentID: contentID})
}

// Subscribe returns a channel of notifications published after the call.
// The channel is closed when ctx is done or the notifier is closed.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan models.Notification, error) {
	if n.isClosed() {
		return nil, ErrClosed
	}

	messages, err := n.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	out := make(chan models.Notification, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var note models.Notification
			if err := json.Unmarshal(msg.Payload, &note); err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable notification")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- note:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Run delivers every notification to fn until ctx is done or the notifier closes.
func (n *Notifier) Run(ctx context.Context, fn func(context.Context, models.Notification)) error {
	notes, err := n.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note, ok := <-notes:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			fn(ctx, note)
		}
	}
}

func (n *Notifier) isClosed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.closed
}

// Close shuts down the bus and closes every subscription.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.pubsub.Close()
}
