// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package notify

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/tomtom215/cinebrain/internal/models"
)

func receive(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return models.Notification{}
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	n := New()
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := n.Success(ctx, "Added to favorites", 42); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if err := n.Error(ctx, "Could not update watchlist", 7); err != nil {
		t.Fatalf("Error: %v", err)
	}

	first := receive(t, ch)
	if first.Level != models.NotifySuccess || first.ContentID != 42 || first.ID == "" || first.Timestamp.IsZero() {
		t.Errorf("unexpected first notification %+v", first)
	}
	second := receive(t, ch)
	if second.Level != models.NotifyError || second.Message != "Could not update watchlist" {
		t.Errorf("unexpected second notification %+v", second)
	}
}

func TestNotifier_PreservesPublishOrder(t *testing.T) {
	n := New()
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	const burst = 20
	published := make(chan error, 1)
	go func() {
		for i := 0; i < burst; i++ {
			if err := n.Success(ctx, strconv.Itoa(i), models.ContentID(i+1)); err != nil {
				published <- err
				return
			}
		}
		published <- nil
	}()

	for i := 0; i < burst; i++ {
		note := receive(t, ch)
		if note.Message != strconv.Itoa(i) {
			t.Fatalf("notification %d = %q, want %q", i, note.Message, strconv.Itoa(i))
		}
	}
	if err := <-published; err != nil {
		t.Fatalf("Success: %v", err)
	}
}

func TestNotifier_CloseReleasesBlockedPublish(t *testing.T) {
	n := New()

	// A subscriber that never reads.
	if _, err := n.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := n.Success(context.Background(), "Added to favorites", 1); err != nil {
				return
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	closed := make(chan error, 1)
	go func() { closed <- n.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a pending publish")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher still blocked after Close")
	}
}

func TestNotifier_DefaultLevel(t *testing.T) {
	n := New()
	defer n.Close()

	ch, err := n.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := n.Publish(context.Background(), models.Notification{Message: "hello"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := receive(t, ch); got.Level != models.NotifyInfo {
		t.Errorf("level = %q, want info", got.Level)
	}
}

func TestNotifier_Run(t *testing.T) {
	n := New()
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	done := make(chan error, 1)
	ready := make(chan struct{})

	go func() {
		done <- n.Run(ctx, func(_ context.Context, note models.Notification) {
			select {
			case got <- note.Message:
			default:
			}
		})
	}()
	go func() {
		// Retry until the Run subscription is in place.
		for {
			select {
			case <-ready:
				return
			default:
			}
			_ = n.Publish(context.Background(), models.Notification{Message: "ping"})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case msg := <-got:
		if msg != "ping" {
			t.Errorf("message = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never delivered")
	}
	close(ready)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNotifier_Closed(t *testing.T) {
	n := New()
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := n.Publish(context.Background(), models.Notification{Message: "x"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close: %v", err)
	}
	if _, err := n.Subscribe(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close: %v", err)
	}
}
