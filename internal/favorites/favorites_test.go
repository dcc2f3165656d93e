// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package favorites

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// fakeBackend answers collection calls from functions set per test.
type fakeBackend struct {
	add    func(ctx context.Context, id models.ContentID) (*models.MutationResult, error)
	remove func(ctx context.Context, id models.ContentID) (*models.MutationResult, error)
	list   func(ctx context.Context) ([]models.ContentItem, error)
}

func (f *fakeBackend) AddToCollection(ctx context.Context, _ models.CollectionKind, id models.ContentID) (*models.MutationResult, error) {
	if f.add == nil {
		return &models.MutationResult{Success: true}, nil
	}
	return f.add(ctx, id)
}

func (f *fakeBackend) RemoveFromCollection(ctx context.Context, _ models.CollectionKind, id models.ContentID) (*models.MutationResult, error) {
	if f.remove == nil {
		return &models.MutationResult{Success: true}, nil
	}
	return f.remove(ctx, id)
}

func (f *fakeBackend) ListCollection(ctx context.Context, _ models.CollectionKind) ([]models.ContentItem, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx)
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (r *recorder) Publish(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
	return nil
}

func (r *recorder) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notes...)
}

// stateLog collects control states.
type stateLog struct {
	mu     sync.Mutex
	states []models.ControlState
}

func (l *stateLog) record(s models.ControlState) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) last() models.ControlState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[len(l.states)-1]
}

func serverError() error {
	return &client.Error{Kind: client.ErrServiceUnavailable, Method: "POST", Endpoint: "/user/favorites", StatusCode: 500}
}

func TestRunOptimistic(t *testing.T) {
	value := 1
	err := RunOptimistic(context.Background(), Action{
		Name:    "test_ok",
		Apply:   func() { value = 2 },
		Revert:  func() { value = 1 },
		Request: func(context.Context) error { return nil },
	})
	if err != nil || value != 2 {
		t.Errorf("success: err=%v value=%d", err, value)
	}

	before := testutil.ToFloat64(metrics.OptimisticRollbacks.WithLabelValues("test_fail"))
	boom := errors.New("boom")
	err = RunOptimistic(context.Background(), Action{
		Name:    "test_fail",
		Apply:   func() { value = 3 },
		Revert:  func() { value = 2 },
		Request: func(context.Context) error { return boom },
	})
	if !errors.Is(err, boom) || value != 2 {
		t.Errorf("failure: err=%v value=%d", err, value)
	}
	if got := testutil.ToFloat64(metrics.OptimisticRollbacks.WithLabelValues("test_fail")); got != before+1 {
		t.Errorf("rollback metric = %v, want %v", got, before+1)
	}

	if err := RunOptimistic(context.Background(), Action{Name: "nil"}); err == nil {
		t.Error("action without request must fail")
	}
}

func TestRunOptimistic_PanicReverts(t *testing.T) {
	value := 0
	defer func() {
		if recover() == nil {
			t.Fatal("panic should propagate")
		}
		if value != 0 {
			t.Errorf("value = %d, want reverted 0", value)
		}
	}()
	_ = RunOptimistic(context.Background(), Action{
		Name:    "test_panic",
		Apply:   func() { value = 1 },
		Revert:  func() { value = 0 },
		Request: func(context.Context) error { panic("request exploded") },
	})
}

func TestToggle_RollbackOnServerError(t *testing.T) {
	notes := &recorder{}
	var during models.ControlState
	var duringContains bool

	var c *Collection
	backend := &fakeBackend{
		add: func(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
			during = c.Control(id)
			duringContains = c.Contains(id)
			return nil, serverError()
		},
	}
	c = NewCollection(models.CollectionFavorites, backend, Options{Notifier: notes})

	var log stateLog
	dispose := c.Bind(42, log.record)
	defer dispose()

	state, err := c.Toggle(context.Background(), 42)
	if !errors.Is(err, client.ErrServiceUnavailable) {
		t.Fatalf("Toggle error = %v", err)
	}

	if !duringContains || !during.Active || !during.Disabled {
		t.Errorf("optimistic state while in flight = %+v (contains %v)", during, duringContains)
	}
	if c.Contains(42) || c.Len() != 0 {
		t.Error("failed add must be rolled back")
	}
	want := models.ControlState{ContentID: 42, Kind: models.CollectionFavorites}
	if state != want || log.last() != want {
		t.Errorf("control after rollback = %+v / %+v, want %+v", state, log.last(), want)
	}

	got := notes.all()
	if len(got) != 1 || got[0].Level != models.NotifyError || got[0].ContentID != 42 {
		t.Errorf("notifications = %+v", got)
	}
}

func TestToggle_AddThenRemove(t *testing.T) {
	notes := &recorder{}
	c := NewCollection(models.CollectionWatchlist, &fakeBackend{}, Options{Notifier: notes})

	state, err := c.Toggle(context.Background(), 7)
	if err != nil || !state.Active || state.Disabled {
		t.Fatalf("add: state=%+v err=%v", state, err)
	}
	state, err = c.Toggle(context.Background(), 7)
	if err != nil || state.Active {
		t.Fatalf("remove: state=%+v err=%v", state, err)
	}

	got := notes.all()
	if len(got) != 2 || got[0].Message != "Added to watchlist" || got[1].Message != "Removed from watchlist" {
		t.Errorf("notifications = %+v", got)
	}
}

func TestToggle_RejectsDuplicateInFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	backend := &fakeBackend{
		add: func(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
			close(started)
			<-unblock
			return &models.MutationResult{Success: true}, nil
		},
	}
	c := NewCollection(models.CollectionFavorites, backend, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Toggle(context.Background(), 42)
		done <- err
	}()
	<-started

	state, err := c.Toggle(context.Background(), 42)
	if !errors.Is(err, ErrToggleInFlight) {
		t.Errorf("second toggle error = %v, want ErrToggleInFlight", err)
	}
	if !state.Disabled || !state.Active {
		t.Errorf("control during flight = %+v", state)
	}

	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !c.Contains(42) || c.Control(42).Disabled {
		t.Errorf("settled state = %+v", c.Control(42))
	}
}

func TestToggle_RemapsActualContentID(t *testing.T) {
	actual := models.ContentID(9001)
	backend := &fakeBackend{
		add: func(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
			return &models.MutationResult{Success: true, ActualContentID: &actual}, nil
		},
	}
	notes := &recorder{}
	c := NewCollection(models.CollectionFavorites, backend, Options{Notifier: notes})

	var bound, all stateLog
	disposeBind := c.Bind(42, bound.record)
	disposeAll := c.Observe(all.record)
	defer disposeAll()

	state, err := c.Toggle(context.Background(), 42)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if state.ContentID != actual || !state.Active {
		t.Errorf("state = %+v", state)
	}
	if c.Contains(42) || !c.Contains(actual) {
		t.Errorf("set = %v, want only %d", c.IDs(), actual)
	}

	last := bound.last()
	if last.ContentID != actual || !last.Active || last.Disabled {
		t.Errorf("bound control not reconciled: %+v", last)
	}
	sawRemap := false
	for _, s := range all.states {
		if s.RemappedFrom != nil && *s.RemappedFrom == 42 && s.ContentID == actual {
			sawRemap = true
		}
	}
	if !sawRemap {
		t.Error("observers did not see the remap")
	}
	if notes.all()[0].ContentID != actual {
		t.Errorf("notification content id = %d", notes.all()[0].ContentID)
	}

	// The binding moved with the id, so a later toggle of the new id reaches it.
	disposeBind()
	n := len(bound.states)
	if _, err := c.Toggle(context.Background(), actual); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(bound.states) != n {
		t.Error("disposed binding still receives updates")
	}
}

func TestToggle_MissingOnRemove(t *testing.T) {
	notFound := &client.Error{Kind: client.ErrNotFound, Method: "DELETE", Endpoint: "/user/favorites/5", StatusCode: 404}
	backend := &fakeBackend{
		remove: func(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
			return nil, notFound
		},
		list: func(ctx context.Context) ([]models.ContentItem, error) {
			return []models.ContentItem{{ID: 5}}, nil
		},
	}

	tests := []struct {
		name        string
		treatAsGone bool
		wantErr     bool
		wantActive  bool
	}{
		{"treated as removed", true, false, false},
		{"reported as error", false, true, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollection(models.CollectionFavorites, backend, Options{TreatMissingAsRemoved: tt.treatAsGone})
			if err := c.Load(context.Background()); err != nil {
				t.Fatalf("Load: %v", err)
			}
			before := testutil.ToFloat64(metrics.MissingTreatedAsRemoved.WithLabelValues("favorites"))

			state, err := c.Toggle(context.Background(), 5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if state.Active != tt.wantActive || c.Contains(5) != tt.wantActive {
				t.Errorf("active = %v, contains = %v, want %v", state.Active, c.Contains(5), tt.wantActive)
			}

			after := testutil.ToFloat64(metrics.MissingTreatedAsRemoved.WithLabelValues("favorites"))
			wantDelta := 0.0
			if tt.treatAsGone {
				wantDelta = 1
			}
			if after-before != wantDelta {
				t.Errorf("metric delta = %v, want %v", after-before, wantDelta)
			}
		})
	}
}

// memSnapshot is an in-memory Snapshotter.
type memSnapshot struct {
	mu  sync.Mutex
	ids map[models.CollectionKind][]models.ContentID
}

func (m *memSnapshot) SaveCollection(kind models.CollectionKind, ids []models.ContentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[models.CollectionKind][]models.ContentID)
	}
	m.ids[kind] = append([]models.ContentID(nil), ids...)
	return nil
}

func (m *memSnapshot) LoadCollection(kind models.CollectionKind) ([]models.ContentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.ids[kind]
	if !ok {
		return nil, errors.New("not found")
	}
	return ids, nil
}

func TestLoad_OncePerSessionAndReset(t *testing.T) {
	calls := 0
	backend := &fakeBackend{
		list: func(ctx context.Context) ([]models.ContentItem, error) {
			calls++
			return []models.ContentItem{{ID: 1}, {ID: 2}, {ID: 0}}, nil
		},
	}
	snap := &memSnapshot{}
	c := NewCollection(models.CollectionFavorites, backend, Options{Snapshot: snap})

	for i := 0; i < 2; i++ {
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if calls != 1 || c.Len() != 2 || !c.Loaded() {
		t.Errorf("calls=%d len=%d loaded=%v", calls, c.Len(), c.Loaded())
	}
	if saved, _ := snap.LoadCollection(models.CollectionFavorites); len(saved) != 2 {
		t.Errorf("snapshot = %v", saved)
	}

	var log stateLog
	c.Bind(1, log.record)
	c.Reset()
	if c.Len() != 0 || c.Loaded() {
		t.Error("Reset must empty the set")
	}
	if log.last().Active {
		t.Error("bound control should be inactive after Reset")
	}

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load after reset: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestLoad_FailureFallsBackToSnapshot(t *testing.T) {
	snap := &memSnapshot{}
	_ = snap.SaveCollection(models.CollectionWatchlist, []models.ContentID{11, 12})
	backend := &fakeBackend{
		list: func(ctx context.Context) ([]models.ContentItem, error) {
			return nil, &client.Error{Kind: client.ErrNetwork, Method: "GET", Endpoint: "/user/watchlist"}
		},
	}
	c := NewCollection(models.CollectionWatchlist, backend, Options{Snapshot: snap})

	err := c.Load(context.Background())
	if !errors.Is(err, client.ErrNetwork) {
		t.Fatalf("Load error = %v", err)
	}
	if !c.Contains(11) || !c.Contains(12) || c.Loaded() {
		t.Errorf("snapshot not shown: ids=%v loaded=%v", c.IDs(), c.Loaded())
	}
}

func TestToggle_ResetDuringFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	backend := &fakeBackend{
		add: func(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
			close(started)
			<-unblock
			return nil, serverError()
		},
	}
	c := NewCollection(models.CollectionFavorites, backend, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Toggle(context.Background(), 3)
	}()
	<-started
	c.Reset()
	close(unblock)
	<-done

	if c.Len() != 0 || c.Control(3).Disabled {
		t.Errorf("stale toggle leaked into the new session: ids=%v control=%+v", c.IDs(), c.Control(3))
	}
}

func TestToggle_WithHTTPBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusInternalServerError)
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"results":[{"id":8}]}`)
		}
	}))
	defer srv.Close()

	api := client.New(&config.APIConfig{BaseURL: srv.URL, DefaultTimeout: 2 * time.Second})
	m := NewManager(api, Options{TreatMissingAsRemoved: true})
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	fav, err := m.Get(models.CollectionFavorites)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !fav.Contains(8) {
		t.Errorf("loaded ids = %v", fav.IDs())
	}

	if _, err := fav.Toggle(context.Background(), 42); !errors.Is(err, client.ErrServiceUnavailable) {
		t.Errorf("Toggle error = %v", err)
	}
	if fav.Contains(42) {
		t.Error("500 must roll back the add")
	}

	if _, err := m.Get("history"); err == nil {
		t.Error("unknown kind should fail")
	}
	m.ResetAll()
	if m.Favorites.Len() != 0 || m.Watchlist.Len() != 0 {
		t.Error("ResetAll should empty both sets")
	}
}

func TestToggle_InvalidID(t *testing.T) {
	c := NewCollection(models.CollectionFavorites, &fakeBackend{}, Options{})
	if _, err := c.Toggle(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("err = %v", err)
	}
}
