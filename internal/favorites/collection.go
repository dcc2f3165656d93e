// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package favorites

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/inflight"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
	"github.com/tomtom215/cinebrain/internal/notify"
)

// ErrToggleInFlight is returned when the same id is toggled again before
// its previous toggle settled.
var ErrToggleInFlight = errors.New("toggle already in progress")

// ErrInvalidID is returned for ids that cannot exist on the backend.
var ErrInvalidID = errors.New("invalid content id")

// Backend is the subset of the API client a Collection needs.
type Backend interface {
	AddToCollection(ctx context.Context, kind models.CollectionKind, id models.ContentID) (*models.MutationResult, error)
	RemoveFromCollection(ctx context.Context, kind models.CollectionKind, id models.ContentID) (*models.MutationResult, error)
	ListCollection(ctx context.Context, kind models.CollectionKind) ([]models.ContentItem, error)
}

// Snapshotter persists the set between runs. session.Store implements it.
type Snapshotter interface {
	SaveCollection(kind models.CollectionKind, ids []models.ContentID) error
	LoadCollection(kind models.CollectionKind) ([]models.ContentID, error)
}

// Options configures a Collection.
type Options struct {
	// TreatMissingAsRemoved turns a 404 on removal into success.
	TreatMissingAsRemoved bool

	Notifier notify.Publisher
	Snapshot Snapshotter
}

// Collection is one user content set (favorites or watchlist).
type Collection struct {
	kind    models.CollectionKind
	backend Backend
	opts    Options
	guard   inflight.Guard

	mu       sync.RWMutex
	ids      map[models.ContentID]struct{}
	disabled map[models.ContentID]bool
	loaded   bool
	gen      uint64

	obsMu     sync.RWMutex
	observers map[uint64]func(models.ControlState)
	bindings  map[models.ContentID]map[uint64]func(models.ControlState)
	nextObsID uint64
}

// NewCollection creates an empty, not yet loaded collection.
func NewCollection(kind models.CollectionKind, backend Backend, opts Options) *Collection {
	return &Collection{
		kind:      kind,
		backend:   backend,
		opts:      opts,
		ids:       make(map[models.ContentID]struct{}),
		disabled:  make(map[models.ContentID]bool),
		observers: make(map[uint64]func(models.ControlState)),
		bindings:  make(map[models.ContentID]map[uint64]func(models.ControlState)),
	}
}

// Kind returns the collection kind.
func (c *Collection) Kind() models.CollectionKind { return c.kind }

// Contains reports whether id is in the set, including optimistic changes.
func (c *Collection) Contains(id models.ContentID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// IDs returns the ids in ascending order.
func (c *Collection) IDs() []models.ContentID {
	c.mu.RLock()
	out := make([]models.ContentID, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Len returns the set size.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Loaded reports whether Load has succeeded in the current session.
func (c *Collection) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Control returns the control state for id.
func (c *Collection) Control(id models.ContentID) models.ControlState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.controlLocked(id)
}

func (c *Collection) controlLocked(id models.ContentID) models.ControlState {
	_, active := c.ids[id]
	return models.ControlState{ContentID: id, Kind: c.kind, Active: active, Disabled: c.disabled[id]}
}

// Load fetches the set from the backend once per session. When the request
// fails and a snapshot exists, the snapshot is shown and the error is still
// returned so the next Load retries.
func (c *Collection) Load(ctx context.Context) error {
	c.mu.RLock()
	loaded, gen := c.loaded, c.gen
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	items, err := c.backend.ListCollection(ctx, c.kind)
	if err != nil {
		if c.restoreSnapshot(gen) {
			logging.Ctx(ctx).Warn().Err(err).Str("kind", string(c.kind)).Msg("Collection load failed, showing saved snapshot")
		}
		return fmt.Errorf("load %s: %w", c.kind, err)
	}

	ids := make(map[models.ContentID]struct{}, len(items))
	for i := range items {
		if items[i].ID > 0 {
			ids[items[i].ID] = struct{}{}
		}
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	// Ids with a toggle in flight keep their optimistic state.
	for id := range c.disabled {
		if _, active := c.ids[id]; active {
			ids[id] = struct{}{}
		} else {
			delete(ids, id)
		}
	}
	c.ids = ids
	c.loaded = true
	states := c.boundStatesLocked()
	c.mu.Unlock()

	c.saveSnapshot()
	c.emitAll(states)
	logging.Ctx(ctx).Debug().Str("kind", string(c.kind)).Int("count", len(ids)).Msg("Collection loaded")
	return nil
}

func (c *Collection) restoreSnapshot(gen uint64) bool {
	if c.opts.Snapshot == nil {
		return false
	}
	ids, err := c.opts.Snapshot.LoadCollection(c.kind)
	if err != nil {
		return false
	}

	c.mu.Lock()
	if c.gen != gen || c.loaded {
		c.mu.Unlock()
		return false
	}
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
	states := c.boundStatesLocked()
	c.mu.Unlock()

	c.emitAll(states)
	return true
}

// Reset empties the set for a new session. Toggles still in flight settle
// without touching the new session's state.
func (c *Collection) Reset() {
	c.mu.Lock()
	c.gen++
	c.ids = make(map[models.ContentID]struct{})
	c.disabled = make(map[models.ContentID]bool)
	c.loaded = false
	states := c.boundStatesLocked()
	c.mu.Unlock()

	c.emitAll(states)
}

// Toggle flips id's membership optimistically and returns the settled
// control state.
func (c *Collection) Toggle(ctx context.Context, id models.ContentID) (models.ControlState, error) {
	if id <= 0 {
		return models.ControlState{}, ErrInvalidID
	}
	release, ok := c.guard.TryAcquire(id.String())
	if !ok {
		return c.Control(id), ErrToggleInFlight
	}
	defer release()

	c.mu.RLock()
	gen := c.gen
	_, wasActive := c.ids[id]
	c.mu.RUnlock()

	op := "add"
	if wasActive {
		op = "remove"
	}

	var result *models.MutationResult
	err := RunOptimistic(ctx, Action{
		Name:   string(c.kind) + "_" + op,
		Apply:  func() { c.setState(gen, id, !wasActive, true) },
		Revert: func() { c.setState(gen, id, wasActive, false) },
		Request: func(ctx context.Context) error {
			var err error
			if wasActive {
				result, err = c.remove(ctx, id)
			} else {
				result, err = c.backend.AddToCollection(ctx, c.kind, id)
			}
			return err
		},
	})
	metrics.RecordCollectionMutation(string(c.kind), op, err)

	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(c.kind)).Str("op", op).Int64("content_id", int64(id)).Msg("Collection update failed, reverted")
		c.publish(ctx, models.NotifyError, fmt.Sprintf("Could not update %s. %s", c.kind, client.UserMessage(err)), id)
		return c.Control(id), err
	}

	final := id
	if !wasActive && result != nil && result.ActualContentID != nil && *result.ActualContentID > 0 && *result.ActualContentID != id {
		final = *result.ActualContentID
		c.remap(gen, id, final)
	}
	c.setState(gen, final, !wasActive, false)
	c.saveSnapshot()

	msg := "Added to " + string(c.kind)
	if wasActive {
		msg = "Removed from " + string(c.kind)
	}
	c.publish(ctx, models.NotifySuccess, msg, final)
	return c.Control(final), nil
}

// remove deletes id, treating a 404 as success when configured.
func (c *Collection) remove(ctx context.Context, id models.ContentID) (*models.MutationResult, error) {
	result, err := c.backend.RemoveFromCollection(ctx, c.kind, id)
	if err != nil && errors.Is(err, client.ErrNotFound) && c.opts.TreatMissingAsRemoved {
		metrics.MissingTreatedAsRemoved.WithLabelValues(string(c.kind)).Inc()
		logging.Ctx(ctx).Warn().Str("kind", string(c.kind)).Int64("content_id", int64(id)).Msg("Backend reported item missing on removal, treating as removed")
		return &models.MutationResult{Success: true, Message: "already removed"}, nil
	}
	return result, err
}

// setState sets membership and the disabled flag of id, unless the session
// changed since gen.
func (c *Collection) setState(gen uint64, id models.ContentID, active, disabled bool) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if active {
		c.ids[id] = struct{}{}
	} else {
		delete(c.ids, id)
	}
	if disabled {
		c.disabled[id] = true
	} else {
		delete(c.disabled, id)
	}
	state := c.controlLocked(id)
	c.mu.Unlock()

	c.emit(state)
}

// remap moves id to actual in the set and moves every control bound to id.
func (c *Collection) remap(gen uint64, id, actual models.ContentID) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if _, ok := c.ids[id]; ok {
		delete(c.ids, id)
		c.ids[actual] = struct{}{}
	}
	if c.disabled[id] {
		delete(c.disabled, id)
		c.disabled[actual] = true
	}
	state := c.controlLocked(actual)
	c.mu.Unlock()

	c.obsMu.Lock()
	moved := c.bindings[id]
	delete(c.bindings, id)
	if len(moved) > 0 {
		if c.bindings[actual] == nil {
			c.bindings[actual] = make(map[uint64]func(models.ControlState))
		}
		for obsID, fn := range moved {
			c.bindings[actual][obsID] = fn
		}
	}
	c.obsMu.Unlock()

	from := id
	state.RemappedFrom = &from
	c.emit(state)
	logging.Debug().Str("kind", string(c.kind)).Int64("from", int64(id)).Int64("to", int64(actual)).Msg("Content id remapped by backend")
}

func (c *Collection) saveSnapshot() {
	if c.opts.Snapshot == nil {
		return
	}
	if err := c.opts.Snapshot.SaveCollection(c.kind, c.IDs()); err != nil {
		logging.Warn().Err(err).Str("kind", string(c.kind)).Msg("Failed to save collection snapshot")
	}
}

func (c *Collection) publish(ctx context.Context, level models.NotificationLevel, msg string, id models.ContentID) {
	if c.opts.Notifier == nil {
		return
	}
	note := models.Notification{Level: level, Message: msg, ContentID: id}
	if err := c.opts.Notifier.Publish(ctx, note); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Notification dropped")
	}
}

// Observe registers fn for state changes of every id.
func (c *Collection) Observe(fn func(models.ControlState)) (dispose func()) {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

// Bind registers fn for the control of one content id. fn receives the
// current state immediately. The binding follows the id if the backend
// remaps it.
func (c *Collection) Bind(contentID models.ContentID, fn func(models.ControlState)) (dispose func()) {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	if c.bindings[contentID] == nil {
		c.bindings[contentID] = make(map[uint64]func(models.ControlState))
	}
	c.bindings[contentID][id] = fn
	c.obsMu.Unlock()

	fn(c.Control(contentID))

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			defer c.obsMu.Unlock()
			// The binding may have moved with a remap.
			for cid, fns := range c.bindings {
				if _, ok := fns[id]; ok {
					delete(fns, id)
					if len(fns) == 0 {
						delete(c.bindings, cid)
					}
					return
				}
			}
		})
	}
}

// boundStatesLocked returns the state of every bound id. c.mu must be held.
func (c *Collection) boundStatesLocked() []models.ControlState {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	states := make([]models.ControlState, 0, len(c.bindings))
	for id := range c.bindings {
		states = append(states, c.controlLocked(id))
	}
	return states
}

func (c *Collection) emitAll(states []models.ControlState) {
	for _, s := range states {
		c.emit(s)
	}
}

func (c *Collection) emit(state models.ControlState) {
	c.obsMu.RLock()
	fns := make([]func(models.ControlState), 0, len(c.observers)+len(c.bindings[state.ContentID]))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	for _, fn := range c.bindings[state.ContentID] {
		fns = append(fns, fn)
	}
	c.obsMu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}
